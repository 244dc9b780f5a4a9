package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/ports"
)

type ItemService struct {
	repo ports.ItemRepository
}

func NewItemService(repo ports.ItemRepository) *ItemService {
	return &ItemService{repo: repo}
}

func (s *ItemService) Create(ctx context.Context, item domain.Item, meta domain.MutationMeta) (domain.Item, error) {
	if meta.ActorID <= 0 {
		return domain.Item{}, domain.ErrMissingActor
	}
	if item.Quantity == 0 {
		item.Quantity = 1
	}
	if item.Unit == "" {
		item.Unit = domain.UnitPiece
	}
	if err := item.Validate(); err != nil {
		return domain.Item{}, err
	}
	return s.repo.Create(ctx, item, meta.Normalize())
}

func (s *ItemService) Get(ctx context.Context, id int64) (domain.Item, error) {
	if id <= 0 {
		return domain.Item{}, domain.Validationf("invalid item id")
	}
	return s.repo.Get(ctx, id)
}

func (s *ItemService) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Item], error) {
	if !req.Valid() {
		return domain.EmptyPage[domain.Item](req.Page), nil
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}
	return domain.NewPage(items, total, req), nil
}

func (s *ItemService) Update(ctx context.Context, id int64, patch domain.ItemUpdate, meta domain.MutationMeta) (domain.Item, error) {
	if meta.ActorID <= 0 {
		return domain.Item{}, domain.ErrMissingActor
	}
	if id <= 0 {
		return domain.Item{}, domain.Validationf("invalid item id")
	}
	if patch.Name != nil && *patch.Name == "" {
		return domain.Item{}, domain.Validationf("item name is required")
	}
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return domain.Item{}, domain.Validationf("quantity must be at least 1")
	}
	if patch.Unit != nil && !patch.Unit.Valid() {
		return domain.Item{}, domain.Validationf("invalid unit: %s", *patch.Unit)
	}
	if patch.DepartmentID != nil && *patch.DepartmentID <= 0 {
		return domain.Item{}, domain.Validationf("departmentId must be positive")
	}
	if patch.CategoryID.Set && patch.CategoryID.ID != nil && *patch.CategoryID.ID <= 0 {
		return domain.Item{}, domain.Validationf("categoryId must be positive")
	}
	return s.repo.Update(ctx, id, patch, meta.Normalize())
}

func (s *ItemService) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	if meta.ActorID <= 0 {
		return false, domain.ErrMissingActor
	}
	if id <= 0 {
		return false, domain.Validationf("invalid item id")
	}
	return s.repo.Delete(ctx, id, meta.Normalize())
}
