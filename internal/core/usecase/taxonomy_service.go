package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/ports"
)

type DepartmentService struct {
	repo ports.DepartmentRepository
}

func NewDepartmentService(repo ports.DepartmentRepository) *DepartmentService {
	return &DepartmentService{repo: repo}
}

func (s *DepartmentService) Create(ctx context.Context, dept domain.Department, meta domain.MutationMeta) (domain.Department, error) {
	if meta.ActorID <= 0 {
		return domain.Department{}, domain.ErrMissingActor
	}
	if err := dept.Validate(); err != nil {
		return domain.Department{}, err
	}
	return s.repo.Create(ctx, dept, meta.Normalize())
}

func (s *DepartmentService) Get(ctx context.Context, id int64) (domain.Department, error) {
	if id <= 0 {
		return domain.Department{}, domain.Validationf("invalid department id")
	}
	return s.repo.Get(ctx, id)
}

func (s *DepartmentService) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Department], error) {
	if !req.Valid() {
		return domain.EmptyPage[domain.Department](req.Page), nil
	}
	depts, total, err := s.repo.List(ctx, req)
	if err != nil {
		return domain.Page[domain.Department]{}, err
	}
	return domain.NewPage(depts, total, req), nil
}

func (s *DepartmentService) Rename(ctx context.Context, id int64, name string, meta domain.MutationMeta) (domain.Department, error) {
	if meta.ActorID <= 0 {
		return domain.Department{}, domain.ErrMissingActor
	}
	if id <= 0 {
		return domain.Department{}, domain.Validationf("invalid department id")
	}
	if name == "" {
		return domain.Department{}, domain.Validationf("department name is required")
	}
	return s.repo.Rename(ctx, id, name, meta.Normalize())
}

func (s *DepartmentService) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	if meta.ActorID <= 0 {
		return false, domain.ErrMissingActor
	}
	if id <= 0 {
		return false, domain.Validationf("invalid department id")
	}
	return s.repo.Delete(ctx, id, meta.Normalize())
}

type CategoryService struct {
	repo ports.CategoryRepository
}

func NewCategoryService(repo ports.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) Create(ctx context.Context, cat domain.Category, meta domain.MutationMeta) (domain.Category, error) {
	if meta.ActorID <= 0 {
		return domain.Category{}, domain.ErrMissingActor
	}
	if err := cat.Validate(); err != nil {
		return domain.Category{}, err
	}
	return s.repo.Create(ctx, cat, meta.Normalize())
}

func (s *CategoryService) Get(ctx context.Context, id int64) (domain.Category, error) {
	if id <= 0 {
		return domain.Category{}, domain.Validationf("invalid category id")
	}
	return s.repo.Get(ctx, id)
}

func (s *CategoryService) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Category], error) {
	if !req.Valid() {
		return domain.EmptyPage[domain.Category](req.Page), nil
	}
	cats, total, err := s.repo.List(ctx, req)
	if err != nil {
		return domain.Page[domain.Category]{}, err
	}
	return domain.NewPage(cats, total, req), nil
}

func (s *CategoryService) Rename(ctx context.Context, id int64, name string, meta domain.MutationMeta) (domain.Category, error) {
	if meta.ActorID <= 0 {
		return domain.Category{}, domain.ErrMissingActor
	}
	if id <= 0 {
		return domain.Category{}, domain.Validationf("invalid category id")
	}
	if name == "" {
		return domain.Category{}, domain.Validationf("category name is required")
	}
	return s.repo.Rename(ctx, id, name, meta.Normalize())
}

func (s *CategoryService) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	if meta.ActorID <= 0 {
		return false, domain.ErrMissingActor
	}
	if id <= 0 {
		return false, domain.Validationf("invalid category id")
	}
	return s.repo.Delete(ctx, id, meta.Normalize())
}
