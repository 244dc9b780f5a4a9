package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/ports"
)

type RoleService struct {
	repo ports.RoleRepository
}

func NewRoleService(repo ports.RoleRepository) *RoleService {
	return &RoleService{repo: repo}
}

func (s *RoleService) Create(ctx context.Context, role domain.Role, permissionIDs []int64, meta domain.MutationMeta) (domain.Role, error) {
	if meta.ActorID <= 0 {
		return domain.Role{}, domain.ErrMissingActor
	}
	if err := role.Validate(); err != nil {
		return domain.Role{}, err
	}
	return s.repo.Create(ctx, role, permissionIDs, meta.Normalize())
}

func (s *RoleService) Get(ctx context.Context, id int64) (domain.Role, error) {
	if id <= 0 {
		return domain.Role{}, domain.Validationf("invalid role id")
	}
	return s.repo.Get(ctx, id)
}

func (s *RoleService) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Role], error) {
	if !req.Valid() {
		return domain.EmptyPage[domain.Role](req.Page), nil
	}
	roles, total, err := s.repo.List(ctx, req)
	if err != nil {
		return domain.Page[domain.Role]{}, err
	}
	return domain.NewPage(roles, total, req), nil
}

func (s *RoleService) Update(ctx context.Context, id int64, patch domain.RoleUpdate, permissionIDs []int64, meta domain.MutationMeta) (domain.Role, error) {
	if meta.ActorID <= 0 {
		return domain.Role{}, domain.ErrMissingActor
	}
	if id <= 0 {
		return domain.Role{}, domain.Validationf("invalid role id")
	}
	if patch.Name != nil && *patch.Name == "" {
		return domain.Role{}, domain.Validationf("role name is required")
	}
	return s.repo.Update(ctx, id, patch, permissionIDs, meta.Normalize())
}

func (s *RoleService) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	if meta.ActorID <= 0 {
		return false, domain.ErrMissingActor
	}
	if id <= 0 {
		return false, domain.Validationf("invalid role id")
	}
	return s.repo.Delete(ctx, id, meta.Normalize())
}
