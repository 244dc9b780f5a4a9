package ports

import (
	"context"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

// DepartmentRepository persists departments. Delete fails with
// domain.ErrConflict while items still reference the department.
type DepartmentRepository interface {
	Create(ctx context.Context, dept domain.Department, meta domain.MutationMeta) (domain.Department, error)
	Get(ctx context.Context, id int64) (domain.Department, error)
	List(ctx context.Context, req domain.PageRequest) ([]domain.Department, int64, error)
	Rename(ctx context.Context, id int64, name string, meta domain.MutationMeta) (domain.Department, error)
	Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error)
}

// CategoryRepository mirrors DepartmentRepository for categories.
type CategoryRepository interface {
	Create(ctx context.Context, cat domain.Category, meta domain.MutationMeta) (domain.Category, error)
	Get(ctx context.Context, id int64) (domain.Category, error)
	List(ctx context.Context, req domain.PageRequest) ([]domain.Category, int64, error)
	Rename(ctx context.Context, id int64, name string, meta domain.MutationMeta) (domain.Category, error)
	Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error)
}
