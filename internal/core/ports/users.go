package ports

import (
	"context"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

// UserRepository persists users and their role memberships. Role changes are
// recorded as link/unlink change events on the user subject.
type UserRepository interface {
	Create(ctx context.Context, user domain.User, roleIDs []int64, meta domain.MutationMeta) (domain.User, error)
	Get(ctx context.Context, id int64) (domain.User, error)
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context, req domain.PageRequest) ([]domain.User, int64, error)
	Update(ctx context.Context, id int64, patch domain.UserUpdate, roleIDs []int64, meta domain.MutationMeta) (domain.User, error)
	Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error)
	SetRoles(ctx context.Context, userID int64, roleIDs []int64, meta domain.MutationMeta) error
	// EnsureUser creates the named user if missing, attributing the create
	// event to the new user itself. Used for bootstrap, where no prior
	// actor exists.
	EnsureUser(ctx context.Context, username, passwordHash string) (domain.User, bool, error)
}

// RoleRepository persists roles, the permission catalog and role/permission
// grants.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role, permissionIDs []int64, meta domain.MutationMeta) (domain.Role, error)
	Get(ctx context.Context, id int64) (domain.Role, error)
	List(ctx context.Context, req domain.PageRequest) ([]domain.Role, int64, error)
	Update(ctx context.Context, id int64, patch domain.RoleUpdate, permissionIDs []int64, meta domain.MutationMeta) (domain.Role, error)
	Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error)
	SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64, meta domain.MutationMeta) error
	EnsureRole(ctx context.Context, role domain.Role, meta domain.MutationMeta) (domain.Role, bool, error)
	// EnsurePermissions inserts missing catalog entries; permissions are
	// not change-logged.
	EnsurePermissions(ctx context.Context, perms []domain.Permission) ([]domain.Permission, error)
}
