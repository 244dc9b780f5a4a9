package app

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/ports"
)

var (
	permissionActions  = []string{"create", "get", "edit", "delete"}
	permissionEntities = []string{"items", "categories", "departments", "users", "roles"}
)

const adminRoleName = "admin"

// seed ensures the permission catalog, the admin role holding every
// permission, and the admin account exist. It is idempotent: reruns on an
// already seeded database change nothing and log nothing. The very first run
// has no acting user yet, so the admin's own create event is attributed to
// the admin account itself and everything after it to the admin.
func seed(ctx context.Context, users ports.UserRepository, roles ports.RoleRepository, username, password string) error {
	perms, err := roles.EnsurePermissions(ctx, permissionCatalog())
	if err != nil {
		return fmt.Errorf("ensure permissions: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin, _, err := users.EnsureUser(ctx, username, string(hash))
	if err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	meta := domain.MutationMeta{ActorID: admin.ID}

	role, _, err := roles.EnsureRole(ctx, domain.Role{
		Name:        adminRoleName,
		Description: "Full access",
	}, meta)
	if err != nil {
		return fmt.Errorf("ensure admin role: %w", err)
	}

	permIDs := make([]int64, 0, len(perms))
	for _, perm := range perms {
		permIDs = append(permIDs, perm.ID)
	}
	if err := roles.SetPermissions(ctx, role.ID, permIDs, meta); err != nil {
		return fmt.Errorf("grant admin permissions: %w", err)
	}

	if !hasRole(admin, role.ID) {
		roleIDs := []int64{role.ID}
		for _, r := range admin.Roles {
			roleIDs = append(roleIDs, r.ID)
		}
		if err := users.SetRoles(ctx, admin.ID, roleIDs, meta); err != nil {
			return fmt.Errorf("assign admin role: %w", err)
		}
	}

	return nil
}

func permissionCatalog() []domain.Permission {
	perms := make([]domain.Permission, 0, len(permissionActions)*len(permissionEntities))
	for _, entity := range permissionEntities {
		for _, action := range permissionActions {
			perms = append(perms, domain.Permission{
				Name:        action + ":" + entity,
				Description: fmt.Sprintf("Allows %s on %s", action, entity),
			})
		}
	}
	return perms
}

func hasRole(user domain.User, roleID int64) bool {
	for _, role := range user.Roles {
		if role.ID == roleID {
			return true
		}
	}
	return false
}
