package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

// relRole is the relation field recorded on user role membership events.
const relRole = "roleId"

type UserRepository struct {
	db  *gormsqlite.DB
	log *ChangeLogStore
}

func NewUserRepository(db *gormsqlite.DB, log *ChangeLogStore) *UserRepository {
	return &UserRepository{db: db, log: log}
}

func (r *UserRepository) Create(ctx context.Context, user domain.User, roleIDs []int64, meta domain.MutationMeta) (domain.User, error) {
	meta = meta.Normalize()
	var result domain.User

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := requireUniqueUsername(tx.DB, user.Username, 0); err != nil {
			return err
		}

		model := userModel{
			Username:     user.Username,
			PasswordHash: user.PasswordHash,
			CreatedAt:    meta.OccurredAt,
			UpdatedAt:    meta.OccurredAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		snap := domain.Snapshot{Current: userFields(model)}
		if err := r.log.Record(tx.DB, snap, domain.OpCreate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindUser,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		if err := r.syncRoles(tx.DB, model.ID, roleIDs, meta); err != nil {
			return err
		}

		roles, err := loadUserRoles(tx.DB, model.ID)
		if err != nil {
			return err
		}
		result = toDomainUser(model)
		result.Roles = roles
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (domain.User, error) {
	var result domain.User
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		var model userModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		roles, err := loadUserRoles(tx.DB, model.ID)
		if err != nil {
			return err
		}
		result = toDomainUser(model)
		result.Roles = roles
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return result, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	var result domain.User
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		var model userModel
		if err := tx.Where("username = ?", username).First(&model).Error; err != nil {
			return err
		}
		roles, err := loadUserRoles(tx.DB, model.ID)
		if err != nil {
			return err
		}
		result = toDomainUser(model)
		result.Roles = roles
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return result, nil
}

func (r *UserRepository) List(ctx context.Context, req domain.PageRequest) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&userModel{}).Count(&total).Error; err != nil {
			return err
		}
		var models []userModel
		if err := tx.Order("id ASC").Offset(req.Offset()).Limit(req.PageSize).Find(&models).Error; err != nil {
			return err
		}
		users = make([]domain.User, 0, len(models))
		for _, model := range models {
			roles, err := loadUserRoles(tx.DB, model.ID)
			if err != nil {
				return err
			}
			user := toDomainUser(model)
			user.Roles = roles
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Update applies the patch and, when roleIDs is non-nil, reconciles role
// memberships in the same transaction. A patch that changes nothing writes
// no user row and no update event; membership changes are still applied.
func (r *UserRepository) Update(ctx context.Context, id int64, patch domain.UserUpdate, roleIDs []int64, meta domain.MutationMeta) (domain.User, error) {
	meta = meta.Normalize()
	var result domain.User

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var before userModel
		if err := tx.Where("id = ?", id).First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		after := before
		if patch.Username != nil {
			after.Username = *patch.Username
		}
		if patch.PasswordHash != nil {
			after.PasswordHash = *patch.PasswordHash
		}

		changed := changedFieldNames(userFields(before), userFields(after))
		if len(changed) > 0 {
			if after.Username != before.Username {
				if err := requireUniqueUsername(tx.DB, after.Username, id); err != nil {
					return err
				}
			}
			after.UpdatedAt = meta.OccurredAt
			if err := tx.Save(&after).Error; err != nil {
				return fmt.Errorf("update user: %w", err)
			}

			snap := domain.Snapshot{
				Current:       userFields(after),
				Previous:      userFields(before),
				ChangedFields: changed,
			}
			if err := r.log.Record(tx.DB, snap, domain.OpUpdate, domain.ChangeContext{
				ActorID:    meta.ActorID,
				Kind:       domain.KindUser,
				EntityID:   after.ID,
				OccurredAt: meta.OccurredAt,
			}); err != nil {
				return err
			}
		}

		if roleIDs != nil {
			if err := r.syncRoles(tx.DB, id, roleIDs, meta); err != nil {
				return err
			}
		}

		roles, err := loadUserRoles(tx.DB, id)
		if err != nil {
			return err
		}
		result = toDomainUser(after)
		result.Roles = roles
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	meta = meta.Normalize()
	deleted := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model userModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load user: %w", err)
		}

		if err := tx.Where("user_id = ?", id).Delete(&userRoleModel{}).Error; err != nil {
			return fmt.Errorf("clear user roles: %w", err)
		}
		if err := tx.Delete(&model).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		deleted = true

		snap := domain.Snapshot{Current: userFields(model)}
		return r.log.Record(tx.DB, snap, domain.OpDelete, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindUser,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *UserRepository) SetRoles(ctx context.Context, userID int64, roleIDs []int64, meta domain.MutationMeta) error {
	meta = meta.Normalize()
	return r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model userModel
		if err := tx.Where("id = ?", userID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}
		return r.syncRoles(tx.DB, userID, roleIDs, meta)
	})
}

// EnsureUser creates the named user unless one already exists. The create
// event is attributed to the new user's own id: bootstrap runs before any
// actor exists.
func (r *UserRepository) EnsureUser(ctx context.Context, username, passwordHash string) (domain.User, bool, error) {
	var result domain.User
	created := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var existing userModel
		err := tx.Where("username = ?", username).First(&existing).Error
		if err == nil {
			roles, err := loadUserRoles(tx.DB, existing.ID)
			if err != nil {
				return err
			}
			result = toDomainUser(existing)
			result.Roles = roles
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find user: %w", err)
		}

		meta := domain.MutationMeta{}.Normalize()
		model := userModel{
			Username:     username,
			PasswordHash: passwordHash,
			CreatedAt:    meta.OccurredAt,
			UpdatedAt:    meta.OccurredAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		snap := domain.Snapshot{Current: userFields(model)}
		if err := r.log.Record(tx.DB, snap, domain.OpCreate, domain.ChangeContext{
			ActorID:    model.ID,
			Kind:       domain.KindUser,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainUser(model)
		created = true
		return nil
	})
	if err != nil {
		return domain.User{}, false, err
	}
	return result, created, nil
}

// syncRoles reconciles the user's memberships against the wanted set. Each
// grant becomes a link event and each revocation an unlink event on the user
// subject, all inside the caller's transaction.
func (r *UserRepository) syncRoles(tx *gorm.DB, userID int64, wanted []int64, meta domain.MutationMeta) error {
	var current []userRoleModel
	if err := tx.Where("user_id = ?", userID).Find(&current).Error; err != nil {
		return fmt.Errorf("load user roles: %w", err)
	}

	have := make(map[int64]bool, len(current))
	for _, m := range current {
		have[m.RoleID] = true
	}
	want := make(map[int64]bool, len(wanted))
	for _, id := range wanted {
		want[id] = true
	}

	for _, roleID := range sortedIDs(want) {
		if have[roleID] {
			continue
		}
		var role roleModel
		if err := tx.Where("id = ?", roleID).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: role %d", domain.ErrNotFound, roleID)
			}
			return fmt.Errorf("load role: %w", err)
		}
		if err := tx.Create(&userRoleModel{UserID: userID, RoleID: roleID}).Error; err != nil {
			return fmt.Errorf("grant role: %w", err)
		}
		err := r.log.Record(tx, domain.Snapshot{}, domain.OpLink, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindUser,
			EntityID:   userID,
			Relation:   relRole,
			RelatedID:  roleID,
			OccurredAt: meta.OccurredAt,
		})
		if err != nil {
			return err
		}
	}

	for _, roleID := range sortedIDs(have) {
		if want[roleID] {
			continue
		}
		if err := tx.Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&userRoleModel{}).Error; err != nil {
			return fmt.Errorf("revoke role: %w", err)
		}
		err := r.log.Record(tx, domain.Snapshot{}, domain.OpUnlink, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindUser,
			EntityID:   userID,
			Relation:   relRole,
			RelatedID:  roleID,
			OccurredAt: meta.OccurredAt,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func loadUserRoles(tx *gorm.DB, userID int64) ([]domain.Role, error) {
	var models []roleModel
	err := tx.
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}

	roles := make([]domain.Role, 0, len(models))
	for _, model := range models {
		perms, err := loadRolePermissions(tx, model.ID)
		if err != nil {
			return nil, err
		}
		role := toDomainRole(model)
		role.Permissions = perms
		roles = append(roles, role)
	}
	return roles, nil
}

func requireUniqueUsername(tx *gorm.DB, username string, excludeID int64) error {
	var count int64
	query := tx.Model(&userModel{}).Where("username = ?", username)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: username %q already in use", domain.ErrConflict, username)
	}
	return nil
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
