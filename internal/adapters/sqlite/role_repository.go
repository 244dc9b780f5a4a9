package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

// relPermission is the relation field recorded on role permission grants.
const relPermission = "permissionId"

type RoleRepository struct {
	db  *gormsqlite.DB
	log *ChangeLogStore
}

func NewRoleRepository(db *gormsqlite.DB, log *ChangeLogStore) *RoleRepository {
	return &RoleRepository{db: db, log: log}
}

func (r *RoleRepository) Create(ctx context.Context, role domain.Role, permissionIDs []int64, meta domain.MutationMeta) (domain.Role, error) {
	meta = meta.Normalize()
	var result domain.Role

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := requireUniqueName(tx.DB, &roleModel{}, role.Name, 0); err != nil {
			return err
		}

		model := roleModel{
			Name:        role.Name,
			Description: role.Description,
			CreatedAt:   meta.OccurredAt,
			UpdatedAt:   meta.OccurredAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert role: %w", err)
		}

		snap := domain.Snapshot{Current: roleFields(model)}
		if err := r.log.Record(tx.DB, snap, domain.OpCreate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindRole,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		if err := r.syncPermissions(tx.DB, model.ID, permissionIDs, meta); err != nil {
			return err
		}

		perms, err := loadRolePermissions(tx.DB, model.ID)
		if err != nil {
			return err
		}
		result = toDomainRole(model)
		result.Permissions = perms
		return nil
	})
	if err != nil {
		return domain.Role{}, err
	}
	return result, nil
}

func (r *RoleRepository) Get(ctx context.Context, id int64) (domain.Role, error) {
	var result domain.Role
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		var model roleModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		perms, err := loadRolePermissions(tx.DB, model.ID)
		if err != nil {
			return err
		}
		result = toDomainRole(model)
		result.Permissions = perms
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Role{}, domain.ErrNotFound
		}
		return domain.Role{}, fmt.Errorf("get role: %w", err)
	}
	return result, nil
}

func (r *RoleRepository) List(ctx context.Context, req domain.PageRequest) ([]domain.Role, int64, error) {
	var roles []domain.Role
	var total int64

	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&roleModel{}).Count(&total).Error; err != nil {
			return err
		}
		var models []roleModel
		if err := tx.Order("id ASC").Offset(req.Offset()).Limit(req.PageSize).Find(&models).Error; err != nil {
			return err
		}
		roles = make([]domain.Role, 0, len(models))
		for _, model := range models {
			perms, err := loadRolePermissions(tx.DB, model.ID)
			if err != nil {
				return err
			}
			role := toDomainRole(model)
			role.Permissions = perms
			roles = append(roles, role)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	return roles, total, nil
}

func (r *RoleRepository) Update(ctx context.Context, id int64, patch domain.RoleUpdate, permissionIDs []int64, meta domain.MutationMeta) (domain.Role, error) {
	meta = meta.Normalize()
	var result domain.Role

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var before roleModel
		if err := tx.Where("id = ?", id).First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load role: %w", err)
		}

		after := before
		if patch.Name != nil {
			after.Name = *patch.Name
		}
		if patch.Description != nil {
			after.Description = *patch.Description
		}

		changed := changedFieldNames(roleFields(before), roleFields(after))
		if len(changed) > 0 {
			if after.Name != before.Name {
				if err := requireUniqueName(tx.DB, &roleModel{}, after.Name, id); err != nil {
					return err
				}
			}
			after.UpdatedAt = meta.OccurredAt
			if err := tx.Save(&after).Error; err != nil {
				return fmt.Errorf("update role: %w", err)
			}

			snap := domain.Snapshot{
				Current:       roleFields(after),
				Previous:      roleFields(before),
				ChangedFields: changed,
			}
			if err := r.log.Record(tx.DB, snap, domain.OpUpdate, domain.ChangeContext{
				ActorID:    meta.ActorID,
				Kind:       domain.KindRole,
				EntityID:   after.ID,
				OccurredAt: meta.OccurredAt,
			}); err != nil {
				return err
			}
		}

		if permissionIDs != nil {
			if err := r.syncPermissions(tx.DB, id, permissionIDs, meta); err != nil {
				return err
			}
		}

		perms, err := loadRolePermissions(tx.DB, id)
		if err != nil {
			return err
		}
		result = toDomainRole(after)
		result.Permissions = perms
		return nil
	})
	if err != nil {
		return domain.Role{}, err
	}
	return result, nil
}

func (r *RoleRepository) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	meta = meta.Normalize()
	deleted := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model roleModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load role: %w", err)
		}

		var assigned int64
		if err := tx.Model(&userRoleModel{}).Where("role_id = ?", id).Count(&assigned).Error; err != nil {
			return fmt.Errorf("count role members: %w", err)
		}
		if assigned > 0 {
			return fmt.Errorf("%w: role is assigned to users", domain.ErrConflict)
		}

		if err := tx.Where("role_id = ?", id).Delete(&rolePermissionModel{}).Error; err != nil {
			return fmt.Errorf("clear role permissions: %w", err)
		}
		if err := tx.Delete(&model).Error; err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		deleted = true

		snap := domain.Snapshot{Current: roleFields(model)}
		return r.log.Record(tx.DB, snap, domain.OpDelete, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindRole,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *RoleRepository) SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64, meta domain.MutationMeta) error {
	meta = meta.Normalize()
	return r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model roleModel
		if err := tx.Where("id = ?", roleID).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load role: %w", err)
		}
		return r.syncPermissions(tx.DB, roleID, permissionIDs, meta)
	})
}

// EnsureRole creates the role by name unless it exists. Used for bootstrap.
func (r *RoleRepository) EnsureRole(ctx context.Context, role domain.Role, meta domain.MutationMeta) (domain.Role, bool, error) {
	meta = meta.Normalize()
	var result domain.Role
	created := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var existing roleModel
		err := tx.Where("name = ?", role.Name).First(&existing).Error
		if err == nil {
			perms, err := loadRolePermissions(tx.DB, existing.ID)
			if err != nil {
				return err
			}
			result = toDomainRole(existing)
			result.Permissions = perms
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("find role: %w", err)
		}

		model := roleModel{
			Name:        role.Name,
			Description: role.Description,
			CreatedAt:   meta.OccurredAt,
			UpdatedAt:   meta.OccurredAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert role: %w", err)
		}

		snap := domain.Snapshot{Current: roleFields(model)}
		if err := r.log.Record(tx.DB, snap, domain.OpCreate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindRole,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainRole(model)
		created = true
		return nil
	})
	if err != nil {
		return domain.Role{}, false, err
	}
	return result, created, nil
}

// EnsurePermissions inserts missing catalog entries by name. The permission
// catalog is fixed reference data and is not change-logged.
func (r *RoleRepository) EnsurePermissions(ctx context.Context, perms []domain.Permission) ([]domain.Permission, error) {
	var result []domain.Permission

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		result = make([]domain.Permission, 0, len(perms))
		for _, perm := range perms {
			var model permissionModel
			err := tx.Where("name = ?", perm.Name).First(&model).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				model = permissionModel{Name: perm.Name, Description: perm.Description}
				if err := tx.Create(&model).Error; err != nil {
					return fmt.Errorf("insert permission: %w", err)
				}
			} else if err != nil {
				return fmt.Errorf("find permission: %w", err)
			}
			result = append(result, toDomainPermission(model))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// syncPermissions reconciles the role's grants against the wanted set,
// recording a link or unlink event per transition on the role subject.
func (r *RoleRepository) syncPermissions(tx *gorm.DB, roleID int64, wanted []int64, meta domain.MutationMeta) error {
	var current []rolePermissionModel
	if err := tx.Where("role_id = ?", roleID).Find(&current).Error; err != nil {
		return fmt.Errorf("load role permissions: %w", err)
	}

	have := make(map[int64]bool, len(current))
	for _, m := range current {
		have[m.PermissionID] = true
	}
	want := make(map[int64]bool, len(wanted))
	for _, id := range wanted {
		want[id] = true
	}

	for _, permID := range sortedIDs(want) {
		if have[permID] {
			continue
		}
		var perm permissionModel
		if err := tx.Where("id = ?", permID).First(&perm).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: permission %d", domain.ErrNotFound, permID)
			}
			return fmt.Errorf("load permission: %w", err)
		}
		if err := tx.Create(&rolePermissionModel{RoleID: roleID, PermissionID: permID}).Error; err != nil {
			return fmt.Errorf("grant permission: %w", err)
		}
		err := r.log.Record(tx, domain.Snapshot{}, domain.OpLink, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindRole,
			EntityID:   roleID,
			Relation:   relPermission,
			RelatedID:  permID,
			OccurredAt: meta.OccurredAt,
		})
		if err != nil {
			return err
		}
	}

	for _, permID := range sortedIDs(have) {
		if want[permID] {
			continue
		}
		if err := tx.Where("role_id = ? AND permission_id = ?", roleID, permID).Delete(&rolePermissionModel{}).Error; err != nil {
			return fmt.Errorf("revoke permission: %w", err)
		}
		err := r.log.Record(tx, domain.Snapshot{}, domain.OpUnlink, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindRole,
			EntityID:   roleID,
			Relation:   relPermission,
			RelatedID:  permID,
			OccurredAt: meta.OccurredAt,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func loadRolePermissions(tx *gorm.DB, roleID int64) ([]domain.Permission, error) {
	var models []permissionModel
	err := tx.
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}

	perms := make([]domain.Permission, 0, len(models))
	for _, model := range models {
		perms = append(perms, toDomainPermission(model))
	}
	return perms, nil
}
