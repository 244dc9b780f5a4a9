package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

type ItemRepository struct {
	db  *gormsqlite.DB
	log *ChangeLogStore
}

func NewItemRepository(db *gormsqlite.DB, log *ChangeLogStore) *ItemRepository {
	return &ItemRepository{db: db, log: log}
}

func (r *ItemRepository) Create(ctx context.Context, item domain.Item, meta domain.MutationMeta) (domain.Item, error) {
	meta = meta.Normalize()
	var result domain.Item

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := requireDepartment(tx.DB, item.DepartmentID); err != nil {
			return err
		}
		if item.CategoryID != nil {
			if err := requireCategory(tx.DB, *item.CategoryID); err != nil {
				return err
			}
		}

		model := itemModel{
			Name:         item.Name,
			Quantity:     item.Quantity,
			Unit:         string(item.Unit),
			CategoryID:   item.CategoryID,
			DepartmentID: item.DepartmentID,
			CreatedAt:    meta.OccurredAt,
			UpdatedAt:    meta.OccurredAt,
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert item: %w", err)
		}

		snap := domain.Snapshot{Current: itemFields(model)}
		if err := r.log.Record(tx.DB, snap, domain.OpCreate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindItem,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainItem(model)
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return result, nil
}

func (r *ItemRepository) Get(ctx context.Context, id int64) (domain.Item, error) {
	var model itemModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Item{}, domain.ErrNotFound
		}
		return domain.Item{}, fmt.Errorf("get item: %w", err)
	}
	return toDomainItem(model), nil
}

func (r *ItemRepository) List(ctx context.Context, req domain.PageRequest) ([]domain.Item, int64, error) {
	var models []itemModel
	var total int64

	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&itemModel{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("id ASC").
			Offset(req.Offset()).
			Limit(req.PageSize).
			Find(&models).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}

	items := make([]domain.Item, 0, len(models))
	for _, model := range models {
		items = append(items, toDomainItem(model))
	}
	return items, total, nil
}

func (r *ItemRepository) Update(ctx context.Context, id int64, patch domain.ItemUpdate, meta domain.MutationMeta) (domain.Item, error) {
	meta = meta.Normalize()
	var result domain.Item

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var before itemModel
		if err := tx.Where("id = ?", id).First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load item: %w", err)
		}

		after := before
		if patch.Name != nil {
			after.Name = *patch.Name
		}
		if patch.Quantity != nil {
			after.Quantity = *patch.Quantity
		}
		if patch.Unit != nil {
			after.Unit = string(*patch.Unit)
		}
		if patch.DepartmentID != nil {
			if err := requireDepartment(tx.DB, *patch.DepartmentID); err != nil {
				return err
			}
			after.DepartmentID = *patch.DepartmentID
		}
		if patch.CategoryID.Set {
			if patch.CategoryID.ID != nil {
				if err := requireCategory(tx.DB, *patch.CategoryID.ID); err != nil {
					return err
				}
			}
			after.CategoryID = patch.CategoryID.ID
		}

		beforeFields := itemFields(before)
		afterFields := itemFields(after)
		changed := changedFieldNames(beforeFields, afterFields)
		if len(changed) == 0 {
			// Nothing differs: no row touch, no audit trail.
			result = toDomainItem(before)
			return nil
		}

		after.UpdatedAt = meta.OccurredAt
		if err := tx.Save(&after).Error; err != nil {
			return fmt.Errorf("update item: %w", err)
		}

		snap := domain.Snapshot{
			Current:       afterFields,
			Previous:      beforeFields,
			ChangedFields: changed,
		}
		if err := r.log.Record(tx.DB, snap, domain.OpUpdate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindItem,
			EntityID:   after.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainItem(after)
		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}
	return result, nil
}

func (r *ItemRepository) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	meta = meta.Normalize()
	deleted := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model itemModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load item: %w", err)
		}

		if err := tx.Delete(&model).Error; err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		deleted = true

		snap := domain.Snapshot{Current: itemFields(model)}
		return r.log.Record(tx.DB, snap, domain.OpDelete, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindItem,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func requireDepartment(tx *gorm.DB, id int64) error {
	var count int64
	if err := tx.Model(&departmentModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check department: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("department %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func requireCategory(tx *gorm.DB, id int64) error {
	var count int64
	if err := tx.Model(&categoryModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
	}
	return nil
}
