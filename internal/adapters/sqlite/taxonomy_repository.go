package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

type DepartmentRepository struct {
	db  *gormsqlite.DB
	log *ChangeLogStore
}

func NewDepartmentRepository(db *gormsqlite.DB, log *ChangeLogStore) *DepartmentRepository {
	return &DepartmentRepository{db: db, log: log}
}

func (r *DepartmentRepository) Create(ctx context.Context, dept domain.Department, meta domain.MutationMeta) (domain.Department, error) {
	meta = meta.Normalize()
	var result domain.Department

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := requireUniqueName(tx.DB, &departmentModel{}, dept.Name, 0); err != nil {
			return err
		}

		model := departmentModel{Name: dept.Name, CreatedAt: meta.OccurredAt, UpdatedAt: meta.OccurredAt}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert department: %w", err)
		}

		snap := domain.Snapshot{Current: departmentFields(model)}
		if err := r.log.Record(tx.DB, snap, domain.OpCreate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindDepartment,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainDepartment(model)
		return nil
	})
	if err != nil {
		return domain.Department{}, err
	}
	return result, nil
}

func (r *DepartmentRepository) Get(ctx context.Context, id int64) (domain.Department, error) {
	var model departmentModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Department{}, domain.ErrNotFound
		}
		return domain.Department{}, fmt.Errorf("get department: %w", err)
	}
	return toDomainDepartment(model), nil
}

func (r *DepartmentRepository) List(ctx context.Context, req domain.PageRequest) ([]domain.Department, int64, error) {
	var models []departmentModel
	var total int64

	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&departmentModel{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("id ASC").Offset(req.Offset()).Limit(req.PageSize).Find(&models).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	depts := make([]domain.Department, 0, len(models))
	for _, model := range models {
		depts = append(depts, toDomainDepartment(model))
	}
	return depts, total, nil
}

func (r *DepartmentRepository) Rename(ctx context.Context, id int64, name string, meta domain.MutationMeta) (domain.Department, error) {
	meta = meta.Normalize()
	var result domain.Department

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var before departmentModel
		if err := tx.Where("id = ?", id).First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load department: %w", err)
		}

		if before.Name == name {
			result = toDomainDepartment(before)
			return nil
		}
		if err := requireUniqueName(tx.DB, &departmentModel{}, name, id); err != nil {
			return err
		}

		after := before
		after.Name = name
		after.UpdatedAt = meta.OccurredAt
		if err := tx.Save(&after).Error; err != nil {
			return fmt.Errorf("rename department: %w", err)
		}

		snap := domain.Snapshot{
			Current:       departmentFields(after),
			Previous:      departmentFields(before),
			ChangedFields: []string{"name"},
		}
		if err := r.log.Record(tx.DB, snap, domain.OpUpdate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindDepartment,
			EntityID:   after.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainDepartment(after)
		return nil
	})
	if err != nil {
		return domain.Department{}, err
	}
	return result, nil
}

func (r *DepartmentRepository) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	meta = meta.Normalize()
	deleted := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model departmentModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load department: %w", err)
		}

		var assigned int64
		if err := tx.Model(&itemModel{}).Where("department_id = ?", id).Count(&assigned).Error; err != nil {
			return fmt.Errorf("count assigned items: %w", err)
		}
		if assigned > 0 {
			return fmt.Errorf("%w: department has assigned items", domain.ErrConflict)
		}

		if err := tx.Delete(&model).Error; err != nil {
			return fmt.Errorf("delete department: %w", err)
		}
		deleted = true

		snap := domain.Snapshot{Current: departmentFields(model)}
		return r.log.Record(tx.DB, snap, domain.OpDelete, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindDepartment,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

type CategoryRepository struct {
	db  *gormsqlite.DB
	log *ChangeLogStore
}

func NewCategoryRepository(db *gormsqlite.DB, log *ChangeLogStore) *CategoryRepository {
	return &CategoryRepository{db: db, log: log}
}

func (r *CategoryRepository) Create(ctx context.Context, cat domain.Category, meta domain.MutationMeta) (domain.Category, error) {
	meta = meta.Normalize()
	var result domain.Category

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := requireUniqueName(tx.DB, &categoryModel{}, cat.Name, 0); err != nil {
			return err
		}

		model := categoryModel{Name: cat.Name, CreatedAt: meta.OccurredAt, UpdatedAt: meta.OccurredAt}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert category: %w", err)
		}

		snap := domain.Snapshot{Current: categoryFields(model)}
		if err := r.log.Record(tx.DB, snap, domain.OpCreate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindCategory,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainCategory(model)
		return nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return result, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id int64) (domain.Category, error) {
	var model categoryModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, domain.ErrNotFound
		}
		return domain.Category{}, fmt.Errorf("get category: %w", err)
	}
	return toDomainCategory(model), nil
}

func (r *CategoryRepository) List(ctx context.Context, req domain.PageRequest) ([]domain.Category, int64, error) {
	var models []categoryModel
	var total int64

	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		if err := tx.Model(&categoryModel{}).Count(&total).Error; err != nil {
			return err
		}
		return tx.Order("id ASC").Offset(req.Offset()).Limit(req.PageSize).Find(&models).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}

	cats := make([]domain.Category, 0, len(models))
	for _, model := range models {
		cats = append(cats, toDomainCategory(model))
	}
	return cats, total, nil
}

func (r *CategoryRepository) Rename(ctx context.Context, id int64, name string, meta domain.MutationMeta) (domain.Category, error) {
	meta = meta.Normalize()
	var result domain.Category

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var before categoryModel
		if err := tx.Where("id = ?", id).First(&before).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load category: %w", err)
		}

		if before.Name == name {
			result = toDomainCategory(before)
			return nil
		}
		if err := requireUniqueName(tx.DB, &categoryModel{}, name, id); err != nil {
			return err
		}

		after := before
		after.Name = name
		after.UpdatedAt = meta.OccurredAt
		if err := tx.Save(&after).Error; err != nil {
			return fmt.Errorf("rename category: %w", err)
		}

		snap := domain.Snapshot{
			Current:       categoryFields(after),
			Previous:      categoryFields(before),
			ChangedFields: []string{"name"},
		}
		if err := r.log.Record(tx.DB, snap, domain.OpUpdate, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindCategory,
			EntityID:   after.ID,
			OccurredAt: meta.OccurredAt,
		}); err != nil {
			return err
		}

		result = toDomainCategory(after)
		return nil
	})
	if err != nil {
		return domain.Category{}, err
	}
	return result, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	meta = meta.Normalize()
	deleted := false

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var model categoryModel
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("load category: %w", err)
		}

		var assigned int64
		if err := tx.Model(&itemModel{}).Where("category_id = ?", id).Count(&assigned).Error; err != nil {
			return fmt.Errorf("count assigned items: %w", err)
		}
		if assigned > 0 {
			return fmt.Errorf("%w: category has assigned items", domain.ErrConflict)
		}

		if err := tx.Delete(&model).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		deleted = true

		snap := domain.Snapshot{Current: categoryFields(model)}
		return r.log.Record(tx.DB, snap, domain.OpDelete, domain.ChangeContext{
			ActorID:    meta.ActorID,
			Kind:       domain.KindCategory,
			EntityID:   model.ID,
			OccurredAt: meta.OccurredAt,
		})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// requireUniqueName rejects a name already used by a live row of the given
// model, excluding excludeID (0 for creates).
func requireUniqueName(tx *gorm.DB, model any, name string, excludeID int64) error {
	var count int64
	query := tx.Model(model).Where("name = ?", name)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: name %q already in use", domain.ErrConflict, name)
	}
	return nil
}
