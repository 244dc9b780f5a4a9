package sqlite

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

// ChangeLogStore writes change events inside the caller's transaction. Every
// repository mutation calls Record after its business write, so the audit
// trail and the business row commit or roll back together. The store itself
// holds no state between calls beyond the relation registry.
type ChangeLogStore struct {
	registry domain.ChangeRegistry
}

func NewChangeLogStore(registry domain.ChangeRegistry) *ChangeLogStore {
	return &ChangeLogStore{registry: registry}
}

// Record plans the change sets for one mutation and persists them: each
// header first, then its detail rows. Any failure propagates so the
// surrounding transaction rolls back; partial audit trails are never left
// behind. A no-op update yields an empty plan and writes nothing.
func (s *ChangeLogStore) Record(tx *gorm.DB, snap domain.Snapshot, op domain.Operation, cctx domain.ChangeContext) error {
	sets, err := domain.PlanChange(snap, op, cctx, s.registry)
	if err != nil {
		return err
	}

	for _, set := range sets {
		event := toChangeEventModel(set.Event)
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("insert change event: %w", err)
		}
		if len(set.Details) == 0 {
			continue
		}

		rows := make([]changeDetailModel, 0, len(set.Details))
		for _, d := range set.Details {
			rows = append(rows, changeDetailModel{
				ChangeEventID: event.ID,
				Field:         d.Field,
				OldValue:      d.OldValue,
				NewValue:      d.NewValue,
				DiffType:      string(d.DiffType),
				CreatedAt:     d.CreatedAt,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert change details: %w", err)
		}
	}

	return nil
}

func toChangeEventModel(e domain.ChangeEvent) changeEventModel {
	model := changeEventModel{
		Operation:    string(e.Operation),
		ChangedAt:    e.ChangedAt,
		ChangedBy:    e.ChangedBy,
		ItemID:       e.ItemID,
		CategoryID:   e.CategoryID,
		DepartmentID: e.DepartmentID,
		RoleID:       e.RoleID,
		UserID:       e.UserID,
	}
	if len(e.Details) > 0 {
		details := string(e.Details)
		model.Details = &details
	}
	return model
}
