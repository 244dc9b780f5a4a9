package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/migrations"
)

func openTestDB(t *testing.T) *gormsqlite.DB {
	t.Helper()

	db, err := gormsqlite.Open(filepath.Join(t.TempDir(), "stockapi-test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("resolve writer sql db: %v", err)
	}
	if err := migrations.Up(context.Background(), sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return db
}

func testMeta(actor int64) domain.MutationMeta {
	return domain.MutationMeta{ActorID: actor}
}

// eventsFor loads the change events whose subject is the given entity, in
// insertion order.
func eventsFor(t *testing.T, db *gormsqlite.DB, kind domain.EntityKind, id int64) []changeEventModel {
	t.Helper()

	column := map[domain.EntityKind]string{
		domain.KindItem:       "item_id",
		domain.KindCategory:   "category_id",
		domain.KindDepartment: "department_id",
		domain.KindRole:       "role_id",
		domain.KindUser:       "user_id",
	}[kind]

	var events []changeEventModel
	err := db.ReadTX(context.Background(), func(tx *gormsqlite.Tx) error {
		return tx.Where(column+" = ?", id).Order("id ASC").Find(&events).Error
	})
	if err != nil {
		t.Fatalf("load change events: %v", err)
	}
	return events
}

func detailsFor(t *testing.T, db *gormsqlite.DB, eventID int64) []changeDetailModel {
	t.Helper()

	var details []changeDetailModel
	err := db.ReadTX(context.Background(), func(tx *gormsqlite.Tx) error {
		return tx.Where("change_event_id = ?", eventID).Order("id ASC").Find(&details).Error
	})
	if err != nil {
		t.Fatalf("load change details: %v", err)
	}
	return details
}
