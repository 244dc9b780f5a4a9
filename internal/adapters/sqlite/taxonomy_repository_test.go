package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

func TestDepartmentRepositoryRenameRecordsSingleDiff(t *testing.T) {
	f := newItemFixture(t)

	renamed, err := f.departments.Rename(context.Background(), f.dept.ID, "Operations", testMeta(1))
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Operations" {
		t.Fatalf("rename not applied: %+v", renamed)
	}

	events := eventsFor(t, f.db, domain.KindDepartment, f.dept.ID)
	if len(events) != 2 || events[1].Operation != string(domain.OpUpdate) {
		t.Fatalf("unexpected events: %+v", events)
	}
	details := detailsFor(t, f.db, events[1].ID)
	if len(details) != 1 || details[0].Field != "name" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if *details[0].OldValue != `"IT"` || *details[0].NewValue != `"Operations"` {
		t.Fatalf("unexpected diff values: %+v", details[0])
	}
}

func TestDepartmentRepositoryRenameToSameNameIsNoop(t *testing.T) {
	f := newItemFixture(t)

	if _, err := f.departments.Rename(context.Background(), f.dept.ID, "IT", testMeta(1)); err != nil {
		t.Fatalf("noop rename: %v", err)
	}
	events := eventsFor(t, f.db, domain.KindDepartment, f.dept.ID)
	if len(events) != 1 {
		t.Fatalf("noop rename must log nothing, got %d events", len(events))
	}
}

func TestDepartmentRepositoryRejectsDuplicateName(t *testing.T) {
	f := newItemFixture(t)

	if _, err := f.departments.Create(context.Background(), domain.Department{Name: "IT"}, testMeta(1)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
	}

	other, err := f.departments.Create(context.Background(), domain.Department{Name: "HR"}, testMeta(1))
	if err != nil {
		t.Fatalf("create second department: %v", err)
	}
	if _, err := f.departments.Rename(context.Background(), other.ID, "IT", testMeta(1)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for rename onto taken name, got %v", err)
	}
}

func TestDepartmentRepositoryDeleteBlockedByAssignedItems(t *testing.T) {
	f := newItemFixture(t)
	item := f.createItem(t, domain.Item{
		Name: "Pen", Quantity: 1, Unit: domain.UnitPiece, DepartmentID: f.dept.ID,
	})

	if _, err := f.departments.Delete(context.Background(), f.dept.ID, testMeta(1)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict while items assigned, got %v", err)
	}

	if _, err := f.items.Delete(context.Background(), item.ID, testMeta(1)); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	deleted, err := f.departments.Delete(context.Background(), f.dept.ID, testMeta(1))
	if err != nil || !deleted {
		t.Fatalf("delete after items removed: deleted=%v err=%v", deleted, err)
	}

	events := eventsFor(t, f.db, domain.KindDepartment, f.dept.ID)
	last := events[len(events)-1]
	if last.Operation != string(domain.OpDelete) {
		t.Fatalf("expected delete event, got %q", last.Operation)
	}
}

func TestCategoryRepositoryDeleteBlockedByAssignedItems(t *testing.T) {
	f := newItemFixture(t)
	f.createItem(t, domain.Item{
		Name: "Pen", Quantity: 1, Unit: domain.UnitPiece,
		CategoryID: &f.cat.ID, DepartmentID: f.dept.ID,
	})

	if _, err := f.categories.Delete(context.Background(), f.cat.ID, testMeta(1)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict while items assigned, got %v", err)
	}
}

func TestCategoryRepositoryDeleteMissingIsFalse(t *testing.T) {
	f := newItemFixture(t)

	deleted, err := f.categories.Delete(context.Background(), 999, testMeta(1))
	if err != nil || deleted {
		t.Fatalf("missing category: deleted=%v err=%v", deleted, err)
	}
}
