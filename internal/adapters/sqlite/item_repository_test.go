package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

type itemFixture struct {
	db          *gormsqlite.DB
	items       *ItemRepository
	departments *DepartmentRepository
	categories  *CategoryRepository
	dept        domain.Department
	cat         domain.Category
}

func newItemFixture(t *testing.T) itemFixture {
	t.Helper()

	db := openTestDB(t)
	log := NewChangeLogStore(domain.DefaultChangeRegistry())
	f := itemFixture{
		db:          db,
		items:       NewItemRepository(db, log),
		departments: NewDepartmentRepository(db, log),
		categories:  NewCategoryRepository(db, log),
	}

	var err error
	f.dept, err = f.departments.Create(context.Background(), domain.Department{Name: "IT"}, testMeta(1))
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	f.cat, err = f.categories.Create(context.Background(), domain.Category{Name: "Stationery"}, testMeta(1))
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return f
}

func (f itemFixture) createItem(t *testing.T, item domain.Item) domain.Item {
	t.Helper()
	created, err := f.items.Create(context.Background(), item, testMeta(1))
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return created
}

func TestItemRepositoryCreateWritesAuditTrail(t *testing.T) {
	f := newItemFixture(t)

	item := f.createItem(t, domain.Item{
		Name:         "Pen",
		Quantity:     10,
		Unit:         domain.UnitPiece,
		DepartmentID: f.dept.ID,
	})

	events := eventsFor(t, f.db, domain.KindItem, item.ID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Operation != string(domain.OpCreate) || event.ChangedBy != 1 {
		t.Fatalf("unexpected event: %+v", event)
	}

	details := detailsFor(t, f.db, event.ID)
	if len(details) != 5 {
		t.Fatalf("expected 5 details, got %d", len(details))
	}
	byField := map[string]changeDetailModel{}
	for _, d := range details {
		byField[d.Field] = d
	}
	if d := byField["name"]; d.NewValue == nil || *d.NewValue != `"Pen"` || d.OldValue != nil {
		t.Fatalf("unexpected name detail: %+v", d)
	}
	if d := byField["categoryId"]; d.NewValue != nil {
		t.Fatalf("null categoryId should store NULL, got %q", *d.NewValue)
	}
}

func TestItemRepositoryCreateChecksReferences(t *testing.T) {
	f := newItemFixture(t)

	_, err := f.items.Create(context.Background(), domain.Item{
		Name:         "Pen",
		Quantity:     1,
		Unit:         domain.UnitPiece,
		DepartmentID: 999,
	}, testMeta(1))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing department, got %v", err)
	}

	missing := int64(999)
	_, err = f.items.Create(context.Background(), domain.Item{
		Name:         "Pen",
		Quantity:     1,
		Unit:         domain.UnitPiece,
		CategoryID:   &missing,
		DepartmentID: f.dept.ID,
	}, testMeta(1))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing category, got %v", err)
	}

	// Nothing was audited for refused creates.
	var total int64
	err = f.db.ReadTX(context.Background(), func(tx *gormsqlite.Tx) error {
		return tx.Model(&changeEventModel{}).Where("item_id IS NOT NULL").Count(&total).Error
	})
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	if total != 0 {
		t.Fatalf("refused create left %d events behind", total)
	}
}

func TestItemRepositoryUpdateRecordsDiff(t *testing.T) {
	f := newItemFixture(t)
	item := f.createItem(t, domain.Item{
		Name: "Pen", Quantity: 10, Unit: domain.UnitPiece, DepartmentID: f.dept.ID,
	})

	qty := 5
	updated, err := f.items.Update(context.Background(), item.ID, domain.ItemUpdate{Quantity: &qty}, testMeta(2))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quantity != 5 {
		t.Fatalf("quantity not applied: %+v", updated)
	}

	events := eventsFor(t, f.db, domain.KindItem, item.ID)
	if len(events) != 2 {
		t.Fatalf("expected create+update events, got %d", len(events))
	}
	event := events[1]
	if event.Operation != string(domain.OpUpdate) || event.ChangedBy != 2 {
		t.Fatalf("unexpected update event: %+v", event)
	}

	details := detailsFor(t, f.db, event.ID)
	if len(details) != 1 {
		t.Fatalf("expected a single diff, got %d", len(details))
	}
	d := details[0]
	if d.Field != "quantity" || d.OldValue == nil || *d.OldValue != "10" || d.NewValue == nil || *d.NewValue != "5" {
		t.Fatalf("unexpected diff: %+v", d)
	}
}

func TestItemRepositoryNoopUpdateLeavesNoTrail(t *testing.T) {
	f := newItemFixture(t)
	item := f.createItem(t, domain.Item{
		Name: "Pen", Quantity: 10, Unit: domain.UnitPiece, DepartmentID: f.dept.ID,
	})

	qty := 10
	name := "Pen"
	_, err := f.items.Update(context.Background(), item.ID, domain.ItemUpdate{Quantity: &qty, Name: &name}, testMeta(1))
	if err != nil {
		t.Fatalf("noop update: %v", err)
	}

	events := eventsFor(t, f.db, domain.KindItem, item.ID)
	if len(events) != 1 {
		t.Fatalf("noop update must write nothing, got %d events", len(events))
	}
}

func TestItemRepositoryCategoryTransitionsBecomeLinkUnlink(t *testing.T) {
	f := newItemFixture(t)
	item := f.createItem(t, domain.Item{
		Name: "Pen", Quantity: 1, Unit: domain.UnitPiece, DepartmentID: f.dept.ID,
	})

	// null -> id is a link event.
	patch := domain.ItemUpdate{CategoryID: domain.OptionalRef{Set: true, ID: &f.cat.ID}}
	if _, err := f.items.Update(context.Background(), item.ID, patch, testMeta(1)); err != nil {
		t.Fatalf("link update: %v", err)
	}

	events := eventsFor(t, f.db, domain.KindItem, item.ID)
	if len(events) != 2 {
		t.Fatalf("expected create+link, got %d events", len(events))
	}
	link := events[1]
	if link.Operation != string(domain.OpLink) {
		t.Fatalf("expected link event, got %q", link.Operation)
	}
	if link.Details == nil {
		t.Fatal("link event lost its relation payload")
	}

	// id -> null is an unlink event.
	patch = domain.ItemUpdate{CategoryID: domain.OptionalRef{Set: true}}
	if _, err := f.items.Update(context.Background(), item.ID, patch, testMeta(1)); err != nil {
		t.Fatalf("unlink update: %v", err)
	}

	events = eventsFor(t, f.db, domain.KindItem, item.ID)
	if len(events) != 3 {
		t.Fatalf("expected create+link+unlink, got %d events", len(events))
	}
	unlink := events[2]
	if unlink.Operation != string(domain.OpUnlink) {
		t.Fatalf("expected unlink event, got %q", unlink.Operation)
	}
	details := detailsFor(t, f.db, unlink.ID)
	if len(details) != 1 || details[0].OldValue == nil || details[0].NewValue != nil {
		t.Fatalf("unexpected unlink details: %+v", details)
	}
}

func TestItemRepositoryMixedUpdateSplitsEvents(t *testing.T) {
	f := newItemFixture(t)
	item := f.createItem(t, domain.Item{
		Name: "Pen", Quantity: 1, Unit: domain.UnitPiece, DepartmentID: f.dept.ID,
	})

	name := "Blue Pen"
	patch := domain.ItemUpdate{
		Name:       &name,
		CategoryID: domain.OptionalRef{Set: true, ID: &f.cat.ID},
	}
	if _, err := f.items.Update(context.Background(), item.ID, patch, testMeta(1)); err != nil {
		t.Fatalf("mixed update: %v", err)
	}

	events := eventsFor(t, f.db, domain.KindItem, item.ID)
	if len(events) != 3 {
		t.Fatalf("expected create+link+update, got %d events", len(events))
	}
	if events[1].Operation != string(domain.OpLink) || events[2].Operation != string(domain.OpUpdate) {
		t.Fatalf("unexpected event sequence: %q then %q", events[1].Operation, events[2].Operation)
	}

	scalarDetails := detailsFor(t, f.db, events[2].ID)
	for _, d := range scalarDetails {
		if d.Field == "categoryId" {
			t.Fatal("relation transition duplicated in the update event")
		}
	}
}

func TestItemRepositoryDelete(t *testing.T) {
	f := newItemFixture(t)
	item := f.createItem(t, domain.Item{
		Name: "Pen", Quantity: 1, Unit: domain.UnitPiece, DepartmentID: f.dept.ID,
	})

	deleted, err := f.items.Delete(context.Background(), item.ID, testMeta(1))
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}

	if _, err := f.items.Get(context.Background(), item.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted item still readable: %v", err)
	}

	events := eventsFor(t, f.db, domain.KindItem, item.ID)
	if len(events) != 2 || events[1].Operation != string(domain.OpDelete) {
		t.Fatalf("unexpected events after delete: %+v", events)
	}
	details := detailsFor(t, f.db, events[1].ID)
	if len(details) != 5 {
		t.Fatalf("delete should snapshot every field, got %d details", len(details))
	}

	// Deleting again is a no-op.
	deleted, err = f.items.Delete(context.Background(), item.ID, testMeta(1))
	if err != nil || deleted {
		t.Fatalf("second delete: deleted=%v err=%v", deleted, err)
	}
}

func TestItemRepositoryListPaginates(t *testing.T) {
	f := newItemFixture(t)
	for _, name := range []string{"Pen", "Pencil", "Stapler"} {
		f.createItem(t, domain.Item{
			Name: name, Quantity: 1, Unit: domain.UnitPiece, DepartmentID: f.dept.ID,
		})
	}

	items, total, err := f.items.List(context.Background(), domain.PageRequest{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(items) != 1 || items[0].Name != "Stapler" {
		t.Fatalf("unexpected second page: %+v", items)
	}
}
