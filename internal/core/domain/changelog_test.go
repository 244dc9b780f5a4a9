package domain

import (
	"errors"
	"testing"
	"time"
)

func TestChangeEventValidate(t *testing.T) {
	itemID := int64(4)

	valid := ChangeEvent{Operation: OpCreate, ChangedBy: 1, ItemID: &itemID}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	noActor := ChangeEvent{Operation: OpCreate, ItemID: &itemID}
	if err := noActor.Validate(); !errors.Is(err, ErrMissingActor) {
		t.Fatalf("expected ErrMissingActor, got %v", err)
	}

	noSubject := ChangeEvent{Operation: OpCreate, ChangedBy: 1}
	if err := noSubject.Validate(); !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject, got %v", err)
	}

	badOp := ChangeEvent{Operation: Operation("merge"), ChangedBy: 1, ItemID: &itemID}
	if err := badOp.Validate(); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestSetSubjectPicksMatchingColumn(t *testing.T) {
	kinds := []EntityKind{KindItem, KindCategory, KindDepartment, KindRole, KindUser}
	for _, kind := range kinds {
		var event ChangeEvent
		if err := event.SetSubject(kind, 9); err != nil {
			t.Fatalf("set subject %s: %v", kind, err)
		}
		if !event.HasSubject() {
			t.Fatalf("subject %s not set", kind)
		}

		count := 0
		for _, ref := range []*int64{event.ItemID, event.CategoryID, event.DepartmentID, event.RoleID, event.UserID} {
			if ref != nil {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("kind %s set %d subject columns", kind, count)
		}
	}

	var event ChangeEvent
	if err := event.SetSubject(KindItem, 0); !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject for zero id, got %v", err)
	}
	if err := event.SetSubject(EntityKind("vendor"), 3); !errors.Is(err, ErrNoSubject) {
		t.Fatalf("expected ErrNoSubject for unknown kind, got %v", err)
	}
}

func TestMutationMetaNormalize(t *testing.T) {
	meta := MutationMeta{ActorID: 1}.Normalize()
	if meta.OccurredAt.IsZero() {
		t.Fatal("normalize left zero timestamp")
	}

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	meta = MutationMeta{ActorID: 1, OccurredAt: fixed}.Normalize()
	if !meta.OccurredAt.Equal(fixed) {
		t.Fatalf("normalize overwrote explicit timestamp: %v", meta.OccurredAt)
	}
}
