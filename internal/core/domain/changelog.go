package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Operation classifies a recorded mutation. Link and unlink are refinements of
// update: a relationship field transitioned to or from a populated value.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpLink   Operation = "link"
	OpUnlink Operation = "unlink"
)

func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete, OpLink, OpUnlink:
		return true
	}
	return false
}

// EntityKind names a tracked entity type. Each kind maps to exactly one
// subject column on ChangeEvent.
type EntityKind string

const (
	KindItem       EntityKind = "item"
	KindCategory   EntityKind = "category"
	KindDepartment EntityKind = "department"
	KindRole       EntityKind = "role"
	KindUser       EntityKind = "user"
)

var (
	ErrMissingActor     = errors.New("acting user id required for change log")
	ErrNoSubject        = errors.New("change event needs at least one subject association")
	ErrInvalidOperation = errors.New("invalid change operation")
)

// ChangeEvent is the append-only audit header: who performed which kind of
// mutation on which entity, and when. Exactly one subject reference is
// populated; the rest stay null.
type ChangeEvent struct {
	ID           int64
	Operation    Operation
	ChangedAt    time.Time
	ChangedBy    int64
	ItemID       *int64
	CategoryID   *int64
	DepartmentID *int64
	RoleID       *int64
	UserID       *int64
	// Details carries free-form relation metadata for link/unlink events.
	Details json.RawMessage
}

// SetSubject populates the subject column matching kind.
func (e *ChangeEvent) SetSubject(kind EntityKind, id int64) error {
	if id <= 0 {
		return ErrNoSubject
	}
	switch kind {
	case KindItem:
		e.ItemID = &id
	case KindCategory:
		e.CategoryID = &id
	case KindDepartment:
		e.DepartmentID = &id
	case KindRole:
		e.RoleID = &id
	case KindUser:
		e.UserID = &id
	default:
		return ErrNoSubject
	}
	return nil
}

func (e ChangeEvent) HasSubject() bool {
	return e.ItemID != nil || e.CategoryID != nil || e.DepartmentID != nil ||
		e.RoleID != nil || e.UserID != nil
}

func (e ChangeEvent) Validate() error {
	if !e.Operation.Valid() {
		return ErrInvalidOperation
	}
	if e.ChangedBy <= 0 {
		return ErrMissingActor
	}
	if !e.HasSubject() {
		return ErrNoSubject
	}
	return nil
}

// ChangeDetail is one field-level before/after pair belonging to a
// ChangeEvent. Values are stored JSON-encoded; a nil pointer means SQL NULL.
type ChangeDetail struct {
	ID            int64
	ChangeEventID int64
	Field         string
	OldValue      *string
	NewValue      *string
	DiffType      Operation
	CreatedAt     time.Time
}

// ChangeSet pairs one header with the detail rows written under it. All rows
// of a set commit or roll back together with the triggering mutation.
type ChangeSet struct {
	Event   ChangeEvent
	Details []ChangeDetail
}

// MutationMeta travels with every business write and identifies the actor.
type MutationMeta struct {
	ActorID    int64
	OccurredAt time.Time
}

func (m MutationMeta) Normalize() MutationMeta {
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}
	return m
}
