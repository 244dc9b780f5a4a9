package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Snapshot is the read-only view of a mutated entity supplied by the write
// path: current field values, pre-mutation values for changed fields, and the
// names the caller considers changed. Field names use the API's camelCase
// convention (name, quantity, categoryId, ...). The primary key is never part
// of a snapshot.
type Snapshot struct {
	Current       map[string]any
	Previous      map[string]any
	ChangedFields []string
}

// Prev returns the pre-mutation value of a field, falling back to the current
// value for fields that did not change.
func (s Snapshot) Prev(name string) any {
	if v, ok := s.Previous[name]; ok {
		return v
	}
	return s.Current[name]
}

// ChangeContext identifies the mutation being recorded: the acting user, the
// subject entity, and, for explicit link/unlink operations, the relation field
// and the id on the far side.
type ChangeContext struct {
	ActorID    int64
	Kind       EntityKind
	EntityID   int64
	Relation   string
	RelatedID  any
	OccurredAt time.Time
}

// ChangeRegistry declares, per entity kind, which snapshot fields are
// relationship references. Declared names replace the old "ends with Id"
// string heuristic, so the primary key and incidental *Id scalars never
// classify as relations.
type ChangeRegistry struct {
	relations map[EntityKind][]string
}

func NewChangeRegistry(relations map[EntityKind][]string) ChangeRegistry {
	copied := make(map[EntityKind][]string, len(relations))
	for kind, fields := range relations {
		copied[kind] = append([]string(nil), fields...)
	}
	return ChangeRegistry{relations: copied}
}

// DefaultChangeRegistry covers the built-in schema: items reference a
// category and a department. Many-to-many memberships (user/role,
// role/permission) go through explicit link/unlink operations instead.
func DefaultChangeRegistry() ChangeRegistry {
	return NewChangeRegistry(map[EntityKind][]string{
		KindItem: {"categoryId", "departmentId"},
	})
}

func (r ChangeRegistry) Relations(kind EntityKind) []string {
	return r.relations[kind]
}

func (r ChangeRegistry) IsRelation(kind EntityKind, field string) bool {
	for _, f := range r.relations[kind] {
		if f == field {
			return true
		}
	}
	return false
}

// PlanChange computes the change sets to persist for one mutation. It is pure:
// the write path executes the returned plan inside its own transaction.
//
// An update that changes nothing returns an empty plan and nothing is written.
// When an update touches registered relationship fields, each transition gets
// its own link/unlink event with a single detail row, and any remaining scalar
// diffs land in one plain update event.
func PlanChange(snap Snapshot, op Operation, cctx ChangeContext, reg ChangeRegistry) ([]ChangeSet, error) {
	if cctx.ActorID <= 0 {
		return nil, ErrMissingActor
	}
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}

	at := cctx.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	switch op {
	case OpCreate, OpDelete:
		return planFullSnapshot(snap, op, cctx, at)
	case OpLink, OpUnlink:
		return planRelation(snap, op, cctx, at)
	default:
		return planUpdate(snap, cctx, at, reg)
	}
}

// planFullSnapshot records every field of the row: creates diff against a
// nonexistent prior state, deletes mirror it.
func planFullSnapshot(snap Snapshot, op Operation, cctx ChangeContext, at time.Time) ([]ChangeSet, error) {
	details := make([]ChangeDetail, 0, len(snap.Current))
	for _, field := range sortedFields(snap.Current) {
		encoded := encodeValue(snap.Current[field])
		d := ChangeDetail{Field: field, DiffType: op, CreatedAt: at}
		if op == OpCreate {
			d.NewValue = encoded
		} else {
			d.OldValue = encoded
		}
		details = append(details, d)
	}

	event, err := newChangeEvent(op, cctx, at, nil)
	if err != nil {
		return nil, err
	}
	return []ChangeSet{{Event: event, Details: details}}, nil
}

// planRelation records an explicit association change (e.g. role granted to a
// user) as a single-detail link or unlink event.
func planRelation(snap Snapshot, op Operation, cctx ChangeContext, at time.Time) ([]ChangeSet, error) {
	if cctx.Relation == "" {
		return nil, Validationf("relation field required for %s", op)
	}

	d := ChangeDetail{Field: cctx.Relation, DiffType: op, CreatedAt: at}
	related := cctx.RelatedID
	if op == OpLink {
		d.NewValue = encodeValue(related)
	} else {
		old := snap.Prev(cctx.Relation)
		if old == nil {
			old = related
		}
		d.OldValue = encodeValue(old)
		related = nil
	}

	event, err := newChangeEvent(op, cctx, at, relationPayload(cctx.Relation, related))
	if err != nil {
		return nil, err
	}
	return []ChangeSet{{Event: event, Details: []ChangeDetail{d}}}, nil
}

func planUpdate(snap Snapshot, cctx ChangeContext, at time.Time, reg ChangeRegistry) ([]ChangeSet, error) {
	var sets []ChangeSet

	// Relationship transitions first, one event per changed relation field.
	// Transition direction follows the current value: null means the
	// relationship was severed, anything else means it was established.
	relChanged := map[string]bool{}
	for _, field := range snap.ChangedFields {
		if !reg.IsRelation(cctx.Kind, field) || relChanged[field] {
			continue
		}
		relChanged[field] = true

		cur := snap.Current[field]
		d := ChangeDetail{Field: field, CreatedAt: at}
		var op Operation
		if encodeValue(cur) == nil {
			op = OpUnlink
			d.OldValue = encodeValue(snap.Prev(field))
			cur = nil
		} else {
			op = OpLink
			d.NewValue = encodeValue(cur)
		}
		d.DiffType = op

		event, err := newChangeEvent(op, cctx, at, relationPayload(field, cur))
		if err != nil {
			return nil, err
		}
		sets = append(sets, ChangeSet{Event: event, Details: []ChangeDetail{d}})
	}

	// Scalar diffs for everything else. Fields already covered by a
	// link/unlink event above are excluded so transitions are not recorded
	// twice.
	var details []ChangeDetail
	for _, field := range sortedFields(snap.Current) {
		if relChanged[field] {
			continue
		}
		oldEnc := encodeValue(snap.Prev(field))
		newEnc := encodeValue(snap.Current[field])
		if encodedEqual(oldEnc, newEnc) {
			continue
		}
		details = append(details, ChangeDetail{
			Field:     field,
			OldValue:  oldEnc,
			NewValue:  newEnc,
			DiffType:  OpUpdate,
			CreatedAt: at,
		})
	}

	if len(details) > 0 {
		event, err := newChangeEvent(OpUpdate, cctx, at, nil)
		if err != nil {
			return nil, err
		}
		sets = append(sets, ChangeSet{Event: event, Details: details})
	}

	// No diffs at all: a no-op save leaves no trail.
	return sets, nil
}

func newChangeEvent(op Operation, cctx ChangeContext, at time.Time, payload json.RawMessage) (ChangeEvent, error) {
	event := ChangeEvent{
		Operation: op,
		ChangedAt: at,
		ChangedBy: cctx.ActorID,
		Details:   payload,
	}
	if err := event.SetSubject(cctx.Kind, cctx.EntityID); err != nil {
		return ChangeEvent{}, err
	}
	return event, nil
}

func relationPayload(relation string, relatedID any) json.RawMessage {
	payload, err := json.Marshal(map[string]any{
		"relation":  relation,
		"relatedId": relatedID,
	})
	if err != nil {
		return nil
	}
	return payload
}

// encodeValue serializes a snapshot value for storage. Nil (including JSON
// null after encoding, which covers typed nil pointers) maps to SQL NULL.
func encodeValue(v any) *string {
	if v == nil {
		return nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(encoded)
	if s == "null" {
		return nil
	}
	return &s
}

func encodedEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortedFields(m map[string]any) []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
