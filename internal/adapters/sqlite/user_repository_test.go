package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

type userFixture struct {
	db    *gormsqlite.DB
	users *UserRepository
	roles *RoleRepository
}

func newUserFixture(t *testing.T) userFixture {
	t.Helper()
	db := openTestDB(t)
	log := NewChangeLogStore(domain.DefaultChangeRegistry())
	return userFixture{
		db:    db,
		users: NewUserRepository(db, log),
		roles: NewRoleRepository(db, log),
	}
}

func TestUserRepositoryCreateWithRolesLogsMemberships(t *testing.T) {
	f := newUserFixture(t)

	role, err := f.roles.Create(context.Background(), domain.Role{Name: "editor"}, nil, testMeta(1))
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	user, err := f.users.Create(context.Background(), domain.User{
		Username: "alice", PasswordHash: "hashed",
	}, []int64{role.ID}, testMeta(1))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(user.Roles) != 1 || user.Roles[0].ID != role.ID {
		t.Fatalf("role not attached: %+v", user.Roles)
	}

	events := eventsFor(t, f.db, domain.KindUser, user.ID)
	if len(events) != 2 {
		t.Fatalf("expected create+link events, got %d", len(events))
	}
	if events[0].Operation != string(domain.OpCreate) || events[1].Operation != string(domain.OpLink) {
		t.Fatalf("unexpected sequence: %q then %q", events[0].Operation, events[1].Operation)
	}

	var payload struct {
		Relation  string `json:"relation"`
		RelatedID int64  `json:"relatedId"`
	}
	if events[1].Details == nil {
		t.Fatal("link event has no payload")
	}
	if err := json.Unmarshal([]byte(*events[1].Details), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Relation != "roleId" || payload.RelatedID != role.ID {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestUserRepositorySetRolesDiffsMemberships(t *testing.T) {
	f := newUserFixture(t)

	editor, err := f.roles.Create(context.Background(), domain.Role{Name: "editor"}, nil, testMeta(1))
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	viewer, err := f.roles.Create(context.Background(), domain.Role{Name: "viewer"}, nil, testMeta(1))
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	user, err := f.users.Create(context.Background(), domain.User{
		Username: "alice", PasswordHash: "hashed",
	}, []int64{editor.ID}, testMeta(1))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := f.users.SetRoles(context.Background(), user.ID, []int64{viewer.ID}, testMeta(1)); err != nil {
		t.Fatalf("set roles: %v", err)
	}

	got, err := f.users.Get(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if len(got.Roles) != 1 || got.Roles[0].ID != viewer.ID {
		t.Fatalf("membership not reconciled: %+v", got.Roles)
	}

	events := eventsFor(t, f.db, domain.KindUser, user.ID)
	// create, link editor, link viewer, unlink editor.
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[2].Operation != string(domain.OpLink) || events[3].Operation != string(domain.OpUnlink) {
		t.Fatalf("unexpected tail events: %q, %q", events[2].Operation, events[3].Operation)
	}
	if err := f.users.SetRoles(context.Background(), user.ID, []int64{viewer.ID}, testMeta(1)); err != nil {
		t.Fatalf("idempotent set roles: %v", err)
	}
	if again := eventsFor(t, f.db, domain.KindUser, user.ID); len(again) != 4 {
		t.Fatalf("unchanged membership logged %d extra events", len(again)-4)
	}
}

func TestUserRepositorySetRolesRejectsUnknownRole(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.users.Create(context.Background(), domain.User{
		Username: "alice", PasswordHash: "hashed",
	}, nil, testMeta(1))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	err = f.users.SetRoles(context.Background(), user.ID, []int64{999}, testMeta(1))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Failed sync rolls back without partial membership events.
	events := eventsFor(t, f.db, domain.KindUser, user.ID)
	if len(events) != 1 {
		t.Fatalf("rollback left %d events", len(events))
	}
}

func TestUserRepositoryUpdateSkipsAuditWhenNothingChanges(t *testing.T) {
	f := newUserFixture(t)

	user, err := f.users.Create(context.Background(), domain.User{
		Username: "alice", PasswordHash: "hashed",
	}, nil, testMeta(1))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	same := "alice"
	if _, err := f.users.Update(context.Background(), user.ID, domain.UserUpdate{Username: &same}, nil, testMeta(1)); err != nil {
		t.Fatalf("noop update: %v", err)
	}
	events := eventsFor(t, f.db, domain.KindUser, user.ID)
	if len(events) != 1 {
		t.Fatalf("noop update logged %d extra events", len(events)-1)
	}

	renamed := "alice2"
	if _, err := f.users.Update(context.Background(), user.ID, domain.UserUpdate{Username: &renamed}, nil, testMeta(1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	events = eventsFor(t, f.db, domain.KindUser, user.ID)
	if len(events) != 2 || events[1].Operation != string(domain.OpUpdate) {
		t.Fatalf("unexpected events after rename: %+v", events)
	}
}

func TestUserRepositoryEnsureUserSelfAttributes(t *testing.T) {
	f := newUserFixture(t)

	admin, created, err := f.users.EnsureUser(context.Background(), "admin", "hashed")
	if err != nil || !created {
		t.Fatalf("ensure user: created=%v err=%v", created, err)
	}

	events := eventsFor(t, f.db, domain.KindUser, admin.ID)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ChangedBy != admin.ID {
		t.Fatalf("bootstrap create attributed to %d, want %d", events[0].ChangedBy, admin.ID)
	}

	again, created, err := f.users.EnsureUser(context.Background(), "admin", "other-hash")
	if err != nil || created {
		t.Fatalf("second ensure: created=%v err=%v", created, err)
	}
	if again.ID != admin.ID {
		t.Fatalf("ensure returned a different user: %d vs %d", again.ID, admin.ID)
	}
	if after := eventsFor(t, f.db, domain.KindUser, admin.ID); len(after) != 1 {
		t.Fatalf("idempotent ensure logged %d extra events", len(after)-1)
	}
}

func TestRoleRepositoryPermissionGrantsLogged(t *testing.T) {
	f := newUserFixture(t)

	perms, err := f.roles.EnsurePermissions(context.Background(), []domain.Permission{
		{Name: "create:items"}, {Name: "delete:items"},
	})
	if err != nil {
		t.Fatalf("ensure permissions: %v", err)
	}

	role, err := f.roles.Create(context.Background(), domain.Role{Name: "editor"},
		[]int64{perms[0].ID, perms[1].ID}, testMeta(1))
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if len(role.Permissions) != 2 {
		t.Fatalf("permissions not attached: %+v", role.Permissions)
	}

	events := eventsFor(t, f.db, domain.KindRole, role.ID)
	// create plus two links.
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	if err := f.roles.SetPermissions(context.Background(), role.ID, []int64{perms[0].ID}, testMeta(1)); err != nil {
		t.Fatalf("set permissions: %v", err)
	}
	events = eventsFor(t, f.db, domain.KindRole, role.ID)
	if len(events) != 4 || events[3].Operation != string(domain.OpUnlink) {
		t.Fatalf("expected trailing unlink, got %+v", events)
	}
}

func TestRoleRepositoryDeleteBlockedWhileAssigned(t *testing.T) {
	f := newUserFixture(t)

	role, err := f.roles.Create(context.Background(), domain.Role{Name: "editor"}, nil, testMeta(1))
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	user, err := f.users.Create(context.Background(), domain.User{
		Username: "alice", PasswordHash: "hashed",
	}, []int64{role.ID}, testMeta(1))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := f.roles.Delete(context.Background(), role.ID, testMeta(1)); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := f.users.SetRoles(context.Background(), user.ID, nil, testMeta(1)); err != nil {
		t.Fatalf("clear roles: %v", err)
	}
	deleted, err := f.roles.Delete(context.Background(), role.ID, testMeta(1))
	if err != nil || !deleted {
		t.Fatalf("delete after unassign: deleted=%v err=%v", deleted, err)
	}
}

func TestRoleRepositoryEnsurePermissionsIdempotent(t *testing.T) {
	f := newUserFixture(t)

	first, err := f.roles.EnsurePermissions(context.Background(), []domain.Permission{{Name: "create:items"}})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := f.roles.EnsurePermissions(context.Background(), []domain.Permission{{Name: "create:items"}})
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("permission duplicated: %d vs %d", first[0].ID, second[0].ID)
	}
}

func TestUserRepositoryFindByUsername(t *testing.T) {
	f := newUserFixture(t)

	if _, err := f.users.FindByUsername(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	created, err := f.users.Create(context.Background(), domain.User{
		Username: "alice", PasswordHash: "hashed",
	}, nil, testMeta(1))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	found, err := f.users.FindByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ID != created.ID || found.PasswordHash != "hashed" {
		t.Fatalf("unexpected user: %+v", found)
	}
}
