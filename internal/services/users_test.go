package services

import (
	"context"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestGuard(t *testing.T) {
	var g Guard
	admin := core.User{ID: 1, Role: core.RoleAdmin, Active: true}
	user := core.User{ID: 2, Role: core.RoleUser, Active: true}

	if err := g.Owned(user, 2, "account", 10); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	wantErr(t, g.Owned(user, 1, "account", 10), core.ErrNotFound)
	wantErr(t, g.Owned(core.User{}, 0, "account", 10), core.ErrNotFound)

	if err := g.RequireAdmin(admin); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}
	wantErr(t, g.RequireAdmin(user), core.ErrForbidden)

	wantErr(t, g.CanDeleteUser(admin, 1), core.ErrSelfDeletion)
	if err := g.CanDeleteUser(admin, 2); err != nil {
		t.Fatalf("CanDeleteUser: %v", err)
	}

	wantErr(t, g.RequireActive(core.User{Username: "x"}), core.ErrUnauthenticated)
}

func TestUsers_Register(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"mismatched confirmation", RegisterInput{Username: "ana", Password: "a", PasswordConfirm: "b"}, core.ErrInvalidInput},
		{"empty password", RegisterInput{Username: "ana"}, core.ErrInvalidInput},
		{"empty username", RegisterInput{Username: " ", Password: "a", PasswordConfirm: "a"}, core.ErrInvalidInput},
		{"bad email", RegisterInput{Username: "ana", Email: "nope", Password: "a", PasswordConfirm: "a"}, core.ErrInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.users.Register(ctx, tc.in)
			wantErr(t, err, tc.want)
		})
	}

	u, err := e.users.Register(ctx, RegisterInput{Username: "ana", Email: "ana@example.com", Password: "pw", PasswordConfirm: "pw"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Role != core.RoleUser || !u.Active || u.PasswordHash == "" || u.PasswordHash == "pw" {
		t.Fatalf("registered user = %+v", u)
	}

	_, err = e.users.Register(ctx, RegisterInput{Username: "ana", Password: "pw", PasswordConfirm: "pw"})
	wantErr(t, err, core.ErrDuplicateName)
}

func TestUsers_Authenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := e.newBook(t, "alice")

	got, err := e.users.Authenticate(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != b.user.ID {
		t.Fatalf("authenticated %d, want %d", got.ID, b.user.ID)
	}

	_, err = e.users.Authenticate(ctx, "alice", "wrong")
	wantErr(t, err, core.ErrUnauthenticated)
	_, err = e.users.Authenticate(ctx, "nobody", "secret")
	wantErr(t, err, core.ErrUnauthenticated)

	b.user.Active = false
	if _, err := e.store.UpdateUser(ctx, b.user); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = e.users.Authenticate(ctx, "alice", "secret")
	wantErr(t, err, core.ErrUnauthenticated)
	_, err = e.users.Resolve(ctx, b.user.ID)
	wantErr(t, err, core.ErrUnauthenticated)
}

func TestUsers_AdminOperations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	admin, created, err := e.users.EnsureUser(ctx, core.User{Username: "admin", Email: "admin@example.com", Role: core.RoleAdmin, Active: true}, "admin")
	if err != nil || !created {
		t.Fatalf("EnsureUser(admin) = %v, %v", created, err)
	}
	again, created, err := e.users.EnsureUser(ctx, core.User{Username: "admin", Role: core.RoleAdmin, Active: true}, "other")
	if err != nil || created || again.ID != admin.ID {
		t.Fatalf("EnsureUser should be idempotent: %+v %v %v", again, created, err)
	}

	alice := e.newBook(t, "alice")

	_, err = e.users.List(ctx, alice.user)
	wantErr(t, err, core.ErrForbidden)
	_, err = e.users.Get(ctx, alice.user, admin.ID)
	wantErr(t, err, core.ErrForbidden)
	wantErr(t, e.users.Delete(ctx, alice.user, admin.ID), core.ErrForbidden)

	users, err := e.users.List(ctx, admin)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[0].ID != alice.user.ID {
		t.Fatalf("users should list newest first, got %+v", users)
	}

	role := core.RoleAdmin
	promoted, err := e.users.Update(ctx, admin, alice.user.ID, UserPatch{Role: &role})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !promoted.IsAdmin() || promoted.Username != "alice" {
		t.Fatalf("promoted = %+v", promoted)
	}
	bad := core.Role("root")
	_, err = e.users.Update(ctx, admin, alice.user.ID, UserPatch{Role: &bad})
	wantErr(t, err, core.ErrInvalidInput)

	wantErr(t, e.users.Delete(ctx, admin, admin.ID), core.ErrSelfDeletion)
	wantErr(t, e.users.Delete(ctx, admin, 9999), core.ErrNotFound)
}

func TestUsers_DeleteRemovesOwnedData(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin, _, err := e.users.EnsureUser(ctx, core.User{Username: "admin", Role: core.RoleAdmin, Active: true}, "admin")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	alice := e.newBook(t, "alice")
	tv := e.post(t, alice, alice.grocery, "3", core.NewDate(2024, time.March, 1))

	if err := e.users.Delete(ctx, admin, alice.user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.store.GetTransaction(ctx, tv.ID); err == nil {
		t.Fatalf("transaction survived user deletion")
	}
	if _, err := e.store.GetAccount(ctx, alice.account.ID); err == nil {
		t.Fatalf("account survived user deletion")
	}
}

func TestUsers_Profile(t *testing.T) {
	e := newEnv(t)
	b := e.newBook(t, "alice")
	p, err := e.users.Profile(context.Background(), b.user)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Username != "alice" || p.Email != "alice@example.com" {
		t.Fatalf("profile = %+v", p)
	}
}
