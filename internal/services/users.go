package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ledger/internal/core"
	"ledger/internal/storage"
)

type RegisterInput struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
}

// UserPatch is the admin-editable subset of a user.
type UserPatch struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *core.Role
	Active    *bool
}

// UserService manages identities: self-registration, authentication and the
// admin-only user management endpoints.
type UserService struct {
	store    storage.Store
	guard    Guard
	notifier notifier
	cost     int
}

func NewUserService(store storage.Store, events EventPublisher) *UserService {
	return NewUserServiceWithCost(store, events, bcrypt.DefaultCost)
}

// NewUserServiceWithCost sets the bcrypt cost; tests use bcrypt.MinCost.
func NewUserServiceWithCost(store storage.Store, events EventPublisher, cost int) *UserService {
	return &UserService{
		store:    store,
		notifier: notifier{events: events, now: time.Now},
		cost:     cost,
	}
}

// Register creates an active user with the user role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	if in.Password == "" {
		return core.User{}, fmt.Errorf("%w: password is required", core.ErrInvalidInput)
	}
	if in.Password != in.PasswordConfirm {
		return core.User{}, fmt.Errorf("%w: passwords do not match", core.ErrInvalidInput)
	}
	u := core.User{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      core.RoleUser,
		Active:    true,
	}
	return s.create(ctx, u, in.Password)
}

// EnsureUser creates u with password unless the username is taken. It
// reports whether a user was created.
func (s *UserService) EnsureUser(ctx context.Context, u core.User, password string) (core.User, bool, error) {
	existing, err := s.store.GetUserByUsername(ctx, u.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, false, fmt.Errorf("look up user: %w", err)
	}
	created, err := s.create(ctx, u, password)
	if err != nil {
		return core.User{}, false, err
	}
	return created, true, nil
}

func (s *UserService) create(ctx context.Context, u core.User, password string) (core.User, error) {
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	u.PasswordHash = string(hash)

	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", created.ID, "username", created.Username, "role", created.Role)
	return created, nil
}

// Authenticate verifies username and password. Every failure, unknown user
// included, is ErrUnauthenticated.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("unknown user %q: %w", username, core.ErrUnauthenticated)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return core.User{}, fmt.Errorf("bad password for %q: %w", username, core.ErrUnauthenticated)
	}
	if err := s.guard.RequireActive(u); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Resolve loads an authenticated user by id, rejecting users deactivated or
// removed since their credentials were verified.
func (s *UserService) Resolve(ctx context.Context, id int64) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrUnauthenticated)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := s.guard.RequireActive(u); err != nil {
		return core.User{}, err
	}
	return u, nil
}

// Profile returns the actor as currently stored.
func (s *UserService) Profile(ctx context.Context, actor core.User) (core.User, error) {
	return s.store.GetUser(ctx, actor.ID)
}

func (s *UserService) List(ctx context.Context, actor core.User) ([]core.User, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, actor core.User, id int64) (core.User, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return core.User{}, err
	}
	return s.store.GetUser(ctx, id)
}

func (s *UserService) Update(ctx context.Context, actor core.User, id int64, p UserPatch) (core.User, error) {
	u, err := s.Get(ctx, actor, id)
	if err != nil {
		return core.User{}, err
	}
	if p.Email != nil {
		u.Email = strings.TrimSpace(*p.Email)
	}
	if p.FirstName != nil {
		u.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		u.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}

	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	slog.InfoContext(ctx, "User updated", "id", id, "by", actor.ID, "role", updated.Role, "active", updated.Active)
	return updated, nil
}

// Delete removes a user and everything they own. Admins cannot delete
// themselves here.
func (s *UserService) Delete(ctx context.Context, actor core.User, id int64) error {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.guard.CanDeleteUser(actor, id); err != nil {
		return err
	}
	if _, err := s.store.GetUser(ctx, id); err != nil {
		return err
	}

	accs, err := s.store.ListAccounts(ctx, id, false)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	ids := make([]int64, len(accs))
	for i, a := range accs {
		ids[i] = a.ID
	}
	removed, err := cascadeVictims(ctx, s.store, ids...)
	if err != nil {
		return fmt.Errorf("list account transactions: %w", err)
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	slog.InfoContext(ctx, "User deleted", "id", id, "by", actor.ID, "transactions_removed", len(removed))
	s.notifier.publishRemoved(ctx, removed)
	return nil
}
