package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

type AccountInput struct {
	Name  string
	Color string
}

// AccountPatch carries the fields of a partial update; nil means unchanged.
type AccountPatch struct {
	Name   *string
	Color  *string
	Active *bool
}

// AccountService is the registry of a user's bank accounts.
type AccountService struct {
	store    storage.Store
	guard    Guard
	notifier notifier
}

func NewAccountService(store storage.Store, events EventPublisher) *AccountService {
	return &AccountService{
		store:    store,
		notifier: notifier{events: events, now: time.Now},
	}
}

func (s *AccountService) Create(ctx context.Context, actor core.User, in AccountInput) (core.Account, error) {
	a := core.Account{
		UserID: actor.ID,
		Name:   strings.TrimSpace(in.Name),
		Color:  colorOr(in.Color, core.DefaultAccountColor),
		Active: true,
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "id", created.ID, "user_id", actor.ID, "name", created.Name)
	return created, nil
}

func (s *AccountService) List(ctx context.Context, actor core.User, activeOnly bool) ([]core.Account, error) {
	accs, err := s.store.ListAccounts(ctx, actor.ID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accs, nil
}

func (s *AccountService) Get(ctx context.Context, actor core.User, id int64) (core.Account, error) {
	a, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, err
	}
	if err := s.guard.Owned(actor, a.UserID, "account", id); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (s *AccountService) Update(ctx context.Context, actor core.User, id int64, p AccountPatch) (core.Account, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return core.Account{}, err
	}
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Color != nil {
		a.Color = colorOr(*p.Color, a.Color)
	}
	if p.Active != nil {
		a.Active = *p.Active
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	updated, err := s.store.UpdateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return updated, nil
}

// Delete removes the account together with all of its transactions.
func (s *AccountService) Delete(ctx context.Context, actor core.User, id int64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	removed, err := cascadeVictims(ctx, s.store, id)
	if err != nil {
		return fmt.Errorf("list account transactions: %w", err)
	}
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	slog.InfoContext(ctx, "Account deleted", "id", id, "user_id", actor.ID, "transactions_removed", len(removed))
	s.notifier.publishRemoved(ctx, removed)
	return nil
}

// CurrentBalance sums the signed amounts of every transaction on the account.
// It is recomputed from the live rows on each call.
func (s *AccountService) CurrentBalance(ctx context.Context, actor core.User, id int64) (core.Money, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return core.Money{}, err
	}
	txs, err := s.store.ListAccountTransactions(ctx, id)
	if err != nil {
		return core.Money{}, fmt.Errorf("list account transactions: %w", err)
	}
	return core.Balance(txs), nil
}

func colorOr(color, fallback string) string {
	if c := strings.TrimSpace(color); c != "" {
		return c
	}
	return fallback
}
