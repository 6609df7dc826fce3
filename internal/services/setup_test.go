package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"ledger/internal/core"
	"ledger/internal/storage/memory"
)

// fixedNow is "today" for every ledger test: 2024-03-20 noon UTC.
var fixedNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev core.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type env struct {
	store      *memory.Store
	events     *recordingPublisher
	accounts   *AccountService
	categories *CategoryService
	ledger     *LedgerService
	users      *UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	events := &recordingPublisher{}
	return &env{
		store:      store,
		events:     events,
		accounts:   NewAccountService(store, events),
		categories: NewCategoryService(store, events),
		ledger:     NewLedgerServiceWithClock(store, events, func() time.Time { return fixedNow }),
		users:      NewUserServiceWithCost(store, events, bcrypt.MinCost),
	}
}

// book is one user with an account and a category group per direction.
type book struct {
	user    core.User
	account core.Account
	salary  core.CategoryGroup
	grocery core.CategoryGroup
}

func (e *env) newBook(t *testing.T, username string) book {
	t.Helper()
	ctx := context.Background()

	u, err := e.users.Register(ctx, RegisterInput{Username: username, Email: username + "@example.com", Password: "secret", PasswordConfirm: "secret"})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	a, err := e.accounts.Create(ctx, u, AccountInput{Name: "Checking"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	salary, err := e.categories.Create(ctx, u, CategoryInput{Name: "Salary", Direction: core.Income})
	if err != nil {
		t.Fatalf("create income category: %v", err)
	}
	grocery, err := e.categories.Create(ctx, u, CategoryInput{Name: "Groceries", Direction: core.Expense})
	if err != nil {
		t.Fatalf("create expense category: %v", err)
	}
	return book{user: u, account: a, salary: salary, grocery: grocery}
}

func (e *env) post(t *testing.T, b book, cat core.CategoryGroup, amount string, date core.Date) core.TransactionView {
	t.Helper()
	tv, err := e.ledger.Create(context.Background(), b.user, TransactionInput{
		AccountID:  b.account.ID,
		CategoryID: cat.ID,
		Direction:  cat.Direction,
		Amount:     decimal.RequireFromString(amount),
		Date:       date,
	})
	if err != nil {
		t.Fatalf("Create(%s %s on %s): %v", cat.Direction, amount, date, err)
	}
	return tv
}

func wantErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}
