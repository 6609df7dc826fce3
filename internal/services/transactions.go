package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// DefaultWindowDays is the length of the trailing window listed when no
// month is requested.
const DefaultWindowDays = 180

// TransactionInput is the unvalidated content of a new transaction. Amount is
// signed so a negative value reaches the ledger and is rejected there.
type TransactionInput struct {
	AccountID   int64
	CategoryID  int64
	Direction   core.Direction
	Amount      decimal.Decimal
	Description string
	Date        core.Date
}

type TransactionPatch struct {
	AccountID   *int64
	CategoryID  *int64
	Direction   *core.Direction
	Amount      *decimal.Decimal
	Description *string
	Date        *core.Date
}

// ListFilter selects transactions. An empty MonthKey means the trailing
// DefaultWindowDays ending today; a zero AccountID means every account.
type ListFilter struct {
	MonthKey  string
	AccountID int64
}

// LedgerService owns transactions and the views derived from them.
type LedgerService struct {
	store    storage.Store
	guard    Guard
	notifier notifier
	now      func() time.Time
}

func NewLedgerService(store storage.Store, events EventPublisher) *LedgerService {
	return NewLedgerServiceWithClock(store, events, time.Now)
}

// NewLedgerServiceWithClock uses now for "today" and for event timestamps.
func NewLedgerServiceWithClock(store storage.Store, events EventPublisher, now func() time.Time) *LedgerService {
	return &LedgerService{
		store:    store,
		notifier: notifier{events: events, now: now},
		now:      now,
	}
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now())
}

// refs is what a transaction points at, resolved for its owner.
type refs struct {
	account  core.Account
	category core.CategoryGroup
}

// Create records a transaction. Checks run in a fixed order: references,
// then direction, then amount.
func (s *LedgerService) Create(ctx context.Context, actor core.User, in TransactionInput) (core.TransactionView, error) {
	r, err := s.resolve(ctx, actor, in.AccountID, in.CategoryID)
	if err != nil {
		return core.TransactionView{}, err
	}
	t := core.Transaction{
		UserID:      actor.ID,
		AccountID:   r.account.ID,
		CategoryID:  r.category.ID,
		Direction:   in.Direction,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
	if t.Amount, err = checkPosting(r.category, in.Direction, in.Amount); err != nil {
		return core.TransactionView{}, err
	}
	if err := t.Validate(); err != nil {
		return core.TransactionView{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.TransactionView{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", created.ID,
		"user_id", actor.ID,
		"direction", created.Direction,
		"amount", created.Amount.String(),
		"date", created.Date.String())

	s.notifier.publish(ctx, core.EventTransactionCreated, created, r.account.Name, r.category.Name)
	return created.View(), nil
}

// List returns the actor's transactions for the month in f, or for the
// trailing window when no month is given, newest first.
func (s *LedgerService) List(ctx context.Context, actor core.User, f ListFilter) ([]core.TransactionView, error) {
	from, to, err := s.window(f.MonthKey)
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, actor.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.TransactionView, 0, len(txs))
	for _, t := range txs {
		if f.AccountID != 0 && t.AccountID != f.AccountID {
			continue
		}
		out = append(out, t.View())
	}
	return out, nil
}

func (s *LedgerService) Get(ctx context.Context, actor core.User, id int64) (core.TransactionView, error) {
	t, err := s.owned(ctx, actor, id)
	if err != nil {
		return core.TransactionView{}, err
	}
	return t.View(), nil
}

// Update merges p into the stored transaction and re-runs the create checks
// on the merged result.
func (s *LedgerService) Update(ctx context.Context, actor core.User, id int64, p TransactionPatch) (core.TransactionView, error) {
	t, err := s.owned(ctx, actor, id)
	if err != nil {
		return core.TransactionView{}, err
	}

	accountID, categoryID := t.AccountID, t.CategoryID
	if p.AccountID != nil {
		accountID = *p.AccountID
	}
	if p.CategoryID != nil {
		categoryID = *p.CategoryID
	}
	direction := t.Direction
	if p.Direction != nil {
		direction = *p.Direction
	}
	amount := t.Amount.Decimal()
	if p.Amount != nil {
		amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}

	r, err := s.resolve(ctx, actor, accountID, categoryID)
	if err != nil {
		return core.TransactionView{}, err
	}
	t.AccountID, t.CategoryID, t.Direction = r.account.ID, r.category.ID, direction
	if t.Amount, err = checkPosting(r.category, direction, amount); err != nil {
		return core.TransactionView{}, err
	}
	if err := t.Validate(); err != nil {
		return core.TransactionView{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.TransactionView{}, fmt.Errorf("update transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction updated", "id", id, "user_id", actor.ID)

	s.notifier.publish(ctx, core.EventTransactionUpdated, updated, r.account.Name, r.category.Name)
	return updated.View(), nil
}

func (s *LedgerService) Delete(ctx context.Context, actor core.User, id int64) error {
	t, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", actor.ID)

	s.notifier.publish(ctx, core.EventTransactionDeleted, t, "", "")
	return nil
}

// MonthlySummary totals the month named by monthKey, the current month when
// monthKey is empty.
func (s *LedgerService) MonthlySummary(ctx context.Context, actor core.User, monthKey string) (core.Summary, error) {
	key, txs, err := s.month(ctx, actor, monthKey)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(key, txs), nil
}

// CategoryBreakdown splits the month's expenses by category group.
func (s *LedgerService) CategoryBreakdown(ctx context.Context, actor core.User, monthKey string) ([]core.CategoryAmount, error) {
	_, txs, err := s.month(ctx, actor, monthKey)
	if err != nil {
		return nil, err
	}
	cats, err := s.store.ListCategories(ctx, actor.ID, false)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	byID := make(map[int64]core.CategoryGroup, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	return core.ExpenseBreakdown(txs, byID), nil
}

func (s *LedgerService) month(ctx context.Context, actor core.User, monthKey string) (core.MonthKey, []core.Transaction, error) {
	key := core.MonthKeyOf(s.today())
	if monthKey != "" {
		var err error
		if key, err = core.ParseMonthKey(monthKey); err != nil {
			return core.MonthKey{}, nil, err
		}
	}
	from, to := key.Range()
	txs, err := s.store.ListTransactions(ctx, actor.ID, from, to)
	if err != nil {
		return core.MonthKey{}, nil, fmt.Errorf("list transactions: %w", err)
	}
	return key, txs, nil
}

func (s *LedgerService) window(monthKey string) (core.Date, core.Date, error) {
	if monthKey == "" {
		today := s.today()
		return today.AddDays(-DefaultWindowDays), today, nil
	}
	key, err := core.ParseMonthKey(monthKey)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	from, to := key.Range()
	return from, to, nil
}

func (s *LedgerService) owned(ctx context.Context, actor core.User, id int64) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.guard.Owned(actor, t.UserID, "transaction", id); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// resolve looks up the account and category group for actor. Anything the
// actor does not own is reported as an invalid reference.
func (s *LedgerService) resolve(ctx context.Context, actor core.User, accountID, categoryID int64) (refs, error) {
	a, err := s.store.GetAccount(ctx, accountID)
	if err := s.reference(actor, a.UserID, err, "account", accountID); err != nil {
		return refs{}, err
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	if err := s.reference(actor, c.UserID, err, "category group", categoryID); err != nil {
		return refs{}, err
	}
	return refs{account: a, category: c}, nil
}

func (s *LedgerService) reference(actor core.User, ownerID int64, lookupErr error, what string, id int64) error {
	switch {
	case errors.Is(lookupErr, core.ErrNotFound):
	case lookupErr != nil:
		return fmt.Errorf("get %s: %w", what, lookupErr)
	case s.guard.Owned(actor, ownerID, what, id) == nil:
		return nil
	}
	return fmt.Errorf("%w: %s %d", core.ErrInvalidReference, what, id)
}

// checkPosting applies the direction and amount rules in that order.
func checkPosting(c core.CategoryGroup, d core.Direction, amount decimal.Decimal) (core.Money, error) {
	if d != c.Direction {
		return core.Money{}, fmt.Errorf("%w: %s transaction in %s category group %q",
			core.ErrDirectionMismatch, d, c.Direction, c.Name)
	}
	return core.FromDecimal(amount)
}
