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

type CategoryInput struct {
	Name      string
	Direction core.Direction
	Color     string
}

type CategoryPatch struct {
	Name      *string
	Direction *core.Direction
	Color     *string
	Active    *bool
}

// CategoryFilter narrows a category listing. The zero value lists everything.
type CategoryFilter struct {
	ActiveOnly bool
	Direction  core.Direction
}

// CategoryService is the registry of a user's income and expense groups.
type CategoryService struct {
	store    storage.Store
	guard    Guard
	notifier notifier
}

func NewCategoryService(store storage.Store, events EventPublisher) *CategoryService {
	return &CategoryService{
		store:    store,
		notifier: notifier{events: events, now: time.Now},
	}
}

func (s *CategoryService) Create(ctx context.Context, actor core.User, in CategoryInput) (core.CategoryGroup, error) {
	c := core.CategoryGroup{
		UserID:    actor.ID,
		Name:      strings.TrimSpace(in.Name),
		Direction: in.Direction,
		Color:     colorOr(in.Color, core.DefaultCategoryColor),
		Active:    true,
	}
	if err := c.Validate(); err != nil {
		return core.CategoryGroup{}, err
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("create category group: %w", err)
	}
	slog.InfoContext(ctx, "Category group created",
		"id", created.ID,
		"user_id", actor.ID,
		"name", created.Name,
		"direction", created.Direction)
	return created, nil
}

func (s *CategoryService) List(ctx context.Context, actor core.User, f CategoryFilter) ([]core.CategoryGroup, error) {
	if f.Direction != "" {
		if err := f.Direction.Validate(); err != nil {
			return nil, err
		}
	}
	cats, err := s.store.ListCategories(ctx, actor.ID, f.ActiveOnly)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	if f.Direction == "" {
		return cats, nil
	}
	out := cats[:0]
	for _, c := range cats {
		if c.Direction == f.Direction {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, actor core.User, id int64) (core.CategoryGroup, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.CategoryGroup{}, err
	}
	if err := s.guard.Owned(actor, c.UserID, "category group", id); err != nil {
		return core.CategoryGroup{}, err
	}
	return c, nil
}

// Update applies p. Changing the direction is refused while transactions
// still reference the group, since they would no longer match it.
func (s *CategoryService) Update(ctx context.Context, actor core.User, id int64, p CategoryPatch) (core.CategoryGroup, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return core.CategoryGroup{}, err
	}
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Direction != nil && *p.Direction != c.Direction {
		if err := s.ensureUnreferenced(ctx, actor, c); err != nil {
			return core.CategoryGroup{}, err
		}
		c.Direction = *p.Direction
	}
	if p.Color != nil {
		c.Color = colorOr(*p.Color, c.Color)
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
	if err := c.Validate(); err != nil {
		return core.CategoryGroup{}, err
	}

	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("update category group: %w", err)
	}
	return updated, nil
}

// Delete removes the group and every transaction classified under it.
func (s *CategoryService) Delete(ctx context.Context, actor core.User, id int64) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	removed, err := s.referencing(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category group: %w", err)
	}
	slog.InfoContext(ctx, "Category group deleted", "id", id, "user_id", actor.ID, "transactions_removed", len(removed))
	s.notifier.publishRemoved(ctx, removed)
	return nil
}

func (s *CategoryService) ensureUnreferenced(ctx context.Context, actor core.User, c core.CategoryGroup) error {
	refs, err := s.referencing(ctx, actor, c.ID)
	if err != nil {
		return err
	}
	if len(refs) > 0 {
		return fmt.Errorf("%w: category group %q is used by %d transactions", core.ErrDirectionMismatch, c.Name, len(refs))
	}
	return nil
}

// referencing collects the owner's transactions classified under id.
func (s *CategoryService) referencing(ctx context.Context, actor core.User, id int64) ([]core.Transaction, error) {
	accs, err := s.store.ListAccounts(ctx, actor.ID, false)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	ids := make([]int64, len(accs))
	for i, a := range accs {
		ids[i] = a.ID
	}
	txs, err := cascadeVictims(ctx, s.store, ids...)
	if err != nil {
		return nil, fmt.Errorf("list account transactions: %w", err)
	}
	var out []core.Transaction
	for _, t := range txs {
		if t.CategoryID == id {
			out = append(out, t)
		}
	}
	return out, nil
}
