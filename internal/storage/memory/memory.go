package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Store keeps every entity in process memory. A single mutex makes each
// operation, cascading deletes included, atomic.
type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	lastID int64

	users        map[int64]core.User
	accounts     map[int64]core.Account
	categories   map[int64]core.CategoryGroup
	transactions map[int64]core.Transaction
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store stamping CreatedAt/UpdatedAt with now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:          now,
		users:        map[int64]core.User{},
		accounts:     map[int64]core.Account{},
		categories:   map[int64]core.CategoryGroup{},
		transactions: map[int64]core.Transaction{},
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// Users

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usernameTaken(u.Username, 0) {
		return core.User{}, fmt.Errorf("%w: username %q", core.ErrDuplicateName, u.Username)
	}
	u.ID = s.nextID()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.users[u.ID]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", u.ID, core.ErrNotFound)
	}
	if s.usernameTaken(u.Username, u.ID) {
		return core.User{}, fmt.Errorf("%w: username %q", core.ErrDuplicateName, u.Username)
	}
	u.CreatedAt = old.CreatedAt
	u.UpdatedAt = s.now()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	for tid, t := range s.transactions {
		if t.UserID == id {
			delete(s.transactions, tid)
		}
	}
	for aid, a := range s.accounts {
		if a.UserID == id {
			delete(s.accounts, aid)
		}
	}
	for cid, c := range s.categories {
		if c.UserID == id {
			delete(s.categories, cid)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) usernameTaken(username string, exceptID int64) bool {
	for _, u := range s.users {
		if u.ID != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountNameTaken(a.UserID, a.Name, 0) {
		return core.Account{}, fmt.Errorf("%w: account %q", core.ErrDuplicateName, a.Name)
	}
	a.ID = s.nextID()
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context, userID int64, activeOnly bool) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Account
	for _, a := range s.accounts {
		if a.UserID != userID || (activeOnly && !a.Active) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.accounts[a.ID]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", a.ID, core.ErrNotFound)
	}
	a.UserID = old.UserID
	if s.accountNameTaken(a.UserID, a.Name, a.ID) {
		return core.Account{}, fmt.Errorf("%w: account %q", core.ErrDuplicateName, a.Name)
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = s.now()
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	for tid, t := range s.transactions {
		if t.AccountID == id {
			delete(s.transactions, tid)
		}
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) accountNameTaken(userID int64, name string, exceptID int64) bool {
	for _, a := range s.accounts {
		if a.ID != exceptID && a.UserID == userID && a.Name == name {
			return true
		}
	}
	return false
}

// Category groups

func (s *Store) CreateCategory(_ context.Context, c core.CategoryGroup) (core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.categoryTaken(c, 0) {
		return core.CategoryGroup{}, fmt.Errorf("%w: %s category %q", core.ErrDuplicateName, c.Direction, c.Name)
	}
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.CategoryGroup{}, fmt.Errorf("category group %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListCategories(_ context.Context, userID int64, activeOnly bool) ([]core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CategoryGroup
	for _, c := range s.categories {
		if c.UserID != userID || (activeOnly && !c.Active) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.CategoryGroup) (core.CategoryGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.categories[c.ID]
	if !ok {
		return core.CategoryGroup{}, fmt.Errorf("category group %d: %w", c.ID, core.ErrNotFound)
	}
	c.UserID = old.UserID
	if s.categoryTaken(c, c.ID) {
		return core.CategoryGroup{}, fmt.Errorf("%w: %s category %q", core.ErrDuplicateName, c.Direction, c.Name)
	}
	c.CreatedAt = old.CreatedAt
	c.UpdatedAt = s.now()
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return fmt.Errorf("category group %d: %w", id, core.ErrNotFound)
	}
	for tid, t := range s.transactions {
		if t.CategoryID == id {
			delete(s.transactions, tid)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) categoryTaken(c core.CategoryGroup, exceptID int64) bool {
	for _, o := range s.categories {
		if o.ID != exceptID && o.UserID == c.UserID && o.Name == c.Name && o.Direction == c.Direction {
			return true
		}
	}
	return false
}

// Transactions

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRefs(t); err != nil {
		return core.Transaction{}, err
	}
	t.ID = s.nextID()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && t.Date.Between(from, to) {
			out = append(out, t)
		}
	}
	core.SortTransactions(out)
	return out, nil
}

func (s *Store) ListAccountTransactions(_ context.Context, accountID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	core.SortTransactions(out)
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.transactions[t.ID]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	if err := s.checkRefs(t); err != nil {
		return core.Transaction{}, err
	}
	t.UserID = old.UserID
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = s.now()
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

// checkRefs mirrors the foreign keys of the SQL schema.
func (s *Store) checkRefs(t core.Transaction) error {
	if _, ok := s.accounts[t.AccountID]; !ok {
		return fmt.Errorf("%w: account %d", core.ErrInvalidReference, t.AccountID)
	}
	if _, ok := s.categories[t.CategoryID]; !ok {
		return fmt.Errorf("%w: category group %d", core.ErrInvalidReference, t.CategoryID)
	}
	return nil
}
