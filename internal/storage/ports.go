package storage

import (
	"context"

	"ledger/internal/core"
)

// Ports implemented by every persistence backend.
//
// Get* looks up by id only and returns core.ErrNotFound when no row exists;
// ownership is checked by the caller. Create*/Update* return
// core.ErrDuplicateName when a uniqueness rule is violated. Deletes of
// accounts, category groups and users remove their dependent rows in the
// same atomic step.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id int64) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		// ListUsers returns all users, most recently created first.
		ListUsers(ctx context.Context) ([]core.User, error)
		UpdateUser(ctx context.Context, u core.User) (core.User, error)
		DeleteUser(ctx context.Context, id int64) error
	}

	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
		GetAccount(ctx context.Context, id int64) (core.Account, error)
		// ListAccounts returns the user's accounts ordered by name.
		ListAccounts(ctx context.Context, userID int64, activeOnly bool) ([]core.Account, error)
		UpdateAccount(ctx context.Context, a core.Account) (core.Account, error)
		DeleteAccount(ctx context.Context, id int64) error
	}

	CategoryStore interface {
		CreateCategory(ctx context.Context, c core.CategoryGroup) (core.CategoryGroup, error)
		GetCategory(ctx context.Context, id int64) (core.CategoryGroup, error)
		// ListCategories returns the user's groups ordered by direction, then name.
		ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.CategoryGroup, error)
		UpdateCategory(ctx context.Context, c core.CategoryGroup) (core.CategoryGroup, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
		// ListTransactions returns the user's transactions dated within
		// [from, to], both inclusive, in listing order.
		ListTransactions(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error)
		ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id int64) error
	}

	Store interface {
		UserStore
		AccountStore
		CategoryStore
		TransactionStore
		Ping(ctx context.Context) error
		Close() error
	}
)
