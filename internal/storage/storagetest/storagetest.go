// Package storagetest holds the behavioural checks every storage.Store
// backend must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// Run exercises s against the storage port contract. newStore must return
// an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("cascades", func(t *testing.T) { testCascades(t, newStore(t)) })
}

// Fixture bundles one user with an account and a category per direction.
type Fixture struct {
	User    core.User
	Account core.Account
	Income  core.CategoryGroup
	Expense core.CategoryGroup
}

// Seed creates a Fixture for username.
func Seed(t *testing.T, s storage.Store, username string) Fixture {
	t.Helper()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, core.User{Username: username, Email: username + "@example.com", Role: core.RoleUser, Active: true, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	a, err := s.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Checking", Color: core.DefaultAccountColor, Active: true})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	in, err := s.CreateCategory(ctx, core.CategoryGroup{UserID: u.ID, Name: "Salary", Direction: core.Income, Color: core.DefaultCategoryColor, Active: true})
	if err != nil {
		t.Fatalf("CreateCategory(income): %v", err)
	}
	ex, err := s.CreateCategory(ctx, core.CategoryGroup{UserID: u.ID, Name: "Groceries", Direction: core.Expense, Color: core.DefaultCategoryColor, Active: true})
	if err != nil {
		t.Fatalf("CreateCategory(expense): %v", err)
	}
	return Fixture{User: u, Account: a, Income: in, Expense: ex}
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, core.User{Username: "alice", Email: "a@example.com", Role: core.RoleAdmin, Active: true, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 || u.CreatedAt.IsZero() {
		t.Fatalf("CreateUser should assign id and timestamps, got %+v", u)
	}

	if _, err := s.CreateUser(ctx, core.User{Username: "alice", Role: core.RoleUser}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("duplicate username: expected ErrDuplicateName, got %v", err)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil || byName.ID != u.ID || byName.Role != core.RoleAdmin || byName.PasswordHash != "hash" {
		t.Fatalf("GetUserByUsername = %+v, %v", byName, err)
	}

	if _, err := s.GetUser(ctx, u.ID+1000); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetUser(missing): expected ErrNotFound, got %v", err)
	}

	u.FirstName = "Alice"
	u.Active = false
	updated, err := s.UpdateUser(ctx, u)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.FirstName != "Alice" || updated.Active {
		t.Fatalf("UpdateUser did not persist fields: %+v", updated)
	}

	if _, err := s.CreateUser(ctx, core.User{Username: "bob", Role: core.RoleUser, Active: true}); err != nil {
		t.Fatalf("CreateUser(bob): %v", err)
	}
	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("ListUsers len = %d, want 2", len(users))
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := s.DeleteUser(ctx, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("DeleteUser twice: expected ErrNotFound, got %v", err)
	}
}

func testAccounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := Seed(t, s, "alice")
	other := Seed(t, s, "bob")

	if _, err := s.CreateAccount(ctx, core.Account{UserID: f.User.ID, Name: "Checking", Active: true}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("duplicate account name: expected ErrDuplicateName, got %v", err)
	}

	savings, err := s.CreateAccount(ctx, core.Account{UserID: f.User.ID, Name: "Savings", Color: "#00ff00", Active: false})
	if err != nil {
		t.Fatalf("CreateAccount(Savings): %v", err)
	}

	all, err := s.ListAccounts(ctx, f.User.ID, false)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(all) != 2 || all[0].Name != "Checking" || all[1].Name != "Savings" {
		t.Fatalf("ListAccounts = %+v, want Checking, Savings", all)
	}
	active, err := s.ListAccounts(ctx, f.User.ID, true)
	if err != nil {
		t.Fatalf("ListAccounts(active): %v", err)
	}
	if len(active) != 1 || active[0].ID != f.Account.ID {
		t.Fatalf("ListAccounts(active) = %+v", active)
	}

	savings.Name = "Checking"
	if _, err := s.UpdateAccount(ctx, savings); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("rename onto existing: expected ErrDuplicateName, got %v", err)
	}
	savings.Name = "Rainy Day"
	renamed, err := s.UpdateAccount(ctx, savings)
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if renamed.Name != "Rainy Day" || renamed.UserID != f.User.ID {
		t.Fatalf("UpdateAccount = %+v", renamed)
	}

	if _, err := s.UpdateAccount(ctx, core.Account{ID: 99999, Name: "Ghost"}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("UpdateAccount(missing): expected ErrNotFound, got %v", err)
	}

	// other users may reuse names
	if len(mustAccounts(t, s, other.User.ID)) != 1 {
		t.Fatalf("other user should have exactly one account")
	}
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := Seed(t, s, "alice")

	if _, err := s.CreateCategory(ctx, core.CategoryGroup{UserID: f.User.ID, Name: "Groceries", Direction: core.Expense, Active: true}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("duplicate category: expected ErrDuplicateName, got %v", err)
	}
	// same name under the other direction is a different group
	if _, err := s.CreateCategory(ctx, core.CategoryGroup{UserID: f.User.ID, Name: "Groceries", Direction: core.Income, Active: true}); err != nil {
		t.Fatalf("same name other direction: %v", err)
	}

	cats, err := s.ListCategories(ctx, f.User.ID, false)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 3 {
		t.Fatalf("ListCategories len = %d, want 3", len(cats))
	}
	if cats[0].Direction != core.Expense {
		t.Fatalf("expense groups should sort first, got %+v", cats[0])
	}

	f.Expense.Active = false
	if _, err := s.UpdateCategory(ctx, f.Expense); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	active, err := s.ListCategories(ctx, f.User.ID, true)
	if err != nil {
		t.Fatalf("ListCategories(active): %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("ListCategories(active) len = %d, want 2", len(active))
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := Seed(t, s, "alice")
	other := Seed(t, s, "bob")

	mk := func(fx Fixture, cat core.CategoryGroup, cents int64, date core.Date) core.Transaction {
		t.Helper()
		tx, err := s.CreateTransaction(ctx, core.Transaction{
			UserID: fx.User.ID, AccountID: fx.Account.ID, CategoryID: cat.ID,
			Direction: cat.Direction, Amount: core.Money{Cents: cents}, Date: date,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		return tx
	}

	first := mk(f, f.Expense, 1000, core.NewDate(2024, time.March, 1))
	second := mk(f, f.Income, 5000, core.NewDate(2024, time.March, 31))
	sameDay := mk(f, f.Expense, 250, core.NewDate(2024, time.March, 31))
	mk(f, f.Expense, 700, core.NewDate(2024, time.April, 1))
	mk(other, other.Expense, 100, core.NewDate(2024, time.March, 15))

	got, err := s.GetTransaction(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if got.Amount.Cents != 1000 || !got.Date.Equal(first.Date.Time) || got.Direction != core.Expense {
		t.Fatalf("GetTransaction = %+v", got)
	}

	from, to := core.MonthKey{Year: 2024, Month: time.March}.Range()
	march, err := s.ListTransactions(ctx, f.User.ID, from, to)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(march) != 3 {
		t.Fatalf("March transactions = %d, want 3", len(march))
	}
	// same date orders by creation time then id, newest first
	if march[0].ID != sameDay.ID || march[1].ID != second.ID || march[2].ID != first.ID {
		t.Fatalf("listing order = [%d %d %d], want [%d %d %d]",
			march[0].ID, march[1].ID, march[2].ID, sameDay.ID, second.ID, first.ID)
	}

	byAccount, err := s.ListAccountTransactions(ctx, f.Account.ID)
	if err != nil {
		t.Fatalf("ListAccountTransactions: %v", err)
	}
	if len(byAccount) != 4 {
		t.Fatalf("account transactions = %d, want 4", len(byAccount))
	}

	first.Amount = core.Money{Cents: 1234}
	first.Description = "weekly shop"
	updated, err := s.UpdateTransaction(ctx, first)
	if err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if updated.Amount.Cents != 1234 || updated.Description != "weekly shop" || !updated.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("UpdateTransaction = %+v", updated)
	}

	bad := first
	bad.AccountID = 424242
	if _, err := s.UpdateTransaction(ctx, bad); !errors.Is(err, core.ErrInvalidReference) {
		t.Fatalf("dangling account: expected ErrInvalidReference, got %v", err)
	}

	if err := s.DeleteTransaction(ctx, first.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := s.GetTransaction(ctx, first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted transaction: expected ErrNotFound, got %v", err)
	}
}

func testCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := Seed(t, s, "alice")

	tx, err := s.CreateTransaction(ctx, core.Transaction{
		UserID: f.User.ID, AccountID: f.Account.ID, CategoryID: f.Expense.ID,
		Direction: core.Expense, Amount: core.Money{Cents: 500}, Date: core.NewDate(2024, time.May, 5),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	kept, err := s.CreateTransaction(ctx, core.Transaction{
		UserID: f.User.ID, AccountID: f.Account.ID, CategoryID: f.Income.ID,
		Direction: core.Income, Amount: core.Money{Cents: 900}, Date: core.NewDate(2024, time.May, 6),
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := s.DeleteCategory(ctx, f.Expense.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if _, err := s.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("category delete should remove its transactions, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, kept.ID); err != nil {
		t.Fatalf("unrelated transaction removed: %v", err)
	}

	if err := s.DeleteAccount(ctx, f.Account.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := s.GetTransaction(ctx, kept.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("account delete should remove its transactions, got %v", err)
	}

	g := Seed(t, s, "carol")
	if err := s.DeleteUser(ctx, g.User.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetAccount(ctx, g.Account.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user delete should remove accounts, got %v", err)
	}
	if _, err := s.GetCategory(ctx, g.Income.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user delete should remove category groups, got %v", err)
	}
}

func mustAccounts(t *testing.T, s storage.Store, userID int64) []core.Account {
	t.Helper()
	accs, err := s.ListAccounts(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	return accs
}
