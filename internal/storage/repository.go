package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// timestamps are stored fixed-width so lexical order matches time order
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection keeps cascades and reads consistent.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) stamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// Users

const userColumns = `id, username, email, first_name, last_name, role, active, password_hash, created_at, updated_at`

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, first_name, last_name, role, active, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.FirstName, u.LastName, string(u.Role), u.Active, u.PasswordHash, now, now)
	if err != nil {
		return core.User{}, translate(err, fmt.Sprintf("username %q", u.Username))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user last insert id: %w", err)
	}
	slog.InfoContext(ctx, "User saved to SQLite", "id", id, "username", u.Username, "role", u.Role)
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, first_name = ?, last_name = ?, role = ?, active = ?,
		 password_hash = ?, updated_at = ? WHERE id = ?`,
		u.Username, u.Email, u.FirstName, u.LastName, string(u.Role), u.Active, u.PasswordHash, r.stamp(), u.ID)
	if err != nil {
		return core.User{}, translate(err, fmt.Sprintf("username %q", u.Username))
	}
	if err := expectRow(res, "user", u.ID); err != nil {
		return core.User{}, err
	}
	return r.GetUser(ctx, u.ID)
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	// bank accounts, category groups and transactions go with the user (ON DELETE CASCADE)
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := expectRow(res, "user", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User deleted from SQLite", "id", id)
	return nil
}

// Accounts

const accountColumns = `id, user_id, name, color, active, created_at, updated_at`

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bank_accounts (user_id, name, color, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.Color, a.Active, now, now)
	if err != nil {
		return core.Account{}, translate(err, fmt.Sprintf("account %q", a.Name))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, fmt.Errorf("account last insert id: %w", err)
	}
	return r.GetAccount(ctx, id)
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM bank_accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64, activeOnly bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM bank_accounts WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bank_accounts SET name = ?, color = ?, active = ?, updated_at = ? WHERE id = ?`,
		a.Name, a.Color, a.Active, r.stamp(), a.ID)
	if err != nil {
		return core.Account{}, translate(err, fmt.Sprintf("account %q", a.Name))
	}
	if err := expectRow(res, "account", a.ID); err != nil {
		return core.Account{}, err
	}
	return r.GetAccount(ctx, a.ID)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bank_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := expectRow(res, "account", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account deleted from SQLite", "id", id)
	return nil
}

// Category groups

const categoryColumns = `id, user_id, name, direction, color, active, created_at, updated_at`

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.CategoryGroup) (core.CategoryGroup, error) {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO category_groups (user_id, name, direction, color, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Direction), c.Color, c.Active, now, now)
	if err != nil {
		return core.CategoryGroup{}, translate(err, fmt.Sprintf("%s category %q", c.Direction, c.Name))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("category last insert id: %w", err)
	}
	return r.GetCategory(ctx, id)
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.CategoryGroup, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM category_groups WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CategoryGroup{}, fmt.Errorf("category group %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.CategoryGroup{}, fmt.Errorf("get category by id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64, activeOnly bool) ([]core.CategoryGroup, error) {
	query := `SELECT ` + categoryColumns + ` FROM category_groups WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY direction ASC, name ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryGroup
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.CategoryGroup) (core.CategoryGroup, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE category_groups SET name = ?, direction = ?, color = ?, active = ?, updated_at = ? WHERE id = ?`,
		c.Name, string(c.Direction), c.Color, c.Active, r.stamp(), c.ID)
	if err != nil {
		return core.CategoryGroup{}, translate(err, fmt.Sprintf("%s category %q", c.Direction, c.Name))
	}
	if err := expectRow(res, "category group", c.ID); err != nil {
		return core.CategoryGroup{}, err
	}
	return r.GetCategory(ctx, c.ID)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM category_groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := expectRow(res, "category group", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category group deleted from SQLite", "id", id)
	return nil
}

// Transactions

const transactionColumns = `id, user_id, account_id, category_id, direction, amount_cents, description, transaction_date, created_at, updated_at`

const transactionOrder = ` ORDER BY transaction_date DESC, created_at DESC, id DESC`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.stamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, account_id, category_id, direction, amount_cents, description,
		 transaction_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.AccountID, t.CategoryID, string(t.Direction), t.Amount.Cents, t.Description,
		t.Date.String(), now, now)
	if err != nil {
		return core.Transaction{}, translate(err, fmt.Sprintf("transaction on account %d", t.AccountID))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"direction", t.Direction,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return r.GetTransaction(ctx, id)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64, from, to core.Date) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND transaction_date BETWEEN ? AND ?`+transactionOrder,
		userID, from.String(), to.String())
}

func (r *SQLiteRepository) ListAccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = ?`+transactionOrder, accountID)
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET account_id = ?, category_id = ?, direction = ?, amount_cents = ?,
		 description = ?, transaction_date = ?, updated_at = ? WHERE id = ?`,
		t.AccountID, t.CategoryID, string(t.Direction), t.Amount.Cents, t.Description, t.Date.String(),
		r.stamp(), t.ID)
	if err != nil {
		return core.Transaction{}, translate(err, fmt.Sprintf("transaction %d", t.ID))
	}
	if err := expectRow(res, "transaction", t.ID); err != nil {
		return core.Transaction{}, err
	}
	return r.GetTransaction(ctx, t.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := expectRow(res, "transaction", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// Row mapping

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (core.User, error) {
	var (
		u                core.User
		role             string
		created, updated string
	)
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &role, &u.Active,
		&u.PasswordHash, &created, &updated); err != nil {
		return core.User{}, err
	}
	u.Role = core.Role(role)
	var err error
	if u.CreatedAt, u.UpdatedAt, err = parseStamps(created, updated); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a                core.Account
		created, updated string
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Color, &a.Active, &created, &updated); err != nil {
		return core.Account{}, err
	}
	var err error
	if a.CreatedAt, a.UpdatedAt, err = parseStamps(created, updated); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func scanCategory(s scanner) (core.CategoryGroup, error) {
	var (
		c                core.CategoryGroup
		direction        string
		created, updated string
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &direction, &c.Color, &c.Active, &created, &updated); err != nil {
		return core.CategoryGroup{}, err
	}
	c.Direction = core.Direction(direction)
	var err error
	if c.CreatedAt, c.UpdatedAt, err = parseStamps(created, updated); err != nil {
		return core.CategoryGroup{}, err
	}
	return c, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                core.Transaction
		direction, date  string
		created, updated string
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &direction, &t.Amount.Cents,
		&t.Description, &date, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	t.Direction = core.Direction(direction)
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored transaction date: %w", err)
	}
	t.Date = d
	if t.CreatedAt, t.UpdatedAt, err = parseStamps(created, updated); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func parseStamps(created, updated string) (time.Time, time.Time, error) {
	c, err := time.Parse(timestampLayout, created)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse created_at: %w", err)
	}
	u, err := time.Parse(timestampLayout, updated)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return c, u, nil
}

func expectRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	return nil
}

// translate maps constraint violations onto ledger error kinds.
func translate(err error, subject string) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := se.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return fmt.Errorf("%w: %s", core.ErrDuplicateName, subject)
		case strings.Contains(msg, "FOREIGN KEY"):
			return fmt.Errorf("%w: %s", core.ErrInvalidReference, subject)
		case strings.Contains(msg, "CHECK"):
			return fmt.Errorf("%w: %s", core.ErrInvalidInput, subject)
		}
	}
	return fmt.Errorf("write %s: %w", subject, err)
}
