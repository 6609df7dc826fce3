package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Income  Direction = "income"
	Expense Direction = "expense"

	RoleAdmin Role = "admin"
	RoleUser  Role = "user"

	DefaultAccountColor  = "#007bff"
	DefaultCategoryColor = "#6c757d"

	maxNameLength        = 100
	maxDescriptionLength = 200
)

type (
	Direction string

	Role string

	User struct {
		ID           int64
		Username     string
		Email        string
		FirstName    string
		LastName     string
		Role         Role
		Active       bool
		PasswordHash string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Account struct {
		ID        int64
		UserID    int64
		Name      string
		Color     string
		Active    bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	CategoryGroup struct {
		ID        int64
		UserID    int64
		Name      string
		Direction Direction
		Color     string
		Active    bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		AccountID   int64
		CategoryID  int64
		Direction   Direction
		Amount      Money
		Description string
		Date        Date
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// TransactionView is a transaction with its presentation fields.
	TransactionView struct {
		Transaction
		SignedAmount string
		DisplayDate  string
		MonthKey     string
	}
)

func (d Direction) Validate() error {
	switch d {
	case Income, Expense:
		return nil
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, string(d))
	}
}

// Sign returns +1 for income and -1 for expense.
func (d Direction) Sign() int64 {
	if d == Income {
		return 1
	}
	return -1
}

func (r Role) Validate() error {
	switch r {
	case RoleAdmin, RoleUser:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, string(r))
	}
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidInput)
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidInput, u.Email)
	}
	return u.Role.Validate()
}

func (a Account) Validate() error {
	return validateName(a.Name)
}

func (c CategoryGroup) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	return c.Direction.Validate()
}

// Validate checks the fields a transaction carries on its own. Cross-entity
// rules (ownership, direction match) are enforced by the ledger.
func (t Transaction) Validate() error {
	if err := t.Direction.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrInvalidInput, maxDescriptionLength)
	}
	return nil
}

// View attaches the derived display fields.
func (t Transaction) View() TransactionView {
	return TransactionView{
		Transaction:  t,
		SignedAmount: t.Amount.Signed(t.Direction),
		DisplayDate:  t.Date.Display(),
		MonthKey:     MonthKeyOf(t.Date).String(),
	}
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrInvalidInput, maxNameLength)
	}
	return nil
}
