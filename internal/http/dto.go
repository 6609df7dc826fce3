package http

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/services"
)

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

func (r registerRequest) input() services.RegisterInput {
	return services.RegisterInput{
		Username:        sanitizeInput(r.Username),
		Email:           sanitizeInput(r.Email),
		FirstName:       sanitizeInput(r.FirstName),
		LastName:        sanitizeInput(r.LastName),
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
	}
}

type userPatchRequest struct {
	Email     *string    `json:"email"`
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Role      *core.Role `json:"user_type"`
	Active    *bool      `json:"is_active"`
}

func (r userPatchRequest) patch() services.UserPatch {
	return services.UserPatch{
		Email:     sanitizePtr(r.Email),
		FirstName: sanitizePtr(r.FirstName),
		LastName:  sanitizePtr(r.LastName),
		Role:      r.Role,
		Active:    r.Active,
	}
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      core.Role `json:"user_type"`
	Active    bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type accountRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type accountPatchRequest struct {
	Name   *string `json:"name"`
	Color  *string `json:"color"`
	Active *bool   `json:"is_active"`
}

type accountResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Active    bool      `json:"is_active"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newAccountResponse(a core.Account, balance core.Money) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Color:     a.Color,
		Active:    a.Active,
		Balance:   balance.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type balanceResponse struct {
	AccountID int64  `json:"bank_account"`
	Balance   string `json:"balance"`
}

type categoryRequest struct {
	Name      string         `json:"name"`
	Direction core.Direction `json:"transaction_type"`
	Color     string         `json:"color"`
}

type categoryPatchRequest struct {
	Name      *string         `json:"name"`
	Direction *core.Direction `json:"transaction_type"`
	Color     *string         `json:"color"`
	Active    *bool           `json:"is_active"`
}

type categoryResponse struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Direction core.Direction `json:"transaction_type"`
	Color     string         `json:"color"`
	Active    bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func newCategoryResponse(c core.CategoryGroup) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Direction: c.Direction,
		Color:     c.Color,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type transactionRequest struct {
	AccountID   int64           `json:"bank_account"`
	CategoryID  int64           `json:"category_group"`
	Direction   core.Direction  `json:"transaction_type"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"transaction_date"`
}

func (r transactionRequest) input() (services.TransactionInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return services.TransactionInput{}, err
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return services.TransactionInput{}, err
	}
	return services.TransactionInput{
		AccountID:   r.AccountID,
		CategoryID:  r.CategoryID,
		Direction:   r.Direction,
		Amount:      amount,
		Description: sanitizeInput(r.Description),
		Date:        date,
	}, nil
}

type transactionPatchRequest struct {
	AccountID   *int64          `json:"bank_account"`
	CategoryID  *int64          `json:"category_group"`
	Direction   *core.Direction `json:"transaction_type"`
	Amount      json.RawMessage `json:"amount"`
	Description *string         `json:"description"`
	Date        *string         `json:"transaction_date"`
}

func (r transactionPatchRequest) patch() (services.TransactionPatch, error) {
	p := services.TransactionPatch{
		AccountID:   r.AccountID,
		CategoryID:  r.CategoryID,
		Direction:   r.Direction,
		Description: sanitizePtr(r.Description),
	}
	if len(r.Amount) > 0 {
		amount, err := parseAmount(r.Amount)
		if err != nil {
			return services.TransactionPatch{}, err
		}
		p.Amount = &amount
	}
	if r.Date != nil {
		date, err := parseDate(*r.Date)
		if err != nil {
			return services.TransactionPatch{}, err
		}
		p.Date = &date
	}
	return p, nil
}

type transactionResponse struct {
	ID              int64          `json:"id"`
	AccountID       int64          `json:"bank_account"`
	CategoryID      int64          `json:"category_group"`
	Direction       core.Direction `json:"transaction_type"`
	Amount          string         `json:"amount"`
	Description     string         `json:"description"`
	Date            string         `json:"transaction_date"`
	FormattedAmount string         `json:"formatted_amount"`
	FormattedDate   string         `json:"formatted_date"`
	MonthKey        string         `json:"month_year"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func newTransactionResponse(v core.TransactionView) transactionResponse {
	return transactionResponse{
		ID:              v.ID,
		AccountID:       v.AccountID,
		CategoryID:      v.CategoryID,
		Direction:       v.Direction,
		Amount:          v.Amount.String(),
		Description:     v.Description,
		Date:            v.Date.String(),
		FormattedAmount: v.SignedAmount,
		FormattedDate:   v.DisplayDate,
		MonthKey:        v.MonthKey,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

type summaryResponse struct {
	MonthKey         string `json:"month_year"`
	TotalIncome      string `json:"total_income"`
	TotalExpense     string `json:"total_expense"`
	Balance          string `json:"balance"`
	TransactionCount int    `json:"transaction_count"`
}

func newSummaryResponse(s core.Summary) summaryResponse {
	return summaryResponse{
		MonthKey:         s.MonthKey,
		TotalIncome:      s.TotalIncome.String(),
		TotalExpense:     s.TotalExpense.String(),
		Balance:          s.Balance.String(),
		TransactionCount: s.TransactionCount,
	}
}

type categoryAmountResponse struct {
	CategoryID int64           `json:"category_group"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Amount     string          `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

func newCategoryAmountResponse(c core.CategoryAmount) categoryAmountResponse {
	return categoryAmountResponse{
		CategoryID: c.CategoryID,
		Name:       c.Name,
		Color:      c.Color,
		Amount:     c.Amount.String(),
		Percentage: c.Percentage,
	}
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
