package sheets

import (
	"context"
	"strconv"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors ledger transactions into an external
	// sheet, one row per transaction keyed by its id.
	TransactionExporter interface {
		// Upsert writes row, replacing any existing row with the same id.
		Upsert(ctx context.Context, row Row) error
		// Remove deletes the row of the transaction; missing rows are not an error.
		Remove(ctx context.Context, transactionID int64) error
	}
)

// Header is the first row of an export sheet.
var Header = []any{"ID", "Date", "Month", "Account", "Category", "Direction", "Amount", "Description"}

// Row is the exported form of one transaction.
type Row struct {
	TransactionID int64
	Date          string
	MonthKey      string
	Account       string
	Category      string
	Direction     string
	Amount        string
	Description   string
}

// RowFromEvent renders the transaction carried by ev.
func RowFromEvent(ev core.LedgerEvent) Row {
	v := ev.Transaction.View()
	return Row{
		TransactionID: v.ID,
		Date:          v.DisplayDate,
		MonthKey:      v.MonthKey,
		Account:       ev.AccountName,
		Category:      ev.Category,
		Direction:     string(v.Direction),
		Amount:        v.SignedAmount,
		Description:   v.Description,
	}
}

// Values returns the cells of r in Header order.
func (r Row) Values() []any {
	return []any{
		strconv.FormatInt(r.TransactionID, 10),
		r.Date,
		r.MonthKey,
		r.Account,
		r.Category,
		r.Direction,
		r.Amount,
		r.Description,
	}
}
