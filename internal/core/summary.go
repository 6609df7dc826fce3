package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary aggregates the transactions of one month.
type Summary struct {
	MonthKey         string
	TotalIncome      Money
	TotalExpense     Money
	Balance          Money
	TransactionCount int
}

// CategoryAmount represents an expense total aggregated by category group.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Color      string
	Amount     Money
	Percentage decimal.Decimal
}

// Balance is the signed sum of txs: income adds, expense subtracts.
func Balance(txs []Transaction) Money {
	var total Money
	for _, t := range txs {
		total.Cents += t.Direction.Sign() * t.Amount.Cents
	}
	return total
}

// Summarize totals txs under the given month key. It does not filter by date;
// callers pass the transactions already restricted to the month.
func Summarize(key MonthKey, txs []Transaction) Summary {
	s := Summary{MonthKey: key.String(), TransactionCount: len(txs)}
	for _, t := range txs {
		switch t.Direction {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(t.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// ExpenseBreakdown sums expense amounts per category, largest first, with
// each share of the total expense as a percentage rounded to two places.
func ExpenseBreakdown(txs []Transaction, categories map[int64]CategoryGroup) []CategoryAmount {
	byCat := map[int64]int64{}
	var total int64
	for _, t := range txs {
		if t.Direction != Expense {
			continue
		}
		byCat[t.CategoryID] += t.Amount.Cents
		total += t.Amount.Cents
	}

	out := make([]CategoryAmount, 0, len(byCat))
	for id, cents := range byCat {
		c := categories[id]
		pct := decimal.Zero
		if total > 0 {
			pct = decimal.New(cents*100, 0).Div(decimal.New(total, 0)).Round(2)
		}
		out = append(out, CategoryAmount{
			CategoryID: id,
			Name:       c.Name,
			Color:      c.Color,
			Amount:     Money{Cents: cents},
			Percentage: pct,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SortTransactions applies the listing order: date descending, then creation
// time descending, then id descending.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}
