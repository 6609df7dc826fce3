package memory

import (
	"context"
	"sort"
	"sync"

	ports "ledger/internal/sheets"
)

// Exporter keeps exported rows in memory. It backs the worker when no
// spreadsheet is configured and doubles as a test fake.
type Exporter struct {
	mu   sync.Mutex
	rows map[int64]ports.Row
}

var _ ports.TransactionExporter = (*Exporter)(nil)

func NewExporter() *Exporter {
	return &Exporter{rows: map[int64]ports.Row{}}
}

func (e *Exporter) Upsert(_ context.Context, row ports.Row) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows[row.TransactionID] = row
	return nil
}

func (e *Exporter) Remove(_ context.Context, transactionID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rows, transactionID)
	return nil
}

// Rows returns a snapshot ordered by transaction id.
func (e *Exporter) Rows() []ports.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ports.Row, 0, len(e.rows))
	for _, r := range e.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out
}
