package worker

import (
	"context"
	"fmt"
	"log/slog"

	"ledger/internal/core"
	"ledger/internal/sheets"
)

// ExportWorker mirrors ledger events into a spreadsheet.
type ExportWorker struct {
	exporter sheets.TransactionExporter
}

func NewExportWorker(exporter sheets.TransactionExporter) *ExportWorker {
	return &ExportWorker{exporter: exporter}
}

// HandleEvent applies one ledger event. A returned error asks the broker to
// redeliver the event.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	id := ev.Transaction.ID
	slog.InfoContext(ctx, "Processing ledger event", "type", ev.Type, "id", id)

	switch ev.Type {
	case core.EventTransactionCreated, core.EventTransactionUpdated:
		if err := w.exporter.Upsert(ctx, sheets.RowFromEvent(ev)); err != nil {
			return fmt.Errorf("export transaction %d: %w", id, err)
		}
		slog.InfoContext(ctx, "Successfully exported transaction",
			"id", id,
			"amount", ev.Transaction.Amount.Signed(ev.Transaction.Direction),
			"date", ev.Transaction.Date.String())

	case core.EventTransactionDeleted:
		if err := w.exporter.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove transaction %d: %w", id, err)
		}
		slog.InfoContext(ctx, "Successfully removed exported transaction", "id", id)

	default:
		// Unknown types are acknowledged so they do not loop forever.
		slog.WarnContext(ctx, "Ignoring unknown ledger event type", "type", ev.Type, "id", id)
	}
	return nil
}
