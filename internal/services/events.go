package services

import (
	"context"
	"log/slog"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// EventPublisher receives ledger events after the write they describe has
// been committed.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
}

// notifier publishes events without ever failing the caller: the write is
// already persisted when it runs.
type notifier struct {
	events EventPublisher
	now    func() time.Time
}

func (n notifier) publish(ctx context.Context, typ core.EventType, tx core.Transaction, accountName, category string) {
	if n.events == nil {
		slog.DebugContext(ctx, "No event publisher configured, skipping ledger event", "type", typ, "id", tx.ID)
		return
	}

	ev := core.LedgerEvent{
		Type:        typ,
		Transaction: tx,
		AccountName: accountName,
		Category:    category,
		OccurredAt:  n.now().UTC(),
	}
	if err := n.events.PublishLedgerEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", typ,
			"id", tx.ID,
			"error", err)
		// Don't fail the request - the change is saved locally
	}
}

// publishRemoved emits a deleted event for every transaction a cascading
// delete is about to remove.
func (n notifier) publishRemoved(ctx context.Context, txs []core.Transaction) {
	for _, tx := range txs {
		n.publish(ctx, core.EventTransactionDeleted, tx, "", "")
	}
}

// cascadeVictims lists the transactions of the given accounts.
func cascadeVictims(ctx context.Context, store storage.TransactionStore, accountIDs ...int64) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, id := range accountIDs {
		txs, err := store.ListAccountTransactions(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, txs...)
	}
	return out, nil
}
