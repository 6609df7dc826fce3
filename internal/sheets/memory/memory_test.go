package memory

import (
	"context"
	"testing"

	ports "ledger/internal/sheets"
)

func TestExporter_UpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	e := NewExporter()

	for _, r := range []ports.Row{
		{TransactionID: 9, Amount: "-5.00"},
		{TransactionID: 3, Amount: "+10.00"},
		{TransactionID: 9, Amount: "-7.50"},
	} {
		if err := e.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert(%d): %v", r.TransactionID, err)
		}
	}

	rows := e.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].TransactionID != 3 || rows[1].TransactionID != 9 {
		t.Fatalf("rows not ordered by id: %+v", rows)
	}
	if rows[1].Amount != "-7.50" {
		t.Fatalf("upsert did not replace row 9: %+v", rows[1])
	}

	if err := e.Remove(ctx, 9); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := e.Remove(ctx, 42); err != nil {
		t.Fatalf("Remove(missing): %v", err)
	}
	if rows := e.Rows(); len(rows) != 1 || rows[0].TransactionID != 3 {
		t.Fatalf("after remove: %+v", rows)
	}
}
