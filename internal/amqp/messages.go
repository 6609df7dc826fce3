package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// LedgerEventMessage is the wire form of a core.LedgerEvent. It carries the
// full transaction snapshot so the worker never reads the ledger database.
type LedgerEventMessage struct {
	MessageID   string             `json:"message_id"`
	Type        core.EventType     `json:"type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Transaction TransactionPayload `json:"transaction"`
}

type TransactionPayload struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	AccountID   int64  `json:"account_id"`
	AccountName string `json:"account_name,omitempty"`
	CategoryID  int64  `json:"category_id"`
	Category    string `json:"category,omitempty"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// NewLedgerEventMessage wraps ev with a fresh message id.
func NewLedgerEventMessage(ev core.LedgerEvent) *LedgerEventMessage {
	t := ev.Transaction
	return &LedgerEventMessage{
		MessageID:  uuid.NewString(),
		Type:       ev.Type,
		OccurredAt: ev.OccurredAt,
		Transaction: TransactionPayload{
			ID:          t.ID,
			UserID:      t.UserID,
			AccountID:   t.AccountID,
			AccountName: ev.AccountName,
			CategoryID:  t.CategoryID,
			Category:    ev.Category,
			Direction:   string(t.Direction),
			Amount:      t.Amount.String(),
			Description: t.Description,
			Date:        t.Date.String(),
		},
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Transaction.ID == 0 {
		return nil, fmt.Errorf("ledger event message without transaction id")
	}
	return &msg, nil
}

// Event converts the message back into a ledger event.
func (m *LedgerEventMessage) Event() (core.LedgerEvent, error) {
	p := m.Transaction
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("parse amount %q: %w", p.Amount, core.ErrInvalidAmount)
	}
	money, err := core.FromDecimal(amount)
	if err != nil {
		return core.LedgerEvent{}, fmt.Errorf("parse amount %q: %w", p.Amount, err)
	}
	date, err := core.ParseDate(p.Date)
	if err != nil {
		return core.LedgerEvent{}, err
	}
	return core.LedgerEvent{
		Type: m.Type,
		Transaction: core.Transaction{
			ID:          p.ID,
			UserID:      p.UserID,
			AccountID:   p.AccountID,
			CategoryID:  p.CategoryID,
			Direction:   core.Direction(p.Direction),
			Amount:      money,
			Description: p.Description,
			Date:        date,
		},
		AccountName: p.AccountName,
		Category:    p.Category,
		OccurredAt:  m.OccurredAt,
	}, nil
}
