package core

import "time"

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
)

type EventType string

// LedgerEvent describes a committed change to a transaction. It carries a
// snapshot so consumers never read the store.
type LedgerEvent struct {
	Type        EventType
	Transaction Transaction
	AccountName string
	Category    string
	OccurredAt  time.Time
}
