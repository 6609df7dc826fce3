package core

import "errors"

// Failure kinds surfaced by the ledger. Callers match them with errors.Is;
// operations wrap them with the offending entity or value.
var (
	ErrDuplicateName     = errors.New("duplicate name")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidReference  = errors.New("invalid reference")
	ErrDirectionMismatch = errors.New("direction mismatch")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSelfDeletion      = errors.New("cannot delete own account")
	ErrUnauthenticated   = errors.New("unauthenticated")
)
