package services

import (
	"fmt"

	"ledger/internal/core"
)

// Guard holds the stateless access policy applied before every ledger
// operation. Ownership failures look exactly like missing entities; admin
// gates fail with ErrForbidden because the target legitimately exists.
type Guard struct{}

// Owned reports ErrNotFound unless actor owns the entity.
func (Guard) Owned(actor core.User, ownerID int64, what string, id int64) error {
	if actor.ID == 0 || actor.ID != ownerID {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	return nil
}

func (Guard) RequireAdmin(actor core.User) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("user management requires admin role: %w", core.ErrForbidden)
	}
	return nil
}

// CanDeleteUser rejects an admin removing their own account.
func (Guard) CanDeleteUser(actor core.User, targetID int64) error {
	if actor.ID == targetID {
		return fmt.Errorf("user %d: %w", targetID, core.ErrSelfDeletion)
	}
	return nil
}

// RequireActive rejects deactivated users at authentication time.
func (Guard) RequireActive(u core.User) error {
	if !u.Active {
		return fmt.Errorf("user %q is inactive: %w", u.Username, core.ErrUnauthenticated)
	}
	return nil
}
