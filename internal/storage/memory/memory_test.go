package memory

import (
	"testing"

	"ledger/internal/storage"
	"ledger/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return New()
	})
}
