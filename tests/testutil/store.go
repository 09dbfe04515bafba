package testutil

import (
	"testing"

	"github.com/nhle/worklog/internal/store"
)

// NewTestStores creates a Stores facade backed by a temporary data
// directory. The directory is removed when the test completes.
func NewTestStores(t *testing.T) *store.Stores {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("opening test stores: %v", err)
	}

	return st
}
