package db

import (
	"context"
	"path/filepath"
	"testing"
)

// OpenTestStore opens a migrated history store in t.TempDir() and registers
// cleanup.
func OpenTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.sqlite")
	store, err := OpenStore(context.Background(), path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
