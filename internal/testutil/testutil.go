package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/chida-tennis/chida-crawler/internal/store"
)

// NewTestStore creates a temporary SQLite store with migrations applied.
func NewTestStore(t *testing.T) *store.SQLite {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}
