package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/floral-staffing/internal/persistence"
	"github.com/example/floral-staffing/internal/persistence/sqlite"
)

// SQLiteHarness backs persistence tests with a migrated throwaway database
// file. The repositories it exposes are the real SQLite ones, not stubs.
type SQLiteHarness struct {
	Events    persistence.EventRepository
	Resources persistence.ResourceRepository

	cleanup func()
}

// Close tears the harness down. Calling it more than once is safe; the
// testing cleanup registered by NewSQLiteHarness calls it too.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a database under the test's temporary directory,
// applies the migrations, and registers teardown with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	storage, err := sqlite.Open(filepath.Join(tb.TempDir(), "staffing.db"))
	if err != nil {
		tb.Fatalf("open storage: %v", err)
	}
	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Events:    storage.Events,
		Resources: storage.Resources,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
