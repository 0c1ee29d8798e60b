// Package testing provides testing utilities and helpers for the stockwatch project.
package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/stockwatch/internal/database"
)

// NewTestDB creates a temporary file-backed SQLite database with the named
// schema applied ("stocks" for the stock store). Unknown names yield an empty
// database. The returned cleanup closes the connection and is safe to call twice.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// t.TempDir is removed by the testing package once the test finishes
	tmpPath := filepath.Join(t.TempDir(), "test_"+name+".db")

	db, err := database.New(database.Config{
		Path: tmpPath,
		Name: name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		_ = os.Remove(tmpPath)
	}
}
