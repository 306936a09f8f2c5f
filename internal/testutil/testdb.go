package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/sitepilot/internal/db"
)

// NewTestDB returns a migrated in-memory store closed with the test.
func NewTestDB(t *testing.T) *sql.DB {
	return openTestDB(t, db.MemoryPath)
}

// NewFileTestDB returns a migrated store under t.TempDir. Concurrency tests
// need it: the in-memory store is limited to one connection.
func NewFileTestDB(t *testing.T) *sql.DB {
	return openTestDB(t, filepath.Join(t.TempDir(), "sitepilot.db"))
}

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(path)
	if err != nil {
		t.Fatalf("opening test database %s: %v", path, err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}
