package db

import (
	"context"
	"path/filepath"
	"testing"
)

// NewTestDB creates a fresh file-backed SQLite database with the schema
// applied. A file is used instead of :memory: so every pooled connection sees
// the same data.
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite3")
	database, err := Open(context.Background(), SQLite, path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := Migrate(database); err != nil {
		database.Close()
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() { database.Close() })

	return database
}
