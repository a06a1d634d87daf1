package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := `SELECT * FROM items WHERE name = ? AND notes <> 'why?' AND id IN (?, ?)`

	assert.Equal(t, q, SQLite.Rebind(q))
	assert.Equal(t,
		`SELECT * FROM items WHERE name = $1 AND notes <> 'why?' AND id IN ($2, $3)`,
		Postgres.Rebind(q))
	assert.Equal(t, "SELECT 1", Postgres.Rebind("SELECT 1"))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	d, err = ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)
	assert.Equal(t, "pgx", d.DriverName())

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	database := NewTestDB(t)

	for _, table := range []string{"categories", "locations", "items", "item_events", "inventory", "movements", "item_vectors"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}

	var fk int
	require.NoError(t, database.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hisa.sqlite3")
	ctx := context.Background()

	for range 2 {
		database, err := Open(ctx, SQLite, path)
		require.NoError(t, err)
		require.NoError(t, Migrate(database))
		require.NoError(t, database.Close())
	}
}

func TestMovementsAreAppendOnly(t *testing.T) {
	database := NewTestDB(t)
	now := time.Now().UTC()

	var itemID int64
	require.NoError(t, database.QueryRow(
		`INSERT INTO items (name, created_at, updated_at) VALUES ('Drill', ?, ?) RETURNING id`, now, now,
	).Scan(&itemID))

	_, err := database.Exec(
		`INSERT INTO movements (item_id, kind, to_location_id, to_location_path, item_name, quantity, created_at)
		 VALUES (?, 'assign', 1, 'House', 'Drill', 3, ?)`, itemID, now)
	require.NoError(t, err)

	_, err = database.Exec(`UPDATE movements SET quantity = 5`)
	assert.ErrorContains(t, err, "append-only")
	_, err = database.Exec(`DELETE FROM movements`)
	assert.ErrorContains(t, err, "append-only")
}

func TestIsUniqueViolation(t *testing.T) {
	database := NewTestDB(t)
	now := time.Now().UTC()

	insert := `INSERT INTO items (name, serial_number, created_at, updated_at) VALUES ('Drill', 'SN-1', ?, ?)`
	_, err := database.Exec(insert, now, now)
	require.NoError(t, err)

	_, err = database.Exec(insert, now, now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(assert.AnError))
}
