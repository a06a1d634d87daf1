package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate brings the schema up to the latest version. It runs on a dedicated
// connection pool that is closed afterwards, leaving db's pool untouched.
func Migrate(db *DB) error {
	src, err := iofs.New(migrationsFS, "migrations/"+db.Dialect.String())
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}

	conn, err := sql.Open(db.Dialect.DriverName(), db.dsn)
	if err != nil {
		src.Close()
		return fmt.Errorf("opening migration connection: %w", err)
	}

	var driver database.Driver
	switch db.Dialect {
	case Postgres:
		driver, err = migratepgx.WithInstance(conn, &migratepgx.Config{})
	default:
		driver, err = migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	}
	if err != nil {
		src.Close()
		conn.Close()
		return fmt.Errorf("preparing migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Dialect.String(), driver)
	if err != nil {
		src.Close()
		driver.Close()
		return fmt.Errorf("preparing migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	slog.Debug("schema migrated", "dialect", db.Dialect.String(), "version", version, "dirty", dirty)
	return nil
}
