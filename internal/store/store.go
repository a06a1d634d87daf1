// Package store persists categories, locations, items and the inventory
// ledger. Every write runs in one database transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/hisa/internal/apperr"
	"github.com/erazemk/hisa/internal/db"
)

// Store is the repository over the relational database.
type Store struct {
	db *db.DB

	// Now is the clock used for timestamps. Tests may replace it.
	Now func() time.Time
}

// New returns a Store backed by database.
func New(database *db.DB) *Store {
	return &Store{
		db:  database,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

// DB returns the underlying database handle.
func (s *Store) DB() *db.DB { return s.db }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx runs store operations against one transaction. Outside InTx, reads use
// a Tx bound to the pool directly.
type Tx struct {
	q       querier
	dialect db.Dialect
	now     time.Time
}

func (tx *Tx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.q.ExecContext(ctx, tx.dialect.Rebind(query), args...)
}

func (tx *Tx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return tx.q.QueryContext(ctx, tx.dialect.Rebind(query), args...)
}

func (tx *Tx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.q.QueryRowContext(ctx, tx.dialect.Rebind(query), args...)
}

// Now returns the timestamp shared by every write in the transaction.
func (tx *Tx) Now() time.Time { return tx.now }

// InTx runs fn in a transaction, committing when fn returns nil and rolling
// back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Infra("beginning transaction", err)
	}
	defer sqlTx.Rollback()

	tx := &Tx{q: sqlTx, dialect: s.db.Dialect, now: s.Now().UTC()}
	if err := fn(tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return apperr.Infra("committing transaction", err)
	}
	return nil
}

// View returns a Tx that reads through the pool without a transaction.
func (s *Store) View() *Tx {
	return &Tx{q: s.db.DB, dialect: s.db.Dialect, now: s.Now().UTC()}
}

func inTx[T any](ctx context.Context, s *Store, fn func(tx *Tx) (T, error)) (T, error) {
	var out T
	err := s.InTx(ctx, func(tx *Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})
	return out, err
}

type scanner interface {
	Scan(dest ...any) error
}

// wrap turns a driver error into an InfrastructureError, leaving business
// errors as they are.
func wrap(op string, err error) error {
	return apperr.Infra(op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}

// placeholders returns "?, ?, ..." with n marks.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
