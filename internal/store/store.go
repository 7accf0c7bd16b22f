// Package store is the SQLite-backed repository for users, challenges and
// submissions.
//
// Every row read from the database goes through an explicit parse step (see
// rows.go) that produces the canonical models types and fails loudly on
// values the domain does not know, instead of coercing them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps a connection pool, or a transaction when returned by Tx.
type Store struct {
	db *sql.DB
	q  queryer
	tx bool
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// DB exposes the underlying pool, used by the seed endpoint and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Tx runs fn against a transaction-bound Store. Returning an error from fn
// rolls every write back; nested calls reuse the outer transaction.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return transport("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is a no-op after Commit succeeds

	if err := fn(&Store{db: s.db, q: tx, tx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return transport("commit", err)
	}
	return nil
}

// transport wraps a driver error so callers can classify it as ErrTransport
// while keeping the original in the chain.
func transport(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrTransport, err)
}

// notFoundOr maps sql.ErrNoRows to ErrNotFound and everything else to a
// transport error.
func notFoundOr(op, what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return transport(op, err)
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
