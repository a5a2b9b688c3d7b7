// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/secure-poll/ballotcrypto"
	"github.com/danielhkuo/secure-poll/db"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrStore      = errors.New("store error")

	// errConflict marks a failure that should be retried like a serialization conflict
	errConflict = errors.New("transaction conflict")
)

const retryBackoff = 20 * time.Millisecond

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the secure voting engine. It keeps no state of its own;
// every read goes to the database.
type Store struct {
	conn    *sql.DB
	dialect db.Dialect
	sealer  *ballotcrypto.Sealer
	retries int
	now     func() time.Time
	newID   func() string
}

// New wires a Store over an open pool. retries below 1 is treated as 1.
func New(conn *sql.DB, dialect db.Dialect, sealer *ballotcrypto.Sealer, retries int) *Store {
	if retries < 1 {
		retries = 1
	}
	return &Store{
		conn:    conn,
		dialect: dialect,
		sealer:  sealer,
		retries: retries,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// withTx runs fn in a transaction, rolling back on any error and retrying
// conflicts up to s.retries attempts. Errors other than ErrValidation and
// ErrNotFound come back wrapped in ErrStore.
func (s *Store) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !s.retryable(err) || attempt == s.retries {
			break
		}

		slog.Warn("transaction conflict, retrying", "op", op, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrStore, op, ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

func (s *Store) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// No-op after a successful commit
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) retryable(err error) bool {
	return errors.Is(err, errConflict) || s.dialect.IsRetryable(err)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}
