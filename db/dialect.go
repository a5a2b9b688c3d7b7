// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects driver, schema and locking behavior.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// SQLSTATE codes we act on
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

// sqlite connection settings: writers serialize on BEGIN IMMEDIATE and wait
// instead of failing straight away.
var sqlitePragmas = []string{
	"_pragma=busy_timeout(5000)",
	"_pragma=foreign_keys(1)",
	"_pragma=journal_mode(WAL)",
	"_time_format=sqlite",
	"_txlock=immediate",
}

// ParseDialect maps a configured database type to a Dialect.
func ParseDialect(dbType string) (Dialect, error) {
	switch Dialect(dbType) {
	case Postgres, SQLite:
		return Dialect(dbType), nil
	default:
		return "", fmt.Errorf("unsupported database type %q", dbType)
	}
}

// Open connects using the driver for dialect. The caller owns the returned pool.
func Open(dialect Dialect, url string) (*sql.DB, error) {
	switch dialect {
	case Postgres:
		return sql.Open("postgres", url)
	case SQLite:
		return sql.Open("sqlite", sqliteDSN(url))
	default:
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}
}

func sqliteDSN(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + strings.Join(sqlitePragmas, "&")
}

// LockClause is appended to a SELECT that reads a row it will rewrite.
// SQLite transactions already hold the database write lock.
func (d Dialect) LockClause() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// IsRetryable reports whether err is a transaction conflict worth retrying.
func (d Dialect) IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}

	return false
}

// IsUniqueViolation reports whether err is a unique or primary key violation.
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}

	return false
}
