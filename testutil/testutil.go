// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/secure-poll/ballotcrypto"
	"github.com/danielhkuo/secure-poll/cliparse"
	"github.com/danielhkuo/secure-poll/db"
	"github.com/danielhkuo/secure-poll/models"
	"github.com/danielhkuo/secure-poll/store"
)

// TestVoteKey is the ballot secret used by every test store
const TestVoteKey = "test-vote-encryption-key"

// SetupTestDB opens a fresh SQLite database in the test's temp dir with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := "file:" + filepath.Join(t.TempDir(), "secure-poll.db")
	conn, err := db.Open(db.SQLite, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn, db.SQLite); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// SetupTestStore returns a Store over a fresh database, plus the raw connection
// for assertions against the tables.
func SetupTestStore(t *testing.T) (*store.Store, *sql.DB) {
	t.Helper()

	conn := SetupTestDB(t)
	cfg := GetTestConfig()

	sealer, err := ballotcrypto.NewSealer(cfg.VoteEncryptionKey)
	if err != nil {
		t.Fatalf("Failed to create sealer: %v", err)
	}

	return store.New(conn, db.SQLite, sealer, cfg.TxRetries), conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       "file::memory:",
		DatabaseType:      cliparse.DatabaseSQLite,
		VoteEncryptionKey: TestVoteKey,
		TxRetries:         5,
	}
}

// CreateTestPoll creates a secure poll with the given option texts
func CreateTestPoll(t *testing.T, st *store.Store, title string, options ...string) models.PollWithOptions {
	t.Helper()

	if len(options) == 0 {
		options = []string{"Yes", "No"}
	}

	poll, err := st.CreateSecurePoll(context.Background(), title, "A test poll", "creator", false, options)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return poll
}

// OptionID returns the id of the option with the given text
func OptionID(t *testing.T, poll models.PollWithOptions, text string) int64 {
	t.Helper()

	for _, opt := range poll.Options {
		if opt.Text == text {
			return opt.ID
		}
	}
	t.Fatalf("Poll %d has no option %q", poll.Poll.ID, text)
	return 0
}

// CountRows returns the number of rows in table matching where
func CountRows(t *testing.T, conn *sql.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
