// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect Dialect) error {
	schema := postgresSchema
	if dialect == SQLite {
		schema = sqliteSchema
	}

	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const postgresSchema = `
-- Polls (standard and secure share one table; is_secure never changes)
CREATE TABLE IF NOT EXISTS polls (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    created_by TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    allow_multiple_choices BOOLEAN NOT NULL DEFAULT FALSE,
    is_secure BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_polls_is_secure ON polls(is_secure);

-- Options are interned by text across polls
CREATE TABLE IF NOT EXISTS options (
    id BIGSERIAL PRIMARY KEY,
    option_text TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS poll_options (
    poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_id BIGINT NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    PRIMARY KEY (poll_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_poll_options_option_id ON poll_options(option_id);

-- Anonymous ballots: no voter column, ever
CREATE TABLE IF NOT EXISTS anonymous_votes (
    vote_id TEXT PRIMARY KEY,
    poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_id BIGINT NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    encrypted_choice TEXT NOT NULL,
    vote_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_anonymous_votes_poll_id ON anonymous_votes(poll_id);

-- Voter participation: the only voter-to-poll link, carries no option
CREATE TABLE IF NOT EXISTS voter_participation (
    user_id TEXT NOT NULL,
    poll_id BIGINT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    verification_token TEXT NOT NULL,
    voted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, poll_id)
);

CREATE INDEX IF NOT EXISTS idx_voter_participation_poll_id ON voter_participation(poll_id);

-- Running tally, one row per poll
CREATE TABLE IF NOT EXISTS encrypted_tallies (
    poll_id BIGINT PRIMARY KEY REFERENCES polls(id) ON DELETE CASCADE,
    tally_data JSONB NOT NULL DEFAULT '{}'::jsonb,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS polls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT,
    created_by TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    allow_multiple_choices BOOLEAN NOT NULL DEFAULT 0,
    is_secure BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_polls_is_secure ON polls(is_secure);

CREATE TABLE IF NOT EXISTS options (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    option_text TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS poll_options (
    poll_id INTEGER NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_id INTEGER NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    PRIMARY KEY (poll_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_poll_options_option_id ON poll_options(option_id);

CREATE TABLE IF NOT EXISTS anonymous_votes (
    vote_id TEXT PRIMARY KEY,
    poll_id INTEGER NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    option_id INTEGER NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    encrypted_choice TEXT NOT NULL,
    vote_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_anonymous_votes_poll_id ON anonymous_votes(poll_id);

CREATE TABLE IF NOT EXISTS voter_participation (
    user_id TEXT NOT NULL,
    poll_id INTEGER NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    verification_token TEXT NOT NULL,
    voted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, poll_id)
);

CREATE INDEX IF NOT EXISTS idx_voter_participation_poll_id ON voter_participation(poll_id);

CREATE TABLE IF NOT EXISTS encrypted_tallies (
    poll_id INTEGER PRIMARY KEY REFERENCES polls(id) ON DELETE CASCADE,
    tally_data TEXT NOT NULL DEFAULT '{}',
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
