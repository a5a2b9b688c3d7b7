// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections and schema creation.

# Dialects

Two stores are supported:

  - Postgres: lib/pq, row locks with SELECT ... FOR UPDATE
  - SQLite: modernc.org/sqlite, BEGIN IMMEDIATE with a busy timeout and WAL

Pick one from configuration and open a pool:

	dialect, err := db.ParseDialect(cfg.DatabaseType)
	conn, err := db.Open(dialect, cfg.DatabaseURL)

Dialect also classifies driver errors: IsRetryable for serialization
failures, deadlocks and busy databases; IsUniqueViolation for key clashes.

# Schema Creation

	if err := db.CreateSchema(conn, dialect); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - polls: Poll metadata, including the is_secure mode tag
  - options: Option texts, unique across all polls
  - poll_options: Which options belong to which poll
  - anonymous_votes: Encrypted ballots with no voter column
  - voter_participation: One row per (user, poll), holding the verification token
  - encrypted_tallies: Running per-option counts for each poll

# Relationships

	polls *──* options (via poll_options)
	polls 1──* anonymous_votes
	polls 1──* voter_participation
	polls 1──1 encrypted_tallies

anonymous_votes and voter_participation share nothing but poll_id. That gap
is what keeps ballots secret.
*/
package db
