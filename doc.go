// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the secure-poll API server.

secure-poll runs polls with ballot secrecy: each vote is stored as an
encrypted anonymous ballot, the voter's participation is recorded separately
without the choice, and a running tally is updated in the same transaction.
Voters receive a token that lets them confirm their vote was recorded.

# Starting the Server

	VOTE_ENCRYPTION_KEY=... DATABASE_URL=file:secure-poll.db go run .

Or with PostgreSQL and flags:

	go run . -t postgres -d "postgres://..." --vote-key ...

# Configuration

Required settings:

  - DATABASE_URL (-d): connection string or SQLite file URL
  - VOTE_ENCRYPTION_KEY (--vote-key): ballot secret; the server refuses to start without it

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - TX_RETRIES (--tx-retries): attempts for a conflicting transaction (default: 3)

Changing VOTE_ENCRYPTION_KEY invalidates every issued verification token and
makes stored ballots undecryptable.

# Architecture

  - ballotcrypto: ballot sealing, verification hash and token, tally chain
  - store: transactional secure voting operations
  - db: dialects, drivers and schema
  - handlers, router, middleware: HTTP surface
  - auth: caller identity from X-User-ID
  - models: request, response and domain types
  - cliparse: configuration parsing
*/
package main
