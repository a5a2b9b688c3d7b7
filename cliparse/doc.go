// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing from CLI flags and environment.

# Usage

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Priority

Configuration is resolved in order:

 1. CLI flags (highest priority)
 2. Environment variables
 3. A .env file in the working directory (never overrides set variables)
 4. Default values (lowest priority)

# Flags

	-p           Server port
	-d           Database URL
	-t           Database type (sqlite or postgres)
	-tx-retries  Attempts for a transaction that hits a serialization conflict
	-vote-key    Vote encryption key (prefer env)

# Environment Variables

	PORT                 Server port (default: 3318)
	DATABASE_URL         Database connection string (required)
	DATABASE_TYPE        sqlite or postgres (default: sqlite)
	TX_RETRIES           Serialization conflict attempts (default: 3)
	VOTE_ENCRYPTION_KEY  Ballot encryption and token secret (required)

# Required Settings

DATABASE_URL and VOTE_ENCRYPTION_KEY must be provided. The server refuses to
start without a vote key; there is no built-in default.
*/
package cliparse
