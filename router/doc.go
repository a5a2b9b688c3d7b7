// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the secure poll API.

	mux := router.NewRouter(st)

# Endpoints

Health:

	GET /health - 200 OK, or 503 when the database is unreachable

Public:

	GET /secure                  - Secure polls with options
	GET /secure/poll/{id}        - One secure poll
	GET /secure/poll/{id}/votes  - Tally counts by option id (options without votes are omitted)
	GET /secure/poll/{id}/audit  - Recount of decrypted ballots against the tally

Voter (requires X-User-ID):

	POST /secure/create           - Create a secure poll
	GET  /secure/poll/{id}/status - Has the caller voted
	POST /secure/vote             - Cast or replace a ballot, returns a verification token
	POST /secure/verify           - Check a verification token
*/
package router
