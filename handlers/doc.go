// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for secure polls.

SecureVoteHandler is a thin JSON layer over store.Store:

	h := handlers.NewSecureVoteHandler(st)

Handlers that act for a voter expect middleware.RequireVoter to have placed
the X-User-ID value in the request context.

# Status Codes

Store errors are mapped in one place:

  - store.ErrValidation: 400 with the validation message
  - store.ErrNotFound: 404
  - anything else: 500 "Database error", cause logged only

A failed verification is not an error. It returns 200 with verified=false
and a generic message that never echoes the token.

# Messages

SubmitVote answers "Vote successfully cast" for a first ballot and
"Your vote has been updated!" when the voter had already voted. VerifyVote
reports when the voter last voted in relative form ("3 minutes ago").
*/
package handlers
