// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth resolves the caller identity for secure voting.

Authentication happens upstream. This service trusts the X-User-ID header
and treats its value as an opaque voter id:

	voterID, err := auth.VoterFromRequest(r)

ErrNoIdentity means the header is absent or blank. ErrInvalidIdentity means it
is too long or carries non-printable characters.

Handlers behind middleware.RequireVoter read the id from the context:

	voterID, ok := auth.VoterFrom(r.Context())
*/
package auth
