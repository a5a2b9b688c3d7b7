// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"
)

// VoterHeader carries the caller identity set by the upstream authentication layer
const VoterHeader = "X-User-ID"

const maxVoterIDLen = 256

var (
	ErrNoIdentity      = errors.New("missing voter identity")
	ErrInvalidIdentity = errors.New("invalid voter identity")
)

type contextKey struct{}

// VoterFromRequest reads the caller identity from VoterHeader.
// The value is opaque; only length and printable characters are checked.
func VoterFromRequest(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(VoterHeader))
	if id == "" {
		return "", ErrNoIdentity
	}
	if len(id) > maxVoterIDLen {
		return "", ErrInvalidIdentity
	}
	for _, c := range id {
		if !unicode.IsPrint(c) {
			return "", ErrInvalidIdentity
		}
	}
	return id, nil
}

// WithVoter returns a copy of ctx carrying voterID
func WithVoter(ctx context.Context, voterID string) context.Context {
	return context.WithValue(ctx, contextKey{}, voterID)
}

// VoterFrom returns the voter stored by WithVoter
func VoterFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}
