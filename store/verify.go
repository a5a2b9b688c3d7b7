// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/secure-poll/ballotcrypto"
	"github.com/danielhkuo/secure-poll/models"
)

// VerifyVote checks token against the voter's participation row. It is a
// read only; a missing row or a mismatch is a negative result, not an error.
func (s *Store) VerifyVote(ctx context.Context, pollID int64, voterID, token string) (models.VerifyResult, error) {
	if pollID <= 0 || voterID == "" {
		return models.VerifyResult{}, fmt.Errorf("%w: poll id and voter id are required", ErrValidation)
	}
	if token == "" {
		return models.VerifyResult{}, fmt.Errorf("%w: verification token is required", ErrValidation)
	}

	var (
		stored  string
		votedAt time.Time
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT verification_token, voted_at
		FROM voter_participation
		WHERE user_id = $1 AND poll_id = $2
	`, voterID, pollID).Scan(&stored, &votedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.VerifyResult{Verified: false, Error: models.MsgNoVoteFound}, nil
	}
	if err != nil {
		return models.VerifyResult{}, storeErr("read participation", err)
	}

	if !ballotcrypto.TokensEqual(stored, token) {
		return models.VerifyResult{Verified: false, Error: models.MsgVerifyFailed}, nil
	}

	return models.VerifyResult{
		Verified: true,
		Message:  models.MsgVerified,
		VotedAt:  &votedAt,
	}, nil
}
