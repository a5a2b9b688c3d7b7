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

// SubmitVote records one secure ballot for voterID. The anonymous ballot,
// the participation upsert and the tally increment commit together or not at all.
//
// Re-voting overwrites the participation token but adds to the tally again;
// the earlier option is not decremented.
func (s *Store) SubmitVote(ctx context.Context, pollID, optionID int64, voterID string) (models.Receipt, error) {
	if pollID <= 0 || optionID <= 0 {
		return models.Receipt{}, fmt.Errorf("%w: poll id and option id are required", ErrValidation)
	}
	if voterID == "" {
		return models.Receipt{}, fmt.Errorf("%w: voter id is required", ErrValidation)
	}

	var receipt models.Receipt
	err := s.withTx(ctx, "submit vote", func(tx *sql.Tx) error {
		if err := s.checkPollOption(ctx, tx, pollID, optionID); err != nil {
			return err
		}

		// Random v4, not time-ordered
		ballotID := s.newID()
		now := s.now().UTC()

		ballot := ballotcrypto.BallotData{PollID: pollID, OptionID: optionID, Timestamp: now}
		ciphertext, salt, err := s.sealer.EncryptBallot(ballot)
		if err != nil {
			return err
		}
		hash := ballotcrypto.VerificationHash(ballot, salt)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO anonymous_votes (vote_id, poll_id, option_id, encrypted_choice, vote_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ballotID, pollID, optionID, ciphertext, hash, now)
		if err != nil {
			if s.dialect.IsUniqueViolation(err) {
				return fmt.Errorf("%w: ballot id collision: %w", errConflict, err)
			}
			return fmt.Errorf("insert ballot: %w", err)
		}

		token := s.sealer.VerificationToken(ballotID, hash)

		var existed bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM voter_participation
				WHERE user_id = $1 AND poll_id = $2
			)
		`, voterID, pollID).Scan(&existed)
		if err != nil {
			return fmt.Errorf("check participation: %w", err)
		}

		// The primary key on (user_id, poll_id) makes a racing double submit an overwrite
		_, err = tx.ExecContext(ctx, `
			INSERT INTO voter_participation (user_id, poll_id, verification_token, voted_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, poll_id)
			DO UPDATE SET verification_token = excluded.verification_token, voted_at = excluded.voted_at
		`, voterID, pollID, token, now)
		if err != nil {
			return fmt.Errorf("upsert participation: %w", err)
		}

		if err := s.incrementTally(ctx, tx, pollID, optionID, now); err != nil {
			return err
		}

		receipt = models.Receipt{
			PollID:            pollID,
			VerificationToken: token,
			Updated:           existed,
		}
		return nil
	})
	if err != nil {
		return models.Receipt{}, err
	}

	return receipt, nil
}

// checkPollOption fails with ErrNotFound unless pollID is a secure poll linked to optionID.
func (s *Store) checkPollOption(ctx context.Context, q querier, pollID, optionID int64) error {
	var isSecure bool
	err := q.QueryRowContext(ctx, `
		SELECT p.is_secure
		FROM polls p
		JOIN poll_options po ON po.poll_id = p.id
		WHERE p.id = $1 AND po.option_id = $2
	`, pollID, optionID).Scan(&isSecure)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: poll %d has no option %d", ErrNotFound, pollID, optionID)
	}
	if err != nil {
		return fmt.Errorf("check poll option: %w", err)
	}
	if !isSecure {
		return fmt.Errorf("%w: poll %d is not a secure poll", ErrNotFound, pollID)
	}
	return nil
}

// incrementTally is the read-modify-write of the poll's tally row. The row is
// seeded first so the locking read always has something to lock.
func (s *Store) incrementTally(ctx context.Context, tx *sql.Tx, pollID, optionID int64, now time.Time) error {
	if err := seedTally(ctx, tx, pollID, now); err != nil {
		return err
	}

	var raw []byte
	err := tx.QueryRowContext(ctx,
		`SELECT tally_data FROM encrypted_tallies WHERE poll_id = $1`+s.dialect.LockClause(),
		pollID,
	).Scan(&raw)
	if err != nil {
		return fmt.Errorf("read tally: %w", err)
	}

	current, err := ballotcrypto.ParseTally(raw)
	if err != nil {
		return err
	}

	encoded, err := ballotcrypto.UpdateTally(current, optionID, now).Encode()
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE encrypted_tallies
		SET tally_data = $1, updated_at = $2
		WHERE poll_id = $3
	`, encoded, now, pollID)
	if err != nil {
		return fmt.Errorf("write tally: %w", err)
	}
	return nil
}

// GetTallyCounts returns option id -> count for a poll. Options that have
// never received a vote have no key, so a missing key means zero. A poll with
// no tally row or no votes yields an empty map, not an error.
func (s *Store) GetTallyCounts(ctx context.Context, pollID int64) (map[int64]int64, error) {
	tally, err := s.readTally(ctx, s.conn, pollID)
	if err != nil {
		return nil, err
	}
	return ballotcrypto.CountsFromTally(tally), nil
}

func (s *Store) readTally(ctx context.Context, q querier, pollID int64) (ballotcrypto.Tally, error) {
	var raw []byte
	err := q.QueryRowContext(ctx, `
		SELECT tally_data FROM encrypted_tallies WHERE poll_id = $1
	`, pollID).Scan(&raw)

	if errors.Is(err, sql.ErrNoRows) {
		return ballotcrypto.Tally{}, nil
	}
	if err != nil {
		return nil, storeErr("read tally", err)
	}

	tally, err := ballotcrypto.ParseTally(raw)
	if err != nil {
		return nil, storeErr("read tally", err)
	}
	return tally, nil
}

// HasVoted reports whether a participation row exists for (voterID, pollID).
func (s *Store) HasVoted(ctx context.Context, voterID string, pollID int64) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM voter_participation
			WHERE user_id = $1 AND poll_id = $2
		)
	`, voterID, pollID).Scan(&exists)
	if err != nil {
		return false, storeErr("check participation", err)
	}
	return exists, nil
}
