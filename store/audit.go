// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/secure-poll/ballotcrypto"
	"github.com/danielhkuo/secure-poll/models"
)

// AuditTally decrypts every anonymous ballot of a poll and recounts them
// against the running tally. Ballots that fail to decrypt are counted, never raised.
func (s *Store) AuditTally(ctx context.Context, pollID int64) (models.AuditReport, error) {
	if pollID <= 0 {
		return models.AuditReport{}, fmt.Errorf("%w: poll id is required", ErrValidation)
	}

	report := models.AuditReport{
		PollID:  pollID,
		Recount: map[int64]int64{},
	}

	var tallyTotal int64

	// One transaction so the ballots and the tally are read from the same state
	err := s.withTx(ctx, "audit tally", func(tx *sql.Tx) error {
		report.BallotCount = 0
		report.Undecryptable = 0
		report.HashMismatches = 0
		report.Recount = map[int64]int64{}

		tally, err := s.readTally(ctx, tx, pollID)
		if err != nil {
			return err
		}
		report.TallyCounts = ballotcrypto.CountsFromTally(tally)
		tallyTotal = tally.Total()

		rows, err := tx.QueryContext(ctx, `
			SELECT option_id, encrypted_choice, vote_hash
			FROM anonymous_votes
			WHERE poll_id = $1
		`, pollID)
		if err != nil {
			return fmt.Errorf("query ballots: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				optionID   int64
				ciphertext string
				hash       string
			)
			if err := rows.Scan(&optionID, &ciphertext, &hash); err != nil {
				return fmt.Errorf("scan ballot: %w", err)
			}
			report.BallotCount++

			ballot, salt, err := s.sealer.DecryptBallot(ciphertext)
			if err != nil {
				report.Undecryptable++
				continue
			}
			if ballot.PollID != pollID || ballot.OptionID != optionID ||
				ballotcrypto.VerificationHash(ballot, salt) != hash {
				report.HashMismatches++
				continue
			}
			report.Recount[ballot.OptionID]++
		}
		return rows.Err()
	})
	if err != nil {
		return models.AuditReport{}, err
	}

	report.Consistent = report.Undecryptable == 0 &&
		report.HashMismatches == 0 &&
		countsEqual(report.TallyCounts, report.Recount)

	if !report.Consistent {
		slog.Warn("tally audit found inconsistencies",
			"poll_id", pollID,
			"ballots", humanize.Comma(report.BallotCount),
			"tally_total", humanize.Comma(tallyTotal),
			"undecryptable", report.Undecryptable,
			"hash_mismatches", report.HashMismatches,
		)
	} else {
		slog.Info("tally audit passed", "poll_id", pollID, "ballots", humanize.Comma(report.BallotCount))
	}

	return report, nil
}

// countsEqual treats a missing key and a zero count as the same.
func countsEqual(a, b map[int64]int64) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if a[k] != v {
			return false
		}
	}
	return true
}
