// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danielhkuo/secure-poll/models"
)

// CreateSecurePoll inserts a poll tagged secure, interns its option texts,
// links them and seeds an empty tally, all in one transaction.
// creatorID may be empty for an anonymous creator.
func (s *Store) CreateSecurePoll(ctx context.Context, title, description, creatorID string, allowMultiple bool, optionTexts []string) (models.PollWithOptions, error) {
	if strings.TrimSpace(title) == "" {
		return models.PollWithOptions{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := validateOptionTexts(optionTexts); err != nil {
		return models.PollWithOptions{}, err
	}

	var result models.PollWithOptions
	err := s.withTx(ctx, "create secure poll", func(tx *sql.Tx) error {
		now := s.now().UTC()

		poll := models.Poll{
			Title:                title,
			Description:          description,
			CreatedBy:            nullableString(creatorID),
			CreatedAt:            now,
			AllowMultipleChoices: allowMultiple,
			IsSecure:             true,
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO polls (title, description, created_by, created_at, allow_multiple_choices, is_secure)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, title, nullableString(description), poll.CreatedBy, now, allowMultiple, true).Scan(&poll.ID)
		if err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}

		options := make([]models.Option, 0, len(optionTexts))
		for _, text := range optionTexts {
			optionID, err := internOption(ctx, tx, text)
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO poll_options (poll_id, option_id)
				VALUES ($1, $2)
			`, poll.ID, optionID)
			if err != nil {
				return fmt.Errorf("link option: %w", err)
			}

			options = append(options, models.Option{ID: optionID, Text: text})
		}

		if err := seedTally(ctx, tx, poll.ID, now); err != nil {
			return err
		}

		sort.Slice(options, func(i, j int) bool { return options[i].ID < options[j].ID })
		result = models.PollWithOptions{Poll: poll, Options: options}
		return nil
	})
	if err != nil {
		return models.PollWithOptions{}, err
	}

	return result, nil
}

func validateOptionTexts(texts []string) error {
	if len(texts) < 2 {
		return fmt.Errorf("%w: at least 2 options are required", ErrValidation)
	}

	// Case-sensitive, like the unique index on option_text
	seen := make(map[string]bool, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: option text cannot be empty", ErrValidation)
		}
		if seen[text] {
			return fmt.Errorf("%w: duplicate option %q", ErrValidation, text)
		}
		seen[text] = true
	}
	return nil
}

// internOption returns the id of the option with this text, inserting it if new.
func internOption(ctx context.Context, tx *sql.Tx, text string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO options (option_text)
		VALUES ($1)
		ON CONFLICT (option_text)
		DO UPDATE SET option_text = excluded.option_text
		RETURNING id
	`, text).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("intern option: %w", err)
	}

	err = tx.QueryRowContext(ctx, `SELECT id FROM options WHERE option_text = $1`, text).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("intern option: %w", err)
	}
	return id, nil
}

// SeedTally creates an empty tally row for pollID unless one exists.
// An existing tally is never reset.
func (s *Store) SeedTally(ctx context.Context, pollID int64) error {
	if err := seedTally(ctx, s.conn, pollID, s.now().UTC()); err != nil {
		return storeErr("seed tally", err)
	}
	return nil
}

func seedTally(ctx context.Context, q querier, pollID int64, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO encrypted_tallies (poll_id, tally_data, updated_at)
		VALUES ($1, '{}', $2)
		ON CONFLICT (poll_id) DO NOTHING
	`, pollID, now)
	if err != nil {
		return fmt.Errorf("seed tally: %w", err)
	}
	return nil
}

// GetPoll returns a poll of either mode with its options ordered by id.
func (s *Store) GetPoll(ctx context.Context, pollID int64) (models.PollWithOptions, error) {
	polls, err := s.queryPolls(ctx, `WHERE p.id = $1`, pollID)
	if err != nil {
		return models.PollWithOptions{}, err
	}
	if len(polls) == 0 {
		return models.PollWithOptions{}, fmt.Errorf("%w: poll %d", ErrNotFound, pollID)
	}
	return polls[0], nil
}

// ListSecurePolls returns every secure poll ordered by id.
func (s *Store) ListSecurePolls(ctx context.Context) ([]models.PollWithOptions, error) {
	return s.queryPolls(ctx, `WHERE p.is_secure = $1`, true)
}

func (s *Store) queryPolls(ctx context.Context, where string, args ...any) ([]models.PollWithOptions, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT p.id, p.title, p.description, p.created_by, p.created_at,
		       p.allow_multiple_choices, p.is_secure, o.id, o.option_text
		FROM polls p
		LEFT JOIN poll_options po ON po.poll_id = p.id
		LEFT JOIN options o ON o.id = po.option_id
		`+where+`
		ORDER BY p.id, o.id
	`, args...)
	if err != nil {
		return nil, storeErr("query polls", err)
	}
	defer rows.Close()

	polls := []models.PollWithOptions{}
	for rows.Next() {
		var (
			poll        models.Poll
			description sql.NullString
			createdBy   sql.NullString
			optionID    sql.NullInt64
			optionText  sql.NullString
		)
		err := rows.Scan(
			&poll.ID, &poll.Title, &description, &createdBy, &poll.CreatedAt,
			&poll.AllowMultipleChoices, &poll.IsSecure, &optionID, &optionText,
		)
		if err != nil {
			return nil, storeErr("scan poll", err)
		}

		// Rows arrive grouped by poll id
		if len(polls) == 0 || polls[len(polls)-1].Poll.ID != poll.ID {
			poll.Description = description.String
			if createdBy.Valid {
				poll.CreatedBy = &createdBy.String
			}
			polls = append(polls, models.PollWithOptions{Poll: poll, Options: []models.Option{}})
		}

		if optionID.Valid {
			last := &polls[len(polls)-1]
			last.Options = append(last.Options, models.Option{ID: optionID.Int64, Text: optionText.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query polls", err)
	}

	return polls, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
