// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the secure voting engine over PostgreSQL or SQLite.

# Storage Split

A submission writes two unlinked records:

  - anonymous_votes: random ballot id, poll, option, sealed ballot, hash. No voter.
  - voter_participation: voter, poll, verification token. No option.

plus a read-modify-write of the poll's running tally in encrypted_tallies.
All three commit in one transaction.

# Operations

	st := store.New(conn, db.SQLite, sealer, cfg.TxRetries)

	poll, err := st.CreateSecurePoll(ctx, title, desc, creator, false, []string{"Yes", "No"})
	receipt, err := st.SubmitVote(ctx, pollID, optionID, voterID)
	counts, err := st.GetTallyCounts(ctx, pollID)
	voted, err := st.HasVoted(ctx, voterID, pollID)
	result, err := st.VerifyVote(ctx, pollID, voterID, token)
	report, err := st.AuditTally(ctx, pollID)

# Concurrency

Tally updates lock the tally row (SELECT ... FOR UPDATE on PostgreSQL,
BEGIN IMMEDIATE on SQLite). Serialization failures, deadlocks and busy
errors are retried with a short backoff up to the configured attempt count.

# Errors

Callers match with errors.Is against ErrValidation, ErrNotFound and ErrStore.
*/
package store
