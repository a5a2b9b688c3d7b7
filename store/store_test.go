// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/secure-poll/models"
	"github.com/danielhkuo/secure-poll/store"
	"github.com/danielhkuo/secure-poll/testutil"
)

func TestCreateSecurePoll(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll, err := st.CreateSecurePoll(ctx, "Lunch", "Where to eat", "alice", true, []string{"Tacos", "Pho", "Pizza"})
	if err != nil {
		t.Fatalf("CreateSecurePoll failed: %v", err)
	}

	if poll.Poll.ID <= 0 {
		t.Errorf("Expected positive poll id, got %d", poll.Poll.ID)
	}
	if !poll.Poll.IsSecure {
		t.Error("Expected poll to be tagged secure")
	}
	if !poll.Poll.AllowMultipleChoices {
		t.Error("Expected allow_multiple_choices to be kept")
	}
	if poll.Poll.CreatedBy == nil || *poll.Poll.CreatedBy != "alice" {
		t.Errorf("Expected creator alice, got %v", poll.Poll.CreatedBy)
	}
	if len(poll.Options) != 3 {
		t.Fatalf("Expected 3 options, got %d", len(poll.Options))
	}
	for i := 1; i < len(poll.Options); i++ {
		if poll.Options[i-1].ID >= poll.Options[i].ID {
			t.Errorf("Options not ordered by id: %+v", poll.Options)
		}
	}

	// Tally is seeded empty
	if n := testutil.CountRows(t, conn, "encrypted_tallies", "poll_id = $1 AND tally_data = '{}'", poll.Poll.ID); n != 1 {
		t.Errorf("Expected one empty tally row, got %d", n)
	}

	got, err := st.GetPoll(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if got.Poll.Title != "Lunch" || got.Poll.Description != "Where to eat" {
		t.Errorf("Unexpected poll read back: %+v", got.Poll)
	}
	if len(got.Options) != 3 {
		t.Errorf("Expected 3 options read back, got %d", len(got.Options))
	}
}

func TestCreateSecurePollValidation(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)

	tests := []struct {
		name    string
		title   string
		options []string
	}{
		{"empty title", "", []string{"A", "B"}},
		{"blank title", "   ", []string{"A", "B"}},
		{"no options", "Poll", nil},
		{"one option", "Poll", []string{"A"}},
		{"empty option", "Poll", []string{"A", ""}},
		{"duplicate option", "Poll", []string{"A", "B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.CreateSecurePoll(context.Background(), tt.title, "", "", false, tt.options)
			if !errors.Is(err, store.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}

	if n := testutil.CountRows(t, conn, "polls", ""); n != 0 {
		t.Errorf("Expected no polls after failed creates, got %d", n)
	}
}

func TestOptionsAreSharedAcrossPolls(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)

	first := testutil.CreateTestPoll(t, st, "First", "Yes", "No")
	second := testutil.CreateTestPoll(t, st, "Second", "Yes", "Maybe")

	if testutil.OptionID(t, first, "Yes") != testutil.OptionID(t, second, "Yes") {
		t.Error("Expected both polls to link the same Yes option")
	}
	if n := testutil.CountRows(t, conn, "options", ""); n != 3 {
		t.Errorf("Expected 3 distinct options, got %d", n)
	}

	// A vote in one poll never shows up in the other
	yes := testutil.OptionID(t, first, "Yes")
	if _, err := st.SubmitVote(context.Background(), first.Poll.ID, yes, "voter"); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	counts, err := st.GetTallyCounts(context.Background(), second.Poll.ID)
	if err != nil {
		t.Fatalf("GetTallyCounts failed: %v", err)
	}
	if counts[yes] != 0 {
		t.Errorf("Expected no Yes votes in second poll, got %d", counts[yes])
	}
}

func TestCreatorIsOptional(t *testing.T) {
	st, _ := testutil.SetupTestStore(t)

	poll, err := st.CreateSecurePoll(context.Background(), "Anon", "", "", false, []string{"A", "B"})
	if err != nil {
		t.Fatalf("CreateSecurePoll failed: %v", err)
	}

	got, err := st.GetPoll(context.Background(), poll.Poll.ID)
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if got.Poll.CreatedBy != nil {
		t.Errorf("Expected nil creator, got %q", *got.Poll.CreatedBy)
	}
}

func TestGetPollNotFound(t *testing.T) {
	st, _ := testutil.SetupTestStore(t)

	_, err := st.GetPoll(context.Background(), 999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestListSecurePolls(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)

	testutil.CreateTestPoll(t, st, "One")
	testutil.CreateTestPoll(t, st, "Two", "Red", "Green", "Blue")

	// A standard poll is not listed
	_, err := conn.Exec(`INSERT INTO polls (title, is_secure) VALUES ('Standard', 0)`)
	if err != nil {
		t.Fatalf("Failed to insert standard poll: %v", err)
	}

	polls, err := st.ListSecurePolls(context.Background())
	if err != nil {
		t.Fatalf("ListSecurePolls failed: %v", err)
	}
	if len(polls) != 2 {
		t.Fatalf("Expected 2 secure polls, got %d", len(polls))
	}
	if polls[0].Poll.Title != "One" || polls[1].Poll.Title != "Two" {
		t.Errorf("Unexpected order: %q, %q", polls[0].Poll.Title, polls[1].Poll.Title)
	}
	if len(polls[1].Options) != 3 {
		t.Errorf("Expected 3 options on second poll, got %d", len(polls[1].Options))
	}
}

func TestSubmitVote(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Ship it?")
	yes := testutil.OptionID(t, poll, "Yes")

	voted, err := st.HasVoted(ctx, "alice", poll.Poll.ID)
	if err != nil {
		t.Fatalf("HasVoted failed: %v", err)
	}
	if voted {
		t.Error("Expected hasVoted false before voting")
	}

	receipt, err := st.SubmitVote(ctx, poll.Poll.ID, yes, "alice")
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if receipt.PollID != poll.Poll.ID {
		t.Errorf("Expected receipt for poll %d, got %d", poll.Poll.ID, receipt.PollID)
	}
	if receipt.VerificationToken == "" {
		t.Error("Expected a verification token")
	}
	if receipt.Updated {
		t.Error("First vote should not be reported as an update")
	}

	voted, err = st.HasVoted(ctx, "alice", poll.Poll.ID)
	if err != nil {
		t.Fatalf("HasVoted failed: %v", err)
	}
	if !voted {
		t.Error("Expected hasVoted true after voting")
	}

	counts, err := st.GetTallyCounts(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("GetTallyCounts failed: %v", err)
	}
	if counts[yes] != 1 {
		t.Errorf("Expected 1 vote for Yes, got %d", counts[yes])
	}
	if _, ok := counts[testutil.OptionID(t, poll, "No")]; ok {
		t.Errorf("Expected no key for an option without votes, got %v", counts)
	}

	if n := testutil.CountRows(t, conn, "anonymous_votes", "poll_id = $1", poll.Poll.ID); n != 1 {
		t.Errorf("Expected 1 anonymous ballot, got %d", n)
	}
	if n := testutil.CountRows(t, conn, "voter_participation", "poll_id = $1", poll.Poll.ID); n != 1 {
		t.Errorf("Expected 1 participation row, got %d", n)
	}
}

func TestSubmitVoteAgainAddsToTally(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Revote")
	yes := testutil.OptionID(t, poll, "Yes")
	no := testutil.OptionID(t, poll, "No")

	first, err := st.SubmitVote(ctx, poll.Poll.ID, yes, "bob")
	if err != nil {
		t.Fatalf("First SubmitVote failed: %v", err)
	}
	second, err := st.SubmitVote(ctx, poll.Poll.ID, no, "bob")
	if err != nil {
		t.Fatalf("Second SubmitVote failed: %v", err)
	}

	if !second.Updated {
		t.Error("Second vote should be reported as an update")
	}
	if first.VerificationToken == second.VerificationToken {
		t.Error("Expected a fresh token on re-vote")
	}

	if n := testutil.CountRows(t, conn, "voter_participation", "poll_id = $1", poll.Poll.ID); n != 1 {
		t.Errorf("Expected 1 participation row after re-vote, got %d", n)
	}
	if n := testutil.CountRows(t, conn, "anonymous_votes", "poll_id = $1", poll.Poll.ID); n != 2 {
		t.Errorf("Expected 2 anonymous ballots after re-vote, got %d", n)
	}

	// The earlier choice is not withdrawn
	counts, err := st.GetTallyCounts(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("GetTallyCounts failed: %v", err)
	}
	if counts[yes] != 1 || counts[no] != 1 {
		t.Errorf("Expected {yes:1, no:1}, got %v", counts)
	}

	// Only the latest token verifies
	res, err := st.VerifyVote(ctx, poll.Poll.ID, "bob", first.VerificationToken)
	if err != nil {
		t.Fatalf("VerifyVote failed: %v", err)
	}
	if res.Verified {
		t.Error("Expected superseded token to fail verification")
	}
	res, err = st.VerifyVote(ctx, poll.Poll.ID, "bob", second.VerificationToken)
	if err != nil {
		t.Fatalf("VerifyVote failed: %v", err)
	}
	if !res.Verified {
		t.Error("Expected latest token to verify")
	}
}

func TestSubmitVoteRejections(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)

	poll := testutil.CreateTestPoll(t, st, "Main", "Yes", "No")
	other := testutil.CreateTestPoll(t, st, "Other", "Left", "Right")
	yes := testutil.OptionID(t, poll, "Yes")
	left := testutil.OptionID(t, other, "Left")

	// Standard poll sharing the Yes option
	var standardID int64
	err := conn.QueryRow(`INSERT INTO polls (title, is_secure) VALUES ('Standard', 0) RETURNING id`).Scan(&standardID)
	if err != nil {
		t.Fatalf("Failed to insert standard poll: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO poll_options (poll_id, option_id) VALUES ($1, $2)`, standardID, yes); err != nil {
		t.Fatalf("Failed to link standard poll option: %v", err)
	}

	tests := []struct {
		name     string
		pollID   int64
		optionID int64
		voter    string
		wantErr  error
	}{
		{"missing poll id", 0, yes, "v", store.ErrValidation},
		{"missing option id", poll.Poll.ID, 0, "v", store.ErrValidation},
		{"missing voter", poll.Poll.ID, yes, "", store.ErrValidation},
		{"unknown poll", 999, yes, "v", store.ErrNotFound},
		{"unknown option", poll.Poll.ID, 999, "v", store.ErrNotFound},
		{"option of another poll", poll.Poll.ID, left, "v", store.ErrNotFound},
		{"standard poll", standardID, yes, "v", store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.SubmitVote(context.Background(), tt.pollID, tt.optionID, tt.voter)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Nothing was written by any rejection
	if n := testutil.CountRows(t, conn, "anonymous_votes", ""); n != 0 {
		t.Errorf("Expected no ballots, got %d", n)
	}
	if n := testutil.CountRows(t, conn, "voter_participation", ""); n != 0 {
		t.Errorf("Expected no participation rows, got %d", n)
	}
}

// TestSubmitVoteRollsBackOnTallyFailure breaks the last write of the
// submission and checks that the ballot and participation rows go with it
func TestSubmitVoteRollsBackOnTallyFailure(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Rollback")
	yes := testutil.OptionID(t, poll, "Yes")

	_, err := conn.Exec(`
		CREATE TRIGGER refuse_tally_write BEFORE UPDATE ON encrypted_tallies
		BEGIN
			SELECT RAISE(ABORT, 'tally write refused');
		END
	`)
	if err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	_, err = st.SubmitVote(ctx, poll.Poll.ID, yes, "grace")
	if !errors.Is(err, store.ErrStore) {
		t.Fatalf("Expected ErrStore, got %v", err)
	}
	if errors.Is(err, store.ErrValidation) || errors.Is(err, store.ErrNotFound) {
		t.Errorf("Tally failure must not look like a caller error: %v", err)
	}

	if n := testutil.CountRows(t, conn, "anonymous_votes", "poll_id = $1", poll.Poll.ID); n != 0 {
		t.Errorf("Expected ballot insert rolled back, got %d rows", n)
	}
	if n := testutil.CountRows(t, conn, "voter_participation", "poll_id = $1", poll.Poll.ID); n != 0 {
		t.Errorf("Expected participation upsert rolled back, got %d rows", n)
	}

	voted, err := st.HasVoted(ctx, "grace", poll.Poll.ID)
	if err != nil {
		t.Fatalf("HasVoted failed: %v", err)
	}
	if voted {
		t.Error("Expected hasVoted false after a rolled back submission")
	}

	counts, err := st.GetTallyCounts(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("GetTallyCounts failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("Expected untouched tally, got %v", counts)
	}

	// Once the write is allowed again the same vote goes through
	if _, err := conn.Exec(`DROP TRIGGER refuse_tally_write`); err != nil {
		t.Fatalf("Failed to drop trigger: %v", err)
	}
	if _, err := st.SubmitVote(ctx, poll.Poll.ID, yes, "grace"); err != nil {
		t.Fatalf("SubmitVote after recovery failed: %v", err)
	}
	if n := testutil.CountRows(t, conn, "anonymous_votes", "poll_id = $1", poll.Poll.ID); n != 1 {
		t.Errorf("Expected 1 ballot after recovery, got %d", n)
	}
}

func TestVerifyVote(t *testing.T) {
	st, _ := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Verify")
	receipt, err := st.SubmitVote(ctx, poll.Poll.ID, testutil.OptionID(t, poll, "No"), "carol")
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}

	token := receipt.VerificationToken
	flipped := token[:len(token)-1] + "0"
	if flipped == token {
		flipped = token[:len(token)-1] + "1"
	}

	tests := []struct {
		name     string
		voter    string
		token    string
		verified bool
		message  string
		errMsg   string
	}{
		{"matching token", "carol", token, true, models.MsgVerified, ""},
		{"one character changed", "carol", flipped, false, "", models.MsgVerifyFailed},
		{"garbage", "carol", "garbage", false, "", models.MsgVerifyFailed},
		{"voter who never voted", "dave", token, false, "", models.MsgNoVoteFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := st.VerifyVote(ctx, poll.Poll.ID, tt.voter, tt.token)
			if err != nil {
				t.Fatalf("VerifyVote failed: %v", err)
			}
			if res.Verified != tt.verified {
				t.Errorf("Expected verified=%v, got %v", tt.verified, res.Verified)
			}
			if res.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, res.Message)
			}
			if res.Error != tt.errMsg {
				t.Errorf("Expected error %q, got %q", tt.errMsg, res.Error)
			}
			if tt.verified && res.VotedAt == nil {
				t.Error("Expected voted-at on a verified result")
			}
		})
	}

	if _, err := st.VerifyVote(ctx, poll.Poll.ID, "carol", ""); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation for empty token, got %v", err)
	}
}

func TestVerifyVoteIsReadOnly(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "ReadOnly")
	receipt, err := st.SubmitVote(ctx, poll.Poll.ID, testutil.OptionID(t, poll, "Yes"), "erin")
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := st.VerifyVote(ctx, poll.Poll.ID, "erin", receipt.VerificationToken); err != nil {
			t.Fatalf("VerifyVote failed: %v", err)
		}
	}

	if n := testutil.CountRows(t, conn, "voter_participation", "verification_token = $1", receipt.VerificationToken); n != 1 {
		t.Errorf("Expected stored token untouched, got %d matching rows", n)
	}
	counts, _ := st.GetTallyCounts(ctx, poll.Poll.ID)
	if counts[testutil.OptionID(t, poll, "Yes")] != 1 {
		t.Errorf("Expected tally untouched, got %v", counts)
	}
}

func TestSeedTallyKeepsExistingCounts(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Seed")
	yes := testutil.OptionID(t, poll, "Yes")
	if _, err := st.SubmitVote(ctx, poll.Poll.ID, yes, "frank"); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := st.SeedTally(ctx, poll.Poll.ID); err != nil {
			t.Fatalf("SeedTally failed: %v", err)
		}
	}

	counts, err := st.GetTallyCounts(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("GetTallyCounts failed: %v", err)
	}
	if counts[yes] != 1 {
		t.Errorf("Expected seeding to keep the count, got %v", counts)
	}
	if n := testutil.CountRows(t, conn, "encrypted_tallies", "poll_id = $1", poll.Poll.ID); n != 1 {
		t.Errorf("Expected exactly one tally row, got %d", n)
	}
}

func TestGetTallyCountsWithoutTallyRow(t *testing.T) {
	st, _ := testutil.SetupTestStore(t)

	counts, err := st.GetTallyCounts(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetTallyCounts failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("Expected empty counts, got %v", counts)
	}
}

func TestAnonymousBallotsCarryNoVoter(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Privacy")
	voter := "voter-with-a-distinctive-id"
	if _, err := st.SubmitVote(ctx, poll.Poll.ID, testutil.OptionID(t, poll, "Yes"), voter); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}

	rows, err := conn.Query(`SELECT vote_id, encrypted_choice, vote_hash FROM anonymous_votes`)
	if err != nil {
		t.Fatalf("Failed to query ballots: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, choice, hash string
		if err := rows.Scan(&id, &choice, &hash); err != nil {
			t.Fatalf("Failed to scan ballot: %v", err)
		}
		for _, v := range []string{id, choice, hash} {
			if strings.Contains(v, voter) {
				t.Errorf("Ballot row leaks voter id: %q", v)
			}
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Row iteration failed: %v", err)
	}
}

// TestConcurrentSubmissions verifies that simultaneous votes from different
// voters are all counted with no lost updates
func TestConcurrentSubmissions(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Race", "A", "B", "C")

	numVoters := 20
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			option := poll.Options[idx%len(poll.Options)].ID
			_, err := st.SubmitVote(ctx, poll.Poll.ID, option, fmt.Sprintf("voter-%d", idx))
			if err != nil {
				t.Errorf("voter %d: %v", idx, err)
				return
			}
			successCount.Add(1)
		}(i)
	}
	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Fatalf("Expected %d successful submissions, got %d", numVoters, successCount.Load())
	}

	counts, err := st.GetTallyCounts(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("GetTallyCounts failed: %v", err)
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	if total != int64(numVoters) {
		t.Errorf("Expected tally total %d, got %d (%v)", numVoters, total, counts)
	}

	if n := testutil.CountRows(t, conn, "voter_participation", "poll_id = $1", poll.Poll.ID); n != numVoters {
		t.Errorf("Expected %d participation rows, got %d", numVoters, n)
	}
}

func TestEndToEnd(t *testing.T) {
	st, _ := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "P", "A", "B")
	a := testutil.OptionID(t, poll, "A")
	b := testutil.OptionID(t, poll, "B")

	r1, err := st.SubmitVote(ctx, poll.Poll.ID, a, "V1")
	if err != nil {
		t.Fatalf("V1 SubmitVote failed: %v", err)
	}
	counts, _ := st.GetTallyCounts(ctx, poll.Poll.ID)
	if counts[a] != 1 || counts[b] != 0 {
		t.Errorf("After V1 expected {A:1, B:0}, got %v", counts)
	}

	if _, err := st.SubmitVote(ctx, poll.Poll.ID, b, "V2"); err != nil {
		t.Fatalf("V2 SubmitVote failed: %v", err)
	}
	counts, _ = st.GetTallyCounts(ctx, poll.Poll.ID)
	if counts[a] != 1 || counts[b] != 1 {
		t.Errorf("After V2 expected {A:1, B:1}, got %v", counts)
	}

	res, err := st.VerifyVote(ctx, poll.Poll.ID, "V1", r1.VerificationToken)
	if err != nil || !res.Verified {
		t.Errorf("Expected V1 token to verify, got %+v, %v", res, err)
	}
	res, err = st.VerifyVote(ctx, poll.Poll.ID, "V1", "garbage")
	if err != nil || res.Verified {
		t.Errorf("Expected garbage token to fail, got %+v, %v", res, err)
	}
}

func TestAuditTally(t *testing.T) {
	st, conn := testutil.SetupTestStore(t)
	ctx := context.Background()

	poll := testutil.CreateTestPoll(t, st, "Audit", "A", "B")
	a := testutil.OptionID(t, poll, "A")
	b := testutil.OptionID(t, poll, "B")

	for i, opt := range []int64{a, a, b} {
		if _, err := st.SubmitVote(ctx, poll.Poll.ID, opt, fmt.Sprintf("voter-%d", i)); err != nil {
			t.Fatalf("SubmitVote failed: %v", err)
		}
	}

	report, err := st.AuditTally(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("AuditTally failed: %v", err)
	}
	if !report.Consistent {
		t.Errorf("Expected consistent audit, got %+v", report)
	}
	if report.BallotCount != 3 {
		t.Errorf("Expected 3 ballots, got %d", report.BallotCount)
	}
	if report.Recount[a] != 2 || report.Recount[b] != 1 {
		t.Errorf("Unexpected recount: %v", report.Recount)
	}

	// Damage one stored ballot
	_, err = conn.Exec(`
		UPDATE anonymous_votes SET encrypted_choice = 'not-a-ballot'
		WHERE vote_id = (SELECT vote_id FROM anonymous_votes WHERE option_id = $1 LIMIT 1)
	`, b)
	if err != nil {
		t.Fatalf("Failed to corrupt ballot: %v", err)
	}

	report, err = st.AuditTally(ctx, poll.Poll.ID)
	if err != nil {
		t.Fatalf("AuditTally failed: %v", err)
	}
	if report.Consistent {
		t.Error("Expected inconsistent audit after corruption")
	}
	if report.Undecryptable != 1 {
		t.Errorf("Expected 1 undecryptable ballot, got %d", report.Undecryptable)
	}
	if report.TallyCounts[b] != 1 {
		t.Errorf("Audit must not touch the tally, got %v", report.TallyCounts)
	}
}

func TestAuditTallyValidation(t *testing.T) {
	st, _ := testutil.SetupTestStore(t)

	if _, err := st.AuditTally(context.Background(), 0); !errors.Is(err, store.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}
