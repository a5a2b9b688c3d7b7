package models

import "time"

// Verification messages. Failures stay generic and never echo token or ballot content.
const (
	MsgVoteCast     = "Vote successfully cast"
	MsgVoteUpdated  = "Your vote has been updated!"
	MsgVerified     = "Your vote has been verified!"
	MsgVerifyFailed = "Verification failed"
	MsgNoVoteFound  = "No vote found for this poll"
)

// Request types

type CreateSecurePollRequest struct {
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	AllowMultipleChoices bool     `json:"allow_multiple_choices"`
	Options              []string `json:"options"`
}

type SubmitVoteRequest struct {
	PollID   int64 `json:"pollId"`
	OptionID int64 `json:"optionId"`
}

type VerifyVoteRequest struct {
	PollID            int64  `json:"pollId"`
	VerificationToken string `json:"verificationToken"`
}

// Response types

type SubmitVoteResponse struct {
	Message           string `json:"message"`
	VerificationToken string `json:"verificationToken"`
	PollID            int64  `json:"pollId"`
}

type VoteCountsResponse struct {
	PollID int64           `json:"pollId"`
	Votes  map[int64]int64 `json:"votes"`
}

type VoterStatusResponse struct {
	HasVoted bool `json:"hasVoted"`
}

type VerifyVoteResponse struct {
	Verified  bool   `json:"verified"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	LastVoted string `json:"last_voted,omitempty"`
}

// Domain types

type Poll struct {
	ID                   int64     `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	CreatedBy            *string   `json:"created_by"` // nil once the creator is gone
	CreatedAt            time.Time `json:"created_at"`
	AllowMultipleChoices bool      `json:"allow_multiple_choices"`
	IsSecure             bool      `json:"is_secure"`
}

type Option struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

type PollWithOptions struct {
	Poll    Poll     `json:"poll"`
	Options []Option `json:"options"`
}

// Receipt is what a voter gets back from a secure submission.
type Receipt struct {
	PollID            int64  `json:"pollId"`
	VerificationToken string `json:"verificationToken"`
	Updated           bool   `json:"-"` // a participation row already existed
}

type VerifyResult struct {
	Verified bool       `json:"verified"`
	Message  string     `json:"message,omitempty"`
	Error    string     `json:"error,omitempty"`
	VotedAt  *time.Time `json:"-"`
}

// AuditReport compares the running tally against a recount of decrypted ballots.
type AuditReport struct {
	PollID         int64           `json:"poll_id"`
	BallotCount    int64           `json:"ballot_count"`
	TallyCounts    map[int64]int64 `json:"tally_counts"`
	Recount        map[int64]int64 `json:"recount"`
	Undecryptable  int             `json:"undecryptable"`
	HashMismatches int             `json:"hash_mismatches"`
	Consistent     bool            `json:"consistent"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
