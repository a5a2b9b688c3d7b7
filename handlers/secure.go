// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/secure-poll/auth"
	"github.com/danielhkuo/secure-poll/middleware"
	"github.com/danielhkuo/secure-poll/models"
	"github.com/danielhkuo/secure-poll/store"
)

type SecureVoteHandler struct {
	store *store.Store
}

func NewSecureVoteHandler(st *store.Store) *SecureVoteHandler {
	return &SecureVoteHandler{store: st}
}

// ListPolls handles GET /secure
func (h *SecureVoteHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.store.ListSecurePolls(r.Context())
	if err != nil {
		writeStoreError(w, err, "list secure polls")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, polls)
}

// CreatePoll handles POST /secure/create
func (h *SecureVoteHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	creatorID, _ := auth.VoterFrom(r.Context())

	var req models.CreateSecurePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Options) < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least 2 options are required")
		return
	}

	poll, err := h.store.CreateSecurePoll(r.Context(), req.Title, req.Description, creatorID, req.AllowMultipleChoices, req.Options)
	if err != nil {
		writeStoreError(w, err, "create secure poll")
		return
	}

	slog.Info("secure poll created", "poll_id", poll.Poll.ID, "options", len(poll.Options))

	middleware.JSONResponse(w, http.StatusCreated, poll)
}

// GetPoll handles GET /secure/poll/{id}
func (h *SecureVoteHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(w, r)
	if !ok {
		return
	}

	poll, err := h.store.GetPoll(r.Context(), pollID)
	if err != nil {
		writeStoreError(w, err, "get poll")
		return
	}
	if !poll.Poll.IsSecure {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// GetVoteCounts handles GET /secure/poll/{id}/votes
func (h *SecureVoteHandler) GetVoteCounts(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(w, r)
	if !ok {
		return
	}

	counts, err := h.store.GetTallyCounts(r.Context(), pollID)
	if err != nil {
		writeStoreError(w, err, "get vote counts")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteCountsResponse{
		PollID: pollID,
		Votes:  counts,
	})
}

// CheckVoterStatus handles GET /secure/poll/{id}/status
func (h *SecureVoteHandler) CheckVoterStatus(w http.ResponseWriter, r *http.Request) {
	voterID, _ := auth.VoterFrom(r.Context())

	pollID, ok := pollIDFromPath(w, r)
	if !ok {
		return
	}

	voted, err := h.store.HasVoted(r.Context(), voterID, pollID)
	if err != nil {
		writeStoreError(w, err, "check voter status")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoterStatusResponse{HasVoted: voted})
}

// SubmitVote handles POST /secure/vote
func (h *SecureVoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	voterID, _ := auth.VoterFrom(r.Context())

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.PollID <= 0 || req.OptionID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pollId and optionId are required")
		return
	}

	receipt, err := h.store.SubmitVote(r.Context(), req.PollID, req.OptionID, voterID)
	if err != nil {
		writeStoreError(w, err, "submit vote")
		return
	}

	message := models.MsgVoteCast
	if receipt.Updated {
		message = models.MsgVoteUpdated
	}

	// No voter id here: poll id alone keeps the log line unlinkable
	slog.Info("secure vote recorded", "poll_id", receipt.PollID)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitVoteResponse{
		Message:           message,
		VerificationToken: receipt.VerificationToken,
		PollID:            receipt.PollID,
	})
}

// VerifyVote handles POST /secure/verify
func (h *SecureVoteHandler) VerifyVote(w http.ResponseWriter, r *http.Request) {
	voterID, _ := auth.VoterFrom(r.Context())

	var req models.VerifyVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.PollID <= 0 || req.VerificationToken == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pollId and verificationToken are required")
		return
	}

	result, err := h.store.VerifyVote(r.Context(), req.PollID, voterID, req.VerificationToken)
	if err != nil {
		writeStoreError(w, err, "verify vote")
		return
	}

	resp := models.VerifyVoteResponse{
		Verified: result.Verified,
		Message:  result.Message,
		Error:    result.Error,
	}
	if result.VotedAt != nil {
		resp.LastVoted = humanize.Time(*result.VotedAt)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// AuditTally handles GET /secure/poll/{id}/audit
func (h *SecureVoteHandler) AuditTally(w http.ResponseWriter, r *http.Request) {
	pollID, ok := pollIDFromPath(w, r)
	if !ok {
		return
	}

	report, err := h.store.AuditTally(r.Context(), pollID)
	if err != nil {
		writeStoreError(w, err, "audit tally")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, report)
}

func pollIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	pollID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || pollID <= 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid poll id")
		return 0, false
	}
	return pollID, true
}

// writeStoreError maps store errors to status codes. Store failures get a
// generic message; the cause is only logged.
func writeStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll or option not found")
	default:
		slog.Error("store operation failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
	}
}
