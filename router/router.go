// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/secure-poll/handlers"
	"github.com/danielhkuo/secure-poll/middleware"
	"github.com/danielhkuo/secure-poll/store"
)

func NewRouter(st *store.Store) *http.ServeMux {
	mux := http.NewServeMux()

	secure := handlers.NewSecureVoteHandler(st)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			slog.Error("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("UNAVAILABLE"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Public reads
	mux.HandleFunc("GET /secure", middleware.WithLogging(secure.ListPolls))
	mux.HandleFunc("GET /secure/poll/{id}", middleware.WithLogging(secure.GetPoll))
	mux.HandleFunc("GET /secure/poll/{id}/votes", middleware.WithLogging(secure.GetVoteCounts))
	mux.HandleFunc("GET /secure/poll/{id}/audit", middleware.WithLogging(secure.AuditTally))

	// Voter operations (X-User-ID required)
	mux.HandleFunc("POST /secure/create", middleware.WithLogging(middleware.RequireVoter(secure.CreatePoll)))
	mux.HandleFunc("GET /secure/poll/{id}/status", middleware.WithLogging(middleware.RequireVoter(secure.CheckVoterStatus)))
	mux.HandleFunc("POST /secure/vote", middleware.WithLogging(middleware.RequireVoter(secure.SubmitVote)))
	mux.HandleFunc("POST /secure/verify", middleware.WithLogging(middleware.RequireVoter(secure.VerifyVote)))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure-poll API v1"))
	})

	return mux
}
