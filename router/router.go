// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/cineclub/cineforum/cliparse"
	"github.com/cineclub/cineforum/handlers"
	"github.com/cineclub/cineforum/live"
	"github.com/cineclub/cineforum/middleware"
	"github.com/cineclub/cineforum/session"
)

// Oracle bundles the two oracle roles a router needs. Either half may
// be nil when the oracle is unconfigured; the handlers answer 503 for
// the affected routes.
type Oracle struct {
	Decider session.SlotDecider
	Text    handlers.OracleClient
}

func NewRouter(store *session.Store, cfg cliparse.Config, oracle Oracle, hub *live.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(store, cfg, oracle.Decider, hub)
	votingHandler := handlers.NewVotingHandler(store, cfg)
	discussionHandler := handlers.NewDiscussionHandler(store, cfg, oracle.Text, hub)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session management (organizer operations)
	mux.HandleFunc("POST /sessions", middleware.WithLogging(sessionHandler.CreateSession))
	mux.HandleFunc("GET /sessions/{id}", middleware.WithLogging(sessionHandler.GetSession))
	mux.HandleFunc("POST /sessions/{id}/advance", middleware.WithLogging(sessionHandler.Advance))
	mux.HandleFunc("POST /sessions/{id}/resolve-slot", middleware.WithLogging(sessionHandler.ResolveSlot))
	mux.HandleFunc("POST /sessions/{id}/close", middleware.WithLogging(sessionHandler.CloseSession))
	mux.HandleFunc("POST /sessions/{id}/grant", middleware.WithLogging(discussionHandler.GrantTurn))
	mux.HandleFunc("POST /sessions/{id}/moderator-line", middleware.WithLogging(discussionHandler.ModeratorLine))

	// Member operations (via share slug)
	mux.HandleFunc("GET /s/{slug}", middleware.WithLogging(votingHandler.GetSession))
	mux.HandleFunc("POST /s/{slug}/join", middleware.WithLogging(votingHandler.JoinSession))
	mux.HandleFunc("POST /s/{slug}/vote", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("POST /s/{slug}/commitment", middleware.WithLogging(votingHandler.ToggleCommitment))
	mux.HandleFunc("POST /s/{slug}/slot-vote", middleware.WithLogging(votingHandler.ToggleSlotVote))

	// Discussion operations
	mux.HandleFunc("POST /s/{slug}/hand", middleware.WithLogging(discussionHandler.RaiseHand))
	mux.HandleFunc("DELETE /s/{slug}/hand", middleware.WithLogging(discussionHandler.LowerHand))
	mux.HandleFunc("GET /s/{slug}/floor", middleware.WithLogging(discussionHandler.GetFloor))
	mux.HandleFunc("POST /s/{slug}/release", middleware.WithLogging(discussionHandler.ReleaseTurn))
	mux.HandleFunc("POST /s/{slug}/messages", middleware.WithLogging(discussionHandler.AppendMessage))
	mux.HandleFunc("GET /s/{slug}/messages", middleware.WithLogging(discussionHandler.GetMessages))
	mux.HandleFunc("GET /s/{slug}/candidates/{candidateID}/blurb", middleware.WithLogging(discussionHandler.CandidateBlurb))

	// Live feed (websocket; logging middleware would hijack the upgrade)
	mux.HandleFunc("GET /s/{slug}/live", discussionHandler.Live)

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cineforum API v1"))
	})

	return mux
}
