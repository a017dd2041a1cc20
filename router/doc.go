// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Cineforum API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(store, cfg, oracle, hub)

# Endpoints

Health:

	GET /health

Session management (organizer, requires X-Admin-Key):

	POST /sessions                     - Create session
	GET  /sessions/{id}                - Admin view with live preview
	POST /sessions/{id}/advance        - Drive the phase machine
	POST /sessions/{id}/resolve-slot   - Finalize the discussion slot
	POST /sessions/{id}/close          - Archive session
	POST /sessions/{id}/grant          - Grant the speaking floor
	POST /sessions/{id}/moderator-line - Append an oracle-drafted interjection

Member operations (public, uses share slug; mutations require
X-Member-Token):

	GET  /s/{slug}            - Session info, tally, slot counts
	POST /s/{slug}/join       - Claim a member identity
	POST /s/{slug}/vote       - Cast/replace a candidate vote
	POST /s/{slug}/commitment - Toggle a view/debate commitment
	POST /s/{slug}/slot-vote  - Toggle a time-slot vote

Discussion:

	POST   /s/{slug}/hand      - Join the speaker queue
	DELETE /s/{slug}/hand      - Leave the speaker queue
	GET    /s/{slug}/floor     - Current speaker and queue
	POST   /s/{slug}/release   - Give up the floor
	POST   /s/{slug}/messages  - Append to the message log
	GET    /s/{slug}/messages  - Read the message log
	GET    /s/{slug}/candidates/{candidateID}/blurb - Oracle pitch
	GET    /s/{slug}/live      - Websocket event feed

# Handler Initialization

The router creates handler instances with dependency injection:

	sessionHandler := handlers.NewSessionHandler(store, cfg, oracle.Decider, hub)
	votingHandler := handlers.NewVotingHandler(store, cfg)
	discussionHandler := handlers.NewDiscussionHandler(store, cfg, oracle.Text, hub)

All handlers receive the session store and configuration; the oracle
halves and the hub may be nil, which disables the affected routes.
*/
package router
