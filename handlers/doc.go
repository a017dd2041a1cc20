// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Cineforum API.

# Handler Types

Each handler is a struct built around the session store:

  - SessionHandler: Session lifecycle (create, advance, resolve, close)
  - VotingHandler: Joining, the candidate ballot, commitments, slot votes
  - DiscussionHandler: The speaking floor, the message log, the live feed

Handlers are created via constructor functions:

	sessionHandler := handlers.NewSessionHandler(store, cfg, oracle, hub)

# Session Lifecycle

Sessions cycle through three phases: voting → viewing → discussion,
with an emergency revert from discussion back to viewing.

	POST /sessions                    → CreateSession (returns admin_key, share_slug)
	POST /sessions/{id}/advance       → Advance (records the winner on voting→viewing)
	POST /sessions/{id}/resolve-slot  → ResolveSlot (consults the consensus oracle, write-once)
	POST /sessions/{id}/close         → CloseSession (archive)

Organizer operations require the X-Admin-Key header.

# Member Flow

Members interact via the share slug:

	POST /s/{slug}/join       → JoinSession (returns member_token)
	POST /s/{slug}/vote       → CastVote (re-voting replaces the previous vote)
	POST /s/{slug}/commitment → ToggleCommitment (view or debate)
	POST /s/{slug}/slot-vote  → ToggleSlotVote (requires a debate commitment)

Member operations require the X-Member-Token header.

# Discussion

During the discussion phase members queue for the floor and post to
the append-only message log:

	POST   /s/{slug}/hand     → RaiseHand
	DELETE /s/{slug}/hand     → LowerHand
	POST   /s/{slug}/release  → ReleaseTurn
	POST   /s/{slug}/messages → AppendMessage
	GET    /s/{slug}/live     → Live (websocket event feed)

Granting the floor is an organizer action (POST /sessions/{id}/grant);
at most one member holds it at a time.

# Error Mapping

Engine sentinels map to HTTP status codes in errors.go. Conflicts that
arise from racing callers (an occupied floor, a second resolution) are
409s, not server errors.
*/
package handlers
