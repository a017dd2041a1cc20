// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreateSessionRequest: title, candidates, optional deadlines
  - JoinSessionRequest: name
  - CastVoteRequest: candidate_id
  - ToggleCommitmentRequest: kind ("view" or "debate")
  - ToggleSlotVoteRequest: slot
  - AdvanceRequest: phase, optional winner_id override
  - GrantTurnRequest: member_id
  - AppendMessageRequest: text, optional audio_ref

# Response Types

Types for JSON responses:

  - CreateSessionResponse: session_id, admin_key, share_slug
  - JoinSessionResponse: member_id, member_token
  - CastVoteResponse: candidate_id, tally
  - ToggleCommitmentResponse / ToggleSlotVoteResponse: toggle outcome
  - ResolveSlotResponse: final_slot or cancellation, resolved_at
  - AdvanceResponse: phase, winner_id
  - AdminSessionResponse / PublicSessionResponse: composed views
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Session: session metadata, phase, winner, final slot
  - Candidate: a ballot entry with its creation-order position
  - Member: a joined member (token never serialized)
  - Message: one entry of the append-only discussion log
  - Preview: live projection of tally, slots, and commitments
  - FloorState: current speaker and FIFO queue

# Constants

Phase values:

	PhaseVoting     = "voting"
	PhaseViewing    = "viewing"
	PhaseDiscussion = "discussion"

Commitment kinds:

	CommitView   = "view"
	CommitDebate = "debate"

Message roles:

	RoleParticipant = "participant"
	RoleModerator   = "moderator"
*/
package models
