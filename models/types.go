// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Session phase constants
const (
	PhaseVoting     = "voting"
	PhaseViewing    = "viewing"
	PhaseDiscussion = "discussion"
)

// Commitment kind constants
const (
	CommitView   = "view"
	CommitDebate = "debate"
)

// Message role constants
const (
	RoleParticipant = "participant"
	RoleModerator   = "moderator"
)

// Request types

type CandidateInput struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Rationale string `json:"rationale,omitempty"`
}

type CreateSessionRequest struct {
	Title           string           `json:"title"`
	Candidates      []CandidateInput `json:"candidates"`
	VotingDeadline  *time.Time       `json:"voting_deadline,omitempty"`
	ViewingDeadline *time.Time       `json:"viewing_deadline,omitempty"`
}

type JoinSessionRequest struct {
	Name string `json:"name"`
}

type CastVoteRequest struct {
	CandidateID string `json:"candidate_id"`
}

type ToggleCommitmentRequest struct {
	Kind string `json:"kind"`
}

type ToggleSlotVoteRequest struct {
	Slot string `json:"slot"`
}

type AdvanceRequest struct {
	Phase    string `json:"phase"`
	WinnerID string `json:"winner_id,omitempty"`
}

type GrantTurnRequest struct {
	MemberID string `json:"member_id"`
}

type AppendMessageRequest struct {
	Text     string `json:"text"`
	AudioRef string `json:"audio_ref,omitempty"`
}

// Response types

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	AdminKey  string `json:"admin_key"`
	ShareSlug string `json:"share_slug"`
}

type JoinSessionResponse struct {
	MemberID    string `json:"member_id"`
	MemberToken string `json:"member_token"`
}

type CastVoteResponse struct {
	CandidateID string `json:"candidate_id"`
	Tally       Tally  `json:"tally"`
}

type ToggleCommitmentResponse struct {
	Kind      string `json:"kind"`
	Committed bool   `json:"committed"`
}

type ToggleSlotVoteResponse struct {
	Slot  string `json:"slot"`
	Voted bool   `json:"voted"`
}

type ResolveSlotResponse struct {
	FinalSlot string    `json:"final_slot,omitempty"`
	Cancelled bool      `json:"cancelled"`
	Message   string    `json:"message,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

type AdvanceResponse struct {
	Phase    string  `json:"phase"`
	WinnerID *string `json:"winner_id,omitempty"`
}

type BlurbResponse struct {
	CandidateID string `json:"candidate_id"`
	Blurb       string `json:"blurb"`
}

// AdminSessionResponse is the organizer's view: the full session plus
// the live projection of tallies and commitments.
type AdminSessionResponse struct {
	Session
	Created string  `json:"created"`
	Preview Preview `json:"preview"`
}

// PublicSessionResponse is what members see through the share link.
type PublicSessionResponse struct {
	Session
	Tally      Tally      `json:"tally"`
	SlotCounts SlotCounts `json:"slot_counts"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Domain types

type Session struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	ShareSlug        string     `json:"share_slug"`
	Sequence         int        `json:"sequence"`
	Phase            string     `json:"phase"`
	WinnerID         *string    `json:"winner_id,omitempty"`
	VotingDeadline   *time.Time `json:"voting_deadline,omitempty"`
	ViewingDeadline  *time.Time `json:"viewing_deadline,omitempty"`
	FinalSlot        *string    `json:"final_slot,omitempty"`
	FinalCancelled   bool       `json:"final_cancelled"`
	FinalNote        *string    `json:"final_note,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	CurrentSpeakerID *string    `json:"current_speaker_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`

	Candidates []Candidate `json:"candidates,omitempty"`
}

type Candidate struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Rationale string `json:"rationale,omitempty"`
	Position  int    `json:"position"`
}

type Member struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	Token     string    `json:"-"` // Never expose in JSON
	JoinedAt  time.Time `json:"joined_at"`
}

// candidate_id -> vote count
type Tally map[string]int

// slot -> voter count
type SlotCounts map[string]int

type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	AuthorID  *string   `json:"author_id,omitempty"` // nil for moderator-authored
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	AudioRef  *string   `json:"audio_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Preview is a read-only projection of what advancing and resolving
// would produce right now, without mutating stored state.
type Preview struct {
	WinnerID    string     `json:"winner_id"`
	WinnerTitle string     `json:"winner_title"`
	Tally       Tally      `json:"tally"`
	SlotCounts  SlotCounts `json:"slot_counts"`
	Viewers     int        `json:"viewers"`
	Debaters    int        `json:"debaters"`
}

// FloorState describes the discussion floor at a point in time.
type FloorState struct {
	CurrentSpeakerID *string  `json:"current_speaker_id,omitempty"`
	Queue            []string `json:"queue"`
}
