// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/cineclub/cineforum/auth"
	"github.com/cineclub/cineforum/cliparse"
	"github.com/cineclub/cineforum/middleware"
	"github.com/cineclub/cineforum/models"
	"github.com/cineclub/cineforum/session"
)

// VotingHandler covers the member surface reached through the share
// link: joining, the candidate ballot, commitments, and slot voting.
// Members authenticate with the X-Member-Token issued at join time.
type VotingHandler struct {
	store *session.Store
	cfg   cliparse.Config
}

func NewVotingHandler(store *session.Store, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{store: store, cfg: cfg}
}

// JoinSession handles POST /s/{slug}/join
func (h *VotingHandler) JoinSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}

	var req models.JoinSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	memberID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate member ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join")
		return
	}
	token, err := auth.GenerateMemberToken()
	if err != nil {
		slog.Error("failed to generate member token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to join")
		return
	}

	member, err := h.store.AddMember(r.Context(), sess.ID, memberID, req.Name, token)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("member joined", "session_id", sess.ID, "member_id", member.ID, "name", member.Name)

	middleware.JSONResponse(w, http.StatusCreated, models.JoinSessionResponse{
		MemberID:    member.ID,
		MemberToken: token,
	})
}

// GetSession handles GET /s/{slug}
func (h *VotingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}

	tally, err := h.store.Tally(r.Context(), sess.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	counts, err := h.store.SlotCounts(r.Context(), sess.ID)
	if err != nil {
		storeError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PublicSessionResponse{
		Session:    sess,
		Tally:      tally,
		SlotCounts: counts,
	})
}

// CastVote handles POST /s/{slug}/vote
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	member, ok := authMember(h.store, w, r, sess.ID)
	if !ok {
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	if err := h.store.CastVote(r.Context(), sess.ID, member.ID, req.CandidateID); err != nil {
		storeError(w, err)
		return
	}

	tally, err := h.store.Tally(r.Context(), sess.ID)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("vote cast", "session_id", sess.ID, "member_id", member.ID, "candidate_id", req.CandidateID)

	middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{
		CandidateID: req.CandidateID,
		Tally:       tally,
	})
}

// ToggleCommitment handles POST /s/{slug}/commitment
func (h *VotingHandler) ToggleCommitment(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	member, ok := authMember(h.store, w, r, sess.ID)
	if !ok {
		return
	}

	var req models.ToggleCommitmentRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Kind != models.CommitView && req.Kind != models.CommitDebate {
		middleware.ErrorResponse(w, http.StatusBadRequest, "kind must be view or debate")
		return
	}

	committed, err := h.store.ToggleCommitment(r.Context(), sess.ID, member.ID, req.Kind)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("commitment toggled", "session_id", sess.ID, "member_id", member.ID, "kind", req.Kind, "committed", committed)

	middleware.JSONResponse(w, http.StatusOK, models.ToggleCommitmentResponse{
		Kind:      req.Kind,
		Committed: committed,
	})
}

// ToggleSlotVote handles POST /s/{slug}/slot-vote
func (h *VotingHandler) ToggleSlotVote(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	member, ok := authMember(h.store, w, r, sess.ID)
	if !ok {
		return
	}

	var req models.ToggleSlotVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Slot == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "slot is required")
		return
	}

	voted, err := h.store.ToggleSlotVote(r.Context(), sess.ID, member.ID, req.Slot)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("slot vote toggled", "session_id", sess.ID, "member_id", member.ID, "slot", req.Slot, "voted", voted)

	middleware.JSONResponse(w, http.StatusOK, models.ToggleSlotVoteResponse{
		Slot:  req.Slot,
		Voted: voted,
	})
}
