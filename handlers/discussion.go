// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cineclub/cineforum/auth"
	"github.com/cineclub/cineforum/cliparse"
	"github.com/cineclub/cineforum/live"
	"github.com/cineclub/cineforum/middleware"
	"github.com/cineclub/cineforum/models"
	"github.com/cineclub/cineforum/session"
)

// moderatorWindow is how many trailing messages the oracle sees when
// asked for an interjection.
const moderatorWindow = 12

// OracleClient is the text-generation side of the consensus oracle.
type OracleClient interface {
	ModeratorLine(ctx context.Context, subjectTitle string, episode int, recent []models.Message) (string, error)
	CandidateBlurb(ctx context.Context, title, rationale string) (string, error)
}

// DiscussionHandler covers the discussion phase: the speaking floor,
// the message log, moderator interjections, and the live feed.
type DiscussionHandler struct {
	store  *session.Store
	cfg    cliparse.Config
	oracle OracleClient
	hub    *live.Hub
}

func NewDiscussionHandler(store *session.Store, cfg cliparse.Config, oracle OracleClient, hub *live.Hub) *DiscussionHandler {
	return &DiscussionHandler{store: store, cfg: cfg, oracle: oracle, hub: hub}
}

// RaiseHand handles POST /s/{slug}/hand
func (h *DiscussionHandler) RaiseHand(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	member, ok := authMember(h.store, w, r, sess.ID)
	if !ok {
		return
	}

	if err := h.store.RaiseHand(r.Context(), sess.ID, member.ID); err != nil {
		storeError(w, err)
		return
	}

	h.hub.Publish(live.Event{
		Type:      live.EventHandRaised,
		SessionID: sess.ID,
		Payload:   map[string]string{"member_id": member.ID, "name": member.Name},
	})

	floor, err := h.store.Floor(r.Context(), sess.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, floor)
}

// LowerHand handles DELETE /s/{slug}/hand
func (h *DiscussionHandler) LowerHand(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	member, ok := authMember(h.store, w, r, sess.ID)
	if !ok {
		return
	}

	if err := h.store.LowerHand(r.Context(), sess.ID, member.ID); err != nil {
		storeError(w, err)
		return
	}

	floor, err := h.store.Floor(r.Context(), sess.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, floor)
}

// GetFloor handles GET /s/{slug}/floor
func (h *DiscussionHandler) GetFloor(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}

	floor, err := h.store.Floor(r.Context(), sess.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, floor)
}

// GrantTurn handles POST /sessions/{id}/grant. Granting the floor is
// an organizer action; the engine guarantees at most one holder even
// when two organizers click at once.
func (h *DiscussionHandler) GrantTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session id is required")
		return
	}
	if err := auth.ValidateAdminKey(sessionID, r.Header.Get("X-Admin-Key"), h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}

	var req models.GrantTurnRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.MemberID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "member_id is required")
		return
	}

	if err := h.store.GrantTurn(r.Context(), sessionID, req.MemberID); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("floor granted", "session_id", sessionID, "member_id", req.MemberID)
	h.hub.Publish(live.Event{
		Type:      live.EventFloorGranted,
		SessionID: sessionID,
		Payload:   map[string]string{"member_id": req.MemberID},
	})

	floor, err := h.store.Floor(r.Context(), sessionID)
	if err != nil {
		storeError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, floor)
}

// ReleaseTurn handles POST /s/{slug}/release
func (h *DiscussionHandler) ReleaseTurn(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	member, ok := authMember(h.store, w, r, sess.ID)
	if !ok {
		return
	}

	if err := h.store.ReleaseTurn(r.Context(), sess.ID, member.ID); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("floor released", "session_id", sess.ID, "member_id", member.ID)
	h.hub.Publish(live.Event{
		Type:      live.EventFloorReleased,
		SessionID: sess.ID,
		Payload:   map[string]string{"member_id": member.ID},
	})

	floor, err := h.store.Floor(r.Context(), sess.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, floor)
}

// AppendMessage handles POST /s/{slug}/messages
func (h *DiscussionHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	member, ok := authMember(h.store, w, r, sess.ID)
	if !ok {
		return
	}

	var req models.AppendMessageRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Text == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "text is required")
		return
	}

	msg, err := h.store.AppendMessage(r.Context(), sess.ID, &member.ID, models.RoleParticipant, req.Text, req.AudioRef)
	if err != nil {
		storeError(w, err)
		return
	}

	h.hub.Publish(live.Event{
		Type:      live.EventMessageAppended,
		SessionID: sess.ID,
		Payload:   msg,
	})

	middleware.JSONResponse(w, http.StatusCreated, msg)
}

// GetMessages handles GET /s/{slug}/messages?limit=N
func (h *DiscussionHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	msgs, err := h.store.Messages(r.Context(), sess.ID, limit)
	if err != nil {
		storeError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, msgs)
}

// ModeratorLine handles POST /sessions/{id}/moderator-line. The oracle
// drafts an interjection from the discussion tail; the line is
// appended to the log as a moderator message.
func (h *DiscussionHandler) ModeratorLine(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session id is required")
		return
	}
	if err := auth.ValidateAdminKey(sessionID, r.Header.Get("X-Admin-Key"), h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}
	if h.oracle == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Consensus oracle is not configured")
		return
	}

	sess, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		storeError(w, err)
		return
	}

	subject := sess.Title
	if sess.WinnerID != nil {
		for _, c := range sess.Candidates {
			if c.ID == *sess.WinnerID {
				subject = c.Title
				break
			}
		}
	}

	recent, err := h.store.Recent(r.Context(), sessionID, moderatorWindow)
	if err != nil {
		storeError(w, err)
		return
	}

	line, err := h.oracle.ModeratorLine(r.Context(), subject, sess.Sequence, recent)
	if err != nil {
		slog.Error("moderator line failed", "session_id", sessionID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Consensus oracle unavailable, try again")
		return
	}

	msg, err := h.store.AppendMessage(r.Context(), sessionID, nil, models.RoleModerator, line, "")
	if err != nil {
		storeError(w, err)
		return
	}

	h.hub.Publish(live.Event{
		Type:      live.EventMessageAppended,
		SessionID: sessionID,
		Payload:   msg,
	})

	middleware.JSONResponse(w, http.StatusCreated, msg)
}

// CandidateBlurb handles GET /s/{slug}/candidates/{candidateID}/blurb
func (h *DiscussionHandler) CandidateBlurb(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	if h.oracle == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Consensus oracle is not configured")
		return
	}

	candidateID := r.PathValue("candidateID")
	var found *models.Candidate
	for i := range sess.Candidates {
		if sess.Candidates[i].ID == candidateID {
			found = &sess.Candidates[i]
			break
		}
	}
	if found == nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}

	blurb, err := h.oracle.CandidateBlurb(r.Context(), found.Title, found.Rationale)
	if err != nil {
		slog.Error("candidate blurb failed", "session_id", sess.ID, "candidate_id", candidateID, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, "Consensus oracle unavailable, try again")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.BlurbResponse{
		CandidateID: candidateID,
		Blurb:       blurb,
	})
}

// Live handles GET /s/{slug}/live, the websocket event feed.
func (h *DiscussionHandler) Live(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSlug(h.store, w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Live feed is not enabled")
		return
	}
	h.hub.Serve(w, r, sess.ID)
}
