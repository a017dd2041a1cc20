// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/cineclub/cineforum/auth"
	"github.com/cineclub/cineforum/cliparse"
	"github.com/cineclub/cineforum/live"
	"github.com/cineclub/cineforum/middleware"
	"github.com/cineclub/cineforum/models"
	"github.com/cineclub/cineforum/session"
)

// SessionHandler covers the organizer surface: creating sessions,
// driving the phase machine, resolving the final slot, and archiving.
// Every route except creation requires the session's admin key.
type SessionHandler struct {
	store   *session.Store
	cfg     cliparse.Config
	decider session.SlotDecider
	hub     *live.Hub
}

func NewSessionHandler(store *session.Store, cfg cliparse.Config, decider session.SlotDecider, hub *live.Hub) *SessionHandler {
	return &SessionHandler{store: store, cfg: cfg, decider: decider, hub: hub}
}

// requireAdmin validates the X-Admin-Key header for a session.
func (h *SessionHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.PathValue("id")
	if sessionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "session id is required")
		return "", false
	}
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(sessionID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return "", false
	}
	return sessionID, true
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Candidates) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one candidate is required")
		return
	}
	for _, c := range req.Candidates {
		if c.Title == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "candidate title is required")
			return
		}
	}

	sessionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate session ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	adminKey := auth.GenerateAdminKey(sessionID, h.cfg.AdminKeySalt)
	shareSlug := auth.GenerateShareSlug(sessionID, h.cfg.SessionSlugSalt)

	_, err = h.store.Create(r.Context(), session.CreateInput{
		ID:              sessionID,
		Title:           req.Title,
		ShareSlug:       shareSlug,
		Candidates:      req.Candidates,
		VotingDeadline:  req.VotingDeadline,
		ViewingDeadline: req.ViewingDeadline,
	})
	if err != nil {
		slog.Error("failed to create session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	slog.Info("session created", "session_id", sessionID, "title", req.Title, "candidates", len(req.Candidates))

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		SessionID: sessionID,
		AdminKey:  adminKey,
		ShareSlug: shareSlug,
	})
}

// GetSession handles GET /sessions/{id} (admin view)
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		storeError(w, err)
		return
	}

	preview, err := h.store.Preview(r.Context(), sessionID)
	if err != nil {
		storeError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.AdminSessionResponse{
		Session: sess,
		Created: humanize.Time(sess.CreatedAt),
		Preview: preview,
	})
}

// Advance handles POST /sessions/{id}/advance
func (h *SessionHandler) Advance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req models.AdvanceRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Phase == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "phase is required")
		return
	}

	sess, err := h.store.Advance(r.Context(), sessionID, req.Phase, req.WinnerID)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("session advanced", "session_id", sessionID, "phase", sess.Phase)
	h.hub.Publish(live.Event{
		Type:      live.EventPhaseChanged,
		SessionID: sessionID,
		Payload:   map[string]interface{}{"phase": sess.Phase, "winner_id": sess.WinnerID},
	})

	middleware.JSONResponse(w, http.StatusOK, models.AdvanceResponse{
		Phase:    sess.Phase,
		WinnerID: sess.WinnerID,
	})
}

// ResolveSlot handles POST /sessions/{id}/resolve-slot
func (h *SessionHandler) ResolveSlot(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	if h.decider == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Consensus oracle is not configured")
		return
	}

	decision, resolvedAt, err := h.store.ResolveFinalSlot(r.Context(), sessionID, h.decider)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("slot resolved", "session_id", sessionID, "slot", decision.ChosenSlot, "cancelled", decision.Cancelled)
	h.hub.Publish(live.Event{
		Type:      live.EventSlotResolved,
		SessionID: sessionID,
		Payload:   map[string]interface{}{"final_slot": decision.ChosenSlot, "cancelled": decision.Cancelled},
	})

	middleware.JSONResponse(w, http.StatusOK, models.ResolveSlotResponse{
		FinalSlot:  decision.ChosenSlot,
		Cancelled:  decision.Cancelled,
		Message:    decision.Message,
		ResolvedAt: resolvedAt,
	})
}

// CloseSession handles POST /sessions/{id}/close
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	if err := h.store.Close(r.Context(), sessionID); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("session closed", "session_id", sessionID)
	middleware.JSONResponse(w, http.StatusOK, map[string]string{"status": "closed"})
}
