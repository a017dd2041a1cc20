// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cineclub/cineforum/middleware"
	"github.com/cineclub/cineforum/session"
)

// storeError translates engine sentinels into HTTP responses. Conflict
// sentinels are expected under concurrent use and map to 409 rather
// than 500.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrSessionClosed):
		middleware.ErrorResponse(w, http.StatusConflict, "Session is closed")
	case errors.Is(err, session.ErrInvalidPhase):
		middleware.ErrorResponse(w, http.StatusConflict, "Operation not allowed in the current phase")
	case errors.Is(err, session.ErrIllegalTransition):
		middleware.ErrorResponse(w, http.StatusConflict, "Illegal phase transition")
	case errors.Is(err, session.ErrSlotAlreadyFinal):
		middleware.ErrorResponse(w, http.StatusConflict, "Time slot already finalized")
	case errors.Is(err, session.ErrAlreadyResolved):
		middleware.ErrorResponse(w, http.StatusConflict, "Session already resolved")
	case errors.Is(err, session.ErrFloorOccupied):
		middleware.ErrorResponse(w, http.StatusConflict, "Someone else is speaking")
	case errors.Is(err, session.ErrNotCurrentSpeaker):
		middleware.ErrorResponse(w, http.StatusConflict, "You do not hold the floor")
	case errors.Is(err, session.ErrAlreadyQueued):
		middleware.ErrorResponse(w, http.StatusConflict, "Already waiting to speak")
	case errors.Is(err, session.ErrAlreadySpeaking):
		middleware.ErrorResponse(w, http.StatusConflict, "Already holding the floor")
	case errors.Is(err, session.ErrNameTaken):
		middleware.ErrorResponse(w, http.StatusConflict, "Name already taken")
	case errors.Is(err, session.ErrNotCommitted):
		middleware.ErrorResponse(w, http.StatusForbidden, "Slot voting requires a discussion commitment")
	case errors.Is(err, session.ErrUnknownCandidate):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown candidate")
	case errors.Is(err, session.ErrUnknownMember):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Unknown member")
	case errors.Is(err, session.ErrResolutionFailed):
		middleware.ErrorResponse(w, http.StatusBadGateway, "Consensus oracle unavailable, try again")
	default:
		slog.Error("unexpected store error", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
	}
}
