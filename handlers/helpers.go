// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/cineclub/cineforum/middleware"
	"github.com/cineclub/cineforum/models"
	"github.com/cineclub/cineforum/session"
)

// resolveSlug loads the session behind the {slug} path segment.
func resolveSlug(store *session.Store, w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	slug := r.PathValue("slug")
	if slug == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "share slug is required")
		return models.Session{}, false
	}
	sess, err := store.GetBySlug(r.Context(), slug)
	if err != nil {
		storeError(w, err)
		return models.Session{}, false
	}
	return sess, true
}

// authMember resolves the caller's X-Member-Token against a session.
func authMember(store *session.Store, w http.ResponseWriter, r *http.Request, sessionID string) (models.Member, bool) {
	token := r.Header.Get("X-Member-Token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Member token is required")
		return models.Member{}, false
	}
	member, err := store.MemberByToken(r.Context(), sessionID, token)
	if err != nil {
		storeError(w, err)
		return models.Member{}, false
	}
	return member, true
}
