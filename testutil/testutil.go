// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cineclub/cineforum/auth"
	"github.com/cineclub/cineforum/cliparse"
	"github.com/cineclub/cineforum/db"
	"github.com/cineclub/cineforum/models"
	"github.com/cineclub/cineforum/session"
)

// SetupTestDB opens a fresh in-memory database with the full schema.
// The connection pool is capped at one connection: the memory database
// lives exactly as long as its connection, and a single connection
// serializes transactions the way a real server's database would.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3419,
		DatabaseURL:     ":memory:",
		DatabaseType:    "sqlite",
		AdminKeySalt:    "test-admin-salt",
		SessionSlugSalt: "test-slug-salt",
		OracleTimeout:   5 * time.Second,
	}
}

// CreateTestSession creates a session with the given candidates and
// returns its ID, admin key, and share slug. The session starts in the
// voting phase.
func CreateTestSession(t *testing.T, store *session.Store, cfg cliparse.Config, titles ...string) (sessionID, adminKey, shareSlug string) {
	t.Helper()

	sessionID, _ = auth.GenerateID(16)
	adminKey = auth.GenerateAdminKey(sessionID, cfg.AdminKeySalt)
	shareSlug = auth.GenerateShareSlug(sessionID, cfg.SessionSlugSalt)

	candidates := make([]models.CandidateInput, len(titles))
	for i, title := range titles {
		candidates[i] = models.CandidateInput{Title: title}
	}

	_, err := store.Create(context.Background(), session.CreateInput{
		ID:         sessionID,
		Title:      "Test Session",
		ShareSlug:  shareSlug,
		Candidates: candidates,
	})
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return sessionID, adminKey, shareSlug
}

// JoinTestMember registers a member and returns the member ID and token.
func JoinTestMember(t *testing.T, store *session.Store, sessionID, name string) (memberID, token string) {
	t.Helper()

	memberID, _ = auth.GenerateID(16)
	token, err := auth.GenerateMemberToken()
	if err != nil {
		t.Fatalf("Failed to generate member token: %v", err)
	}

	if _, err := store.AddMember(context.Background(), sessionID, memberID, name, token); err != nil {
		t.Fatalf("Failed to join test member: %v", err)
	}
	return memberID, token
}

// CastTestVote casts a candidate vote on behalf of a member.
func CastTestVote(t *testing.T, store *session.Store, sessionID, memberID, candidateID string) {
	t.Helper()
	if err := store.CastVote(context.Background(), sessionID, memberID, candidateID); err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
}

// CommitTestMember toggles a commitment on for a member. The session
// must be past the voting phase.
func CommitTestMember(t *testing.T, store *session.Store, sessionID, memberID, kind string) {
	t.Helper()
	committed, err := store.ToggleCommitment(context.Background(), sessionID, memberID, kind)
	if err != nil {
		t.Fatalf("Failed to commit test member: %v", err)
	}
	if !committed {
		t.Fatalf("Expected commitment toggle to commit, got withdraw")
	}
}

// AdvanceTestSession moves a session to the given phase, walking the
// transition chain and recording the ballot winner along the way.
func AdvanceTestSession(t *testing.T, store *session.Store, sessionID, phase string) {
	t.Helper()

	ctx := context.Background()
	if phase == models.PhaseViewing || phase == models.PhaseDiscussion {
		if _, err := store.Advance(ctx, sessionID, models.PhaseViewing, ""); err != nil {
			t.Fatalf("Failed to advance to viewing: %v", err)
		}
	}
	if phase == models.PhaseDiscussion {
		if _, err := store.Advance(ctx, sessionID, models.PhaseDiscussion, ""); err != nil {
			t.Fatalf("Failed to advance to discussion: %v", err)
		}
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
