// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cineclub/cineforum/models"
	"github.com/cineclub/cineforum/session"
	"github.com/cineclub/cineforum/testutil"
)

type fixedOracle struct {
	line  string
	blurb string
	err   error
}

func (o fixedOracle) ModeratorLine(ctx context.Context, subjectTitle string, episode int, recent []models.Message) (string, error) {
	return o.line, o.err
}

func (o fixedOracle) CandidateBlurb(ctx context.Context, title, rationale string) (string, error) {
	return o.blurb, o.err
}

func TestFloorEndpoints(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	store := session.NewStore(db)
	handler := NewDiscussionHandler(store, cfg, nil, nil)

	sessionID, adminKey, shareSlug := testutil.CreateTestSession(t, store, cfg, "Stalker")
	aliceID, aliceToken := testutil.JoinTestMember(t, store, sessionID, "alice")
	_, bobToken := testutil.JoinTestMember(t, store, sessionID, "bob")
	testutil.AdvanceTestSession(t, store, sessionID, models.PhaseDiscussion)

	raise := func(token string) *httptest.ResponseRecorder {
		r := testutil.MakeRequest("POST", "/s/"+shareSlug+"/hand", nil,
			map[string]string{"X-Member-Token": token})
		r.SetPathValue("slug", shareSlug)
		w := httptest.NewRecorder()
		handler.RaiseHand(w, r)
		return w
	}

	testutil.AssertStatus(t, raise(aliceToken), http.StatusOK)
	testutil.AssertStatus(t, raise(bobToken), http.StatusOK)
	// Raising twice is a conflict
	testutil.AssertStatus(t, raise(aliceToken), http.StatusConflict)

	// Granting is an organizer action
	grantReq := testutil.MakeRequest("POST", "/sessions/"+sessionID+"/grant",
		models.GrantTurnRequest{MemberID: aliceID},
		map[string]string{"X-Admin-Key": adminKey})
	grantReq.SetPathValue("id", sessionID)
	w := httptest.NewRecorder()
	handler.GrantTurn(w, grantReq)
	testutil.AssertStatus(t, w, http.StatusOK)

	var floor models.FloorState
	testutil.AssertJSON(t, w, &floor)
	if floor.CurrentSpeakerID == nil || *floor.CurrentSpeakerID != aliceID {
		t.Errorf("Expected alice holding the floor, got %v", floor.CurrentSpeakerID)
	}
	if len(floor.Queue) != 1 {
		t.Errorf("Expected alice dequeued, queue %v", floor.Queue)
	}

	// Release by a non-holder is a conflict; by the holder it works
	release := func(token string) *httptest.ResponseRecorder {
		r := testutil.MakeRequest("POST", "/s/"+shareSlug+"/release", nil,
			map[string]string{"X-Member-Token": token})
		r.SetPathValue("slug", shareSlug)
		w := httptest.NewRecorder()
		handler.ReleaseTurn(w, r)
		return w
	}
	testutil.AssertStatus(t, release(bobToken), http.StatusConflict)
	testutil.AssertStatus(t, release(aliceToken), http.StatusOK)

	// Public floor view
	r := testutil.MakeRequest("GET", "/s/"+shareSlug+"/floor", nil, nil)
	r.SetPathValue("slug", shareSlug)
	w = httptest.NewRecorder()
	handler.GetFloor(w, r)
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &floor)
	if floor.CurrentSpeakerID != nil {
		t.Errorf("Expected vacant floor, got %v", floor.CurrentSpeakerID)
	}
}

func TestMessageEndpoints(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	store := session.NewStore(db)
	handler := NewDiscussionHandler(store, cfg, nil, nil)

	sessionID, _, shareSlug := testutil.CreateTestSession(t, store, cfg, "Stalker")
	_, token := testutil.JoinTestMember(t, store, sessionID, "alice")

	post := func(text string) *httptest.ResponseRecorder {
		r := testutil.MakeRequest("POST", "/s/"+shareSlug+"/messages",
			models.AppendMessageRequest{Text: text},
			map[string]string{"X-Member-Token": token})
		r.SetPathValue("slug", shareSlug)
		w := httptest.NewRecorder()
		handler.AppendMessage(w, r)
		return w
	}

	w := post("first thoughts")
	testutil.AssertStatus(t, w, http.StatusCreated)
	var msg models.Message
	testutil.AssertJSON(t, w, &msg)
	if msg.Seq != 1 || msg.Role != models.RoleParticipant {
		t.Errorf("Unexpected message: %+v", msg)
	}

	testutil.AssertStatus(t, post(""), http.StatusBadRequest)
	testutil.AssertStatus(t, post("second"), http.StatusCreated)

	r := testutil.MakeRequest("GET", "/s/"+shareSlug+"/messages?limit=1", nil, nil)
	r.SetPathValue("slug", shareSlug)
	w = httptest.NewRecorder()
	handler.GetMessages(w, r)
	testutil.AssertStatus(t, w, http.StatusOK)

	var msgs []models.Message
	testutil.AssertJSON(t, w, &msgs)
	if len(msgs) != 1 || msgs[0].Seq != 1 {
		t.Errorf("Expected the first message only, got %v", msgs)
	}
}

func TestModeratorLineEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	store := session.NewStore(db)

	sessionID, adminKey, _ := testutil.CreateTestSession(t, store, cfg, "Stalker")
	testutil.AdvanceTestSession(t, store, sessionID, models.PhaseDiscussion)

	call := func(h *DiscussionHandler) *httptest.ResponseRecorder {
		r := testutil.MakeRequest("POST", "/sessions/"+sessionID+"/moderator-line", nil,
			map[string]string{"X-Admin-Key": adminKey})
		r.SetPathValue("id", sessionID)
		w := httptest.NewRecorder()
		h.ModeratorLine(w, r)
		return w
	}

	// Without an oracle the route is disabled
	testutil.AssertStatus(t, call(NewDiscussionHandler(store, cfg, nil, nil)), http.StatusServiceUnavailable)

	handler := NewDiscussionHandler(store, cfg, fixedOracle{line: "What stood out to you?"}, nil)
	w := call(handler)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var msg models.Message
	testutil.AssertJSON(t, w, &msg)
	if msg.Role != models.RoleModerator || msg.AuthorID != nil {
		t.Errorf("Expected anonymous moderator message, got %+v", msg)
	}
	if msg.Text != "What stood out to you?" {
		t.Errorf("Unexpected text: %q", msg.Text)
	}
}

func TestCandidateBlurbEndpoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	cfg := testutil.GetTestConfig()
	store := session.NewStore(db)
	handler := NewDiscussionHandler(store, cfg, fixedOracle{blurb: "A slow-burn trip into the Zone."}, nil)

	sessionID, _, shareSlug := testutil.CreateTestSession(t, store, cfg, "Stalker")
	sess, err := store.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	candidateID := sess.Candidates[0].ID

	r := testutil.MakeRequest("GET", "/s/"+shareSlug+"/candidates/"+candidateID+"/blurb", nil, nil)
	r.SetPathValue("slug", shareSlug)
	r.SetPathValue("candidateID", candidateID)
	w := httptest.NewRecorder()
	handler.CandidateBlurb(w, r)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.BlurbResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Blurb == "" {
		t.Error("Expected non-empty blurb")
	}

	// Unknown candidate
	r = testutil.MakeRequest("GET", "/s/"+shareSlug+"/candidates/bogus/blurb", nil, nil)
	r.SetPathValue("slug", shareSlug)
	r.SetPathValue("candidateID", "bogus")
	w = httptest.NewRecorder()
	handler.CandidateBlurb(w, r)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
