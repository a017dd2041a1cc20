// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cineclub/cineforum/db"
	"github.com/cineclub/cineforum/models"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return NewStore(conn), conn
}

func createSession(t *testing.T, store *Store, id string, titles ...string) models.Session {
	t.Helper()

	candidates := make([]models.CandidateInput, len(titles))
	for i, title := range titles {
		candidates[i] = models.CandidateInput{ID: id + "-c" + string(rune('a'+i)), Title: title}
	}

	sess, err := store.Create(context.Background(), CreateInput{
		ID:         id,
		Title:      "Sunday Screening",
		ShareSlug:  "slug-" + id,
		Candidates: candidates,
	})
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return sess
}

func joinMember(t *testing.T, store *Store, sessionID, name string) string {
	t.Helper()

	m, err := store.AddMember(context.Background(), sessionID, sessionID+"-"+name, name, "token-"+name)
	if err != nil {
		t.Fatalf("Failed to add member %s: %v", name, err)
	}
	return m.ID
}

func TestCreateAndGet(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	createSession(t, store, "s1", "Stalker", "Brazil", "Ikiru")

	sess, err := store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if sess.Phase != models.PhaseVoting {
		t.Errorf("Expected new session in voting phase, got %s", sess.Phase)
	}
	if sess.Sequence != 1 {
		t.Errorf("Expected sequence 1, got %d", sess.Sequence)
	}
	if len(sess.Candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(sess.Candidates))
	}
	for i, title := range []string{"Stalker", "Brazil", "Ikiru"} {
		if sess.Candidates[i].Title != title {
			t.Errorf("Candidate %d: expected %q, got %q", i, title, sess.Candidates[i].Title)
		}
		if sess.Candidates[i].Position != i {
			t.Errorf("Candidate %d: expected position %d, got %d", i, i, sess.Candidates[i].Position)
		}
	}

	bySlug, err := store.GetBySlug(context.Background(), "slug-s1")
	if err != nil {
		t.Fatalf("GetBySlug failed: %v", err)
	}
	if bySlug.ID != "s1" {
		t.Errorf("Expected session s1 by slug, got %s", bySlug.ID)
	}

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestCreateRequiresCandidates(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	_, err := store.Create(context.Background(), CreateInput{ID: "s1", Title: "Empty", ShareSlug: "slug-s1"})
	if !errors.Is(err, ErrNoCandidates) {
		t.Errorf("Expected ErrNoCandidates, got %v", err)
	}
}

func TestSequenceIncrements(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	createSession(t, store, "s1", "A")
	second := createSession(t, store, "s2", "B")

	if second.Sequence != 2 {
		t.Errorf("Expected sequence 2 for second session, got %d", second.Sequence)
	}
}

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{"voting to viewing", models.PhaseVoting, models.PhaseViewing, nil},
		{"viewing to discussion", models.PhaseViewing, models.PhaseDiscussion, nil},
		{"discussion revert to viewing", models.PhaseDiscussion, models.PhaseViewing, nil},
		{"voting skip to discussion", models.PhaseVoting, models.PhaseDiscussion, ErrIllegalTransition},
		{"viewing back to voting", models.PhaseViewing, models.PhaseVoting, ErrIllegalTransition},
		{"discussion back to voting", models.PhaseDiscussion, models.PhaseVoting, ErrIllegalTransition},
		{"viewing to viewing", models.PhaseViewing, models.PhaseViewing, ErrIllegalTransition},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, conn := newTestStore(t)
			defer conn.Close()

			ctx := context.Background()
			createSession(t, store, "s1", "Stalker", "Brazil")

			// Walk the session to the starting phase.
			if tc.from != models.PhaseVoting {
				if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
					t.Fatalf("Setup advance to viewing failed: %v", err)
				}
			}
			if tc.from == models.PhaseDiscussion {
				if _, err := store.Advance(ctx, "s1", models.PhaseDiscussion, ""); err != nil {
					t.Fatalf("Setup advance to discussion failed: %v", err)
				}
			}

			_, err := store.Advance(ctx, "s1", tc.to, "")
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Advance %s -> %s failed: %v", tc.from, tc.to, err)
				}
				sess, _ := store.Get(ctx, "s1")
				if sess.Phase != tc.to {
					t.Errorf("Expected phase %s, got %s", tc.to, sess.Phase)
				}
			} else if !errors.Is(err, tc.wantErr) {
				t.Errorf("Advance %s -> %s: expected %v, got %v", tc.from, tc.to, tc.wantErr, err)
			}
		})
	}
}

func TestAdvanceRecordsWinner(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker", "Brazil")
	alice := joinMember(t, store, "s1", "alice")
	bob := joinMember(t, store, "s1", "bob")

	if err := store.CastVote(ctx, "s1", alice, "s1-cb"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := store.CastVote(ctx, "s1", bob, "s1-cb"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	sess, err := store.Advance(ctx, "s1", models.PhaseViewing, "")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if sess.WinnerID == nil || *sess.WinnerID != "s1-cb" {
		t.Errorf("Expected winner s1-cb, got %v", sess.WinnerID)
	}

	// The revert keeps the winner untouched.
	if _, err := store.Advance(ctx, "s1", models.PhaseDiscussion, ""); err != nil {
		t.Fatalf("Advance to discussion failed: %v", err)
	}
	sess, err = store.Advance(ctx, "s1", models.PhaseViewing, "")
	if err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if sess.WinnerID == nil || *sess.WinnerID != "s1-cb" {
		t.Errorf("Expected winner preserved across revert, got %v", sess.WinnerID)
	}
}

func TestAdvanceWithExplicitWinner(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker", "Brazil")

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, "bogus"); !errors.Is(err, ErrUnknownCandidate) {
		t.Fatalf("Expected ErrUnknownCandidate for bogus override, got %v", err)
	}

	sess, err := store.Advance(ctx, "s1", models.PhaseViewing, "s1-cb")
	if err != nil {
		t.Fatalf("Advance with override failed: %v", err)
	}
	if sess.WinnerID == nil || *sess.WinnerID != "s1-cb" {
		t.Errorf("Expected overridden winner s1-cb, got %v", sess.WinnerID)
	}
}

func TestCastVote(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker", "Brazil")
	alice := joinMember(t, store, "s1", "alice")

	if err := store.CastVote(ctx, "s1", alice, "s1-ca"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	// Re-voting replaces the previous vote rather than adding one.
	if err := store.CastVote(ctx, "s1", alice, "s1-cb"); err != nil {
		t.Fatalf("Re-vote failed: %v", err)
	}

	tally, err := store.Tally(ctx, "s1")
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if tally["s1-ca"] != 0 || tally["s1-cb"] != 1 {
		t.Errorf("Expected tally {ca:0 cb:1}, got %v", tally)
	}

	if err := store.CastVote(ctx, "s1", alice, "bogus"); !errors.Is(err, ErrUnknownCandidate) {
		t.Errorf("Expected ErrUnknownCandidate, got %v", err)
	}
	if err := store.CastVote(ctx, "s1", "stranger", "s1-ca"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Expected ErrUnknownMember, got %v", err)
	}
}

func TestCastVoteOutsideVotingPhase(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if err := store.CastVote(ctx, "s1", alice, "s1-ca"); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("Expected ErrInvalidPhase, got %v", err)
	}
}

func TestWinnerTieBreak(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker", "Brazil", "Ikiru")
	alice := joinMember(t, store, "s1", "alice")
	bob := joinMember(t, store, "s1", "bob")

	// One vote each for the second and third candidates: the tie goes
	// to the earlier ballot position.
	if err := store.CastVote(ctx, "s1", alice, "s1-cc"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := store.CastVote(ctx, "s1", bob, "s1-cb"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}

	winner, err := store.Winner(ctx, "s1")
	if err != nil {
		t.Fatalf("Winner failed: %v", err)
	}
	if winner.ID != "s1-cb" {
		t.Errorf("Expected tie broken by position (s1-cb), got %s", winner.ID)
	}
}

func TestWinnerZeroTally(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	createSession(t, store, "s1", "Stalker", "Brazil")

	winner, err := store.Winner(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Winner failed: %v", err)
	}
	if winner.ID != "s1-ca" {
		t.Errorf("Expected first candidate on zero tally, got %s", winner.ID)
	}
}

func TestToggleCommitment(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")

	// Commitments open once voting ends.
	if _, err := store.ToggleCommitment(ctx, "s1", alice, models.CommitView); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("Expected ErrInvalidPhase during voting, got %v", err)
	}

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	committed, err := store.ToggleCommitment(ctx, "s1", alice, models.CommitView)
	if err != nil {
		t.Fatalf("ToggleCommitment failed: %v", err)
	}
	if !committed {
		t.Error("Expected first toggle to commit")
	}

	committed, err = store.ToggleCommitment(ctx, "s1", alice, models.CommitView)
	if err != nil {
		t.Fatalf("Second toggle failed: %v", err)
	}
	if committed {
		t.Error("Expected second toggle to withdraw")
	}

	if _, err := store.ToggleCommitment(ctx, "s1", alice, "snacks"); err == nil {
		t.Error("Expected error for unknown commitment kind")
	}
}

func TestSlotVoteRequiresDebateCommitment(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if _, err := store.ToggleSlotVote(ctx, "s1", alice, "fri-20"); !errors.Is(err, ErrNotCommitted) {
		t.Fatalf("Expected ErrNotCommitted, got %v", err)
	}

	if _, err := store.ToggleCommitment(ctx, "s1", alice, models.CommitDebate); err != nil {
		t.Fatalf("ToggleCommitment failed: %v", err)
	}

	voted, err := store.ToggleSlotVote(ctx, "s1", alice, "fri-20")
	if err != nil {
		t.Fatalf("ToggleSlotVote failed: %v", err)
	}
	if !voted {
		t.Error("Expected first toggle to vote")
	}

	voted, err = store.ToggleSlotVote(ctx, "s1", alice, "fri-20")
	if err != nil {
		t.Fatalf("Second slot toggle failed: %v", err)
	}
	if voted {
		t.Error("Expected second toggle to withdraw")
	}
}

type stubDecider struct {
	decision SlotDecision
	err      error
	calls    atomic.Int32
}

func (d *stubDecider) DecideSlot(ctx context.Context, req SlotDecisionRequest) (SlotDecision, error) {
	d.calls.Add(1)
	if d.err != nil {
		return SlotDecision{}, d.err
	}
	return d.decision, nil
}

func TestResolveFinalSlot(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")

	decider := &stubDecider{decision: SlotDecision{ChosenSlot: "fri-20"}}

	// Resolution is meaningless while voting is still open.
	if _, _, err := store.ResolveFinalSlot(ctx, "s1", decider); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("Expected ErrInvalidPhase during voting, got %v", err)
	}

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := store.ToggleCommitment(ctx, "s1", alice, models.CommitDebate); err != nil {
		t.Fatalf("ToggleCommitment failed: %v", err)
	}
	if _, err := store.ToggleSlotVote(ctx, "s1", alice, "fri-20"); err != nil {
		t.Fatalf("ToggleSlotVote failed: %v", err)
	}

	decision, resolvedAt, err := store.ResolveFinalSlot(ctx, "s1", decider)
	if err != nil {
		t.Fatalf("ResolveFinalSlot failed: %v", err)
	}
	if decision.ChosenSlot != "fri-20" || decision.Cancelled {
		t.Errorf("Unexpected decision: %+v", decision)
	}
	if resolvedAt.IsZero() {
		t.Error("Expected non-zero resolution time")
	}

	sess, _ := store.Get(ctx, "s1")
	if sess.FinalSlot == nil || *sess.FinalSlot != "fri-20" {
		t.Errorf("Expected final slot recorded, got %v", sess.FinalSlot)
	}

	// Write-once: a second resolution is a conflict.
	if _, _, err := store.ResolveFinalSlot(ctx, "s1", decider); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("Expected ErrAlreadyResolved, got %v", err)
	}

	// Slot votes freeze after resolution.
	if _, err := store.ToggleSlotVote(ctx, "s1", alice, "sat-18"); !errors.Is(err, ErrSlotAlreadyFinal) {
		t.Errorf("Expected ErrSlotAlreadyFinal, got %v", err)
	}
}

func TestResolveFinalSlotOracleFailure(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	decider := &stubDecider{err: errors.New("oracle unreachable")}
	_, _, err := store.ResolveFinalSlot(ctx, "s1", decider)
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("Expected ErrResolutionFailed, got %v", err)
	}

	// A failed resolution leaves no mark; a retry with a working
	// oracle succeeds.
	sess, _ := store.Get(ctx, "s1")
	if sess.ResolvedAt != nil {
		t.Error("Expected no resolution recorded after oracle failure")
	}

	working := &stubDecider{decision: SlotDecision{Cancelled: true, Message: "not enough interest"}}
	decision, _, err := store.ResolveFinalSlot(ctx, "s1", working)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if !decision.Cancelled {
		t.Error("Expected cancellation decision")
	}

	sess, _ = store.Get(ctx, "s1")
	if !sess.FinalCancelled {
		t.Error("Expected cancellation recorded")
	}
	if sess.FinalSlot != nil {
		t.Errorf("Expected no final slot on cancellation, got %v", sess.FinalSlot)
	}
}

func TestFloorLifecycle(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")
	bob := joinMember(t, store, "s1", "bob")
	carol := joinMember(t, store, "s1", "carol")

	// The floor only exists during discussion.
	if err := store.RaiseHand(ctx, "s1", alice); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("Expected ErrInvalidPhase, got %v", err)
	}

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := store.Advance(ctx, "s1", models.PhaseDiscussion, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	for _, id := range []string{alice, bob, carol} {
		if err := store.RaiseHand(ctx, "s1", id); err != nil {
			t.Fatalf("RaiseHand failed: %v", err)
		}
	}
	if err := store.RaiseHand(ctx, "s1", alice); !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("Expected ErrAlreadyQueued, got %v", err)
	}

	floor, err := store.Floor(ctx, "s1")
	if err != nil {
		t.Fatalf("Floor failed: %v", err)
	}
	if len(floor.Queue) != 3 || floor.Queue[0] != alice || floor.Queue[1] != bob || floor.Queue[2] != carol {
		t.Errorf("Expected FIFO queue [alice bob carol], got %v", floor.Queue)
	}

	// Leaving the queue is idempotent.
	if err := store.LowerHand(ctx, "s1", carol); err != nil {
		t.Fatalf("LowerHand failed: %v", err)
	}
	if err := store.LowerHand(ctx, "s1", carol); err != nil {
		t.Fatalf("Repeated LowerHand failed: %v", err)
	}

	if err := store.GrantTurn(ctx, "s1", alice); err != nil {
		t.Fatalf("GrantTurn failed: %v", err)
	}
	if err := store.GrantTurn(ctx, "s1", bob); !errors.Is(err, ErrFloorOccupied) {
		t.Errorf("Expected ErrFloorOccupied, got %v", err)
	}
	if err := store.RaiseHand(ctx, "s1", alice); !errors.Is(err, ErrAlreadySpeaking) {
		t.Errorf("Expected ErrAlreadySpeaking, got %v", err)
	}

	floor, _ = store.Floor(ctx, "s1")
	if floor.CurrentSpeakerID == nil || *floor.CurrentSpeakerID != alice {
		t.Errorf("Expected alice holding the floor, got %v", floor.CurrentSpeakerID)
	}
	if len(floor.Queue) != 1 || floor.Queue[0] != bob {
		t.Errorf("Expected queue [bob] after grant, got %v", floor.Queue)
	}

	// Only the holder can release, and release does not auto-grant.
	if err := store.ReleaseTurn(ctx, "s1", bob); !errors.Is(err, ErrNotCurrentSpeaker) {
		t.Errorf("Expected ErrNotCurrentSpeaker, got %v", err)
	}
	if err := store.ReleaseTurn(ctx, "s1", alice); err != nil {
		t.Fatalf("ReleaseTurn failed: %v", err)
	}

	floor, _ = store.Floor(ctx, "s1")
	if floor.CurrentSpeakerID != nil {
		t.Errorf("Expected vacant floor, got %v", floor.CurrentSpeakerID)
	}
	if len(floor.Queue) != 1 || floor.Queue[0] != bob {
		t.Errorf("Expected bob still queued, got %v", floor.Queue)
	}
}

func TestFloorResetsOnEnteringDiscussion(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")
	bob := joinMember(t, store, "s1", "bob")

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := store.Advance(ctx, "s1", models.PhaseDiscussion, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	if err := store.GrantTurn(ctx, "s1", alice); err != nil {
		t.Fatalf("GrantTurn failed: %v", err)
	}
	if err := store.RaiseHand(ctx, "s1", bob); err != nil {
		t.Fatalf("RaiseHand failed: %v", err)
	}

	// Revert and re-enter: the floor comes back empty.
	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	if _, err := store.Advance(ctx, "s1", models.PhaseDiscussion, ""); err != nil {
		t.Fatalf("Re-advance failed: %v", err)
	}

	floor, err := store.Floor(ctx, "s1")
	if err != nil {
		t.Fatalf("Floor failed: %v", err)
	}
	if floor.CurrentSpeakerID != nil {
		t.Errorf("Expected vacant floor after re-entry, got %v", floor.CurrentSpeakerID)
	}
	if len(floor.Queue) != 0 {
		t.Errorf("Expected empty queue after re-entry, got %v", floor.Queue)
	}
}

func TestConcurrentGrantTurn(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")

	numMembers := 10
	members := make([]string, numMembers)
	for i := range members {
		members[i] = joinMember(t, store, "s1", "member"+string(rune('a'+i)))
	}

	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := store.Advance(ctx, "s1", models.PhaseDiscussion, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	var granted atomic.Int32
	var occupied atomic.Int32
	var wg sync.WaitGroup

	for _, id := range members {
		wg.Add(1)
		go func(memberID string) {
			defer wg.Done()
			err := store.GrantTurn(ctx, "s1", memberID)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, ErrFloorOccupied):
				occupied.Add(1)
			default:
				t.Errorf("Unexpected GrantTurn error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	if granted.Load() != 1 {
		t.Errorf("Expected exactly 1 grant, got %d", granted.Load())
	}
	if occupied.Load() != int32(numMembers-1) {
		t.Errorf("Expected %d ErrFloorOccupied, got %d", numMembers-1, occupied.Load())
	}
}

func TestConcurrentResolveFinalSlot(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	decider := &stubDecider{decision: SlotDecision{ChosenSlot: "fri-20"}}

	var resolved atomic.Int32
	var conflicts atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.ResolveFinalSlot(ctx, "s1", decider)
			switch {
			case err == nil:
				resolved.Add(1)
			case errors.Is(err, ErrAlreadyResolved):
				conflicts.Add(1)
			default:
				t.Errorf("Unexpected ResolveFinalSlot error: %v", err)
			}
		}()
	}
	wg.Wait()

	if resolved.Load() != 1 {
		t.Errorf("Expected exactly 1 successful resolution, got %d", resolved.Load())
	}
	if conflicts.Load() != 7 {
		t.Errorf("Expected 7 ErrAlreadyResolved, got %d", conflicts.Load())
	}
}

func TestAppendMessage(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")

	first, err := store.AppendMessage(ctx, "s1", &alice, models.RoleParticipant, "loved the zone sequence", "")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if first.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", first.Seq)
	}

	second, err := store.AppendMessage(ctx, "s1", nil, models.RoleModerator, "welcome to the discussion", "")
	if err != nil {
		t.Fatalf("Moderator append failed: %v", err)
	}
	if second.Seq != 2 {
		t.Errorf("Expected seq 2, got %d", second.Seq)
	}

	// Participants must identify themselves; moderators must not.
	if _, err := store.AppendMessage(ctx, "s1", nil, models.RoleParticipant, "anon", ""); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Expected ErrUnknownMember for anonymous participant, got %v", err)
	}
	if _, err := store.AppendMessage(ctx, "s1", &alice, "narrator", "hm", ""); err == nil {
		t.Error("Expected error for unknown role")
	}

	msgs, err := store.Messages(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Text != "loved the zone sequence" || msgs[1].Text != "welcome to the discussion" {
		t.Errorf("Messages out of order: %v", msgs)
	}
}

func TestAppendMessageClampsTimestamps(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")

	base := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	if _, err := store.AppendMessage(ctx, "s1", nil, models.RoleModerator, "one", ""); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	// Clock steps backwards; the log's timestamps must not.
	store.now = func() time.Time { return base.Add(-time.Hour) }
	msg, err := store.AppendMessage(ctx, "s1", nil, models.RoleModerator, "two", "")
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if msg.CreatedAt.Before(base) {
		t.Errorf("Expected timestamp clamped to %v, got %v", base, msg.CreatedAt)
	}
}

func TestRecentMessages(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")

	for _, text := range []string{"one", "two", "three", "four"} {
		if _, err := store.AppendMessage(ctx, "s1", nil, models.RoleModerator, text, ""); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	recent, err := store.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 || recent[0].Text != "three" || recent[1].Text != "four" {
		t.Errorf("Expected last two in append order, got %v", recent)
	}
}

func TestAddMember(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	joinMember(t, store, "s1", "alice")

	if _, err := store.AddMember(ctx, "s1", "m2", "alice", "token2"); !errors.Is(err, ErrNameTaken) {
		t.Errorf("Expected ErrNameTaken, got %v", err)
	}

	m, err := store.MemberByToken(ctx, "s1", "token-alice")
	if err != nil {
		t.Fatalf("MemberByToken failed: %v", err)
	}
	if m.Name != "alice" {
		t.Errorf("Expected alice, got %s", m.Name)
	}

	if _, err := store.MemberByToken(ctx, "s1", "bogus"); !errors.Is(err, ErrUnknownMember) {
		t.Errorf("Expected ErrUnknownMember, got %v", err)
	}
}

func TestCloseSession(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker")
	alice := joinMember(t, store, "s1", "alice")

	if err := store.Close(ctx, "s1"); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(ctx, "s1"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed on double close, got %v", err)
	}

	// Archived sessions reject every mutation.
	if err := store.CastVote(ctx, "s1", alice, "s1-ca"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed for vote, got %v", err)
	}
	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed for advance, got %v", err)
	}
	if _, err := store.AppendMessage(ctx, "s1", nil, models.RoleModerator, "late", ""); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Expected ErrSessionClosed for message, got %v", err)
	}

	// Reads still work against the archive.
	sess, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get after close failed: %v", err)
	}
	if sess.ClosedAt == nil {
		t.Error("Expected closed_at set")
	}
}

func TestPreview(t *testing.T) {
	store, conn := newTestStore(t)
	defer conn.Close()

	ctx := context.Background()
	createSession(t, store, "s1", "Stalker", "Brazil")
	alice := joinMember(t, store, "s1", "alice")
	bob := joinMember(t, store, "s1", "bob")

	if err := store.CastVote(ctx, "s1", alice, "s1-ca"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := store.CastVote(ctx, "s1", bob, "s1-ca"); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if _, err := store.Advance(ctx, "s1", models.PhaseViewing, ""); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if _, err := store.ToggleCommitment(ctx, "s1", alice, models.CommitView); err != nil {
		t.Fatalf("ToggleCommitment failed: %v", err)
	}
	if _, err := store.ToggleCommitment(ctx, "s1", bob, models.CommitDebate); err != nil {
		t.Fatalf("ToggleCommitment failed: %v", err)
	}

	preview, err := store.Preview(ctx, "s1")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if preview.WinnerTitle != "Stalker" {
		t.Errorf("Expected winner title Stalker, got %q", preview.WinnerTitle)
	}
	if preview.Tally["s1-ca"] != 2 {
		t.Errorf("Expected 2 votes for winner, got %d", preview.Tally["s1-ca"])
	}
	if preview.Viewers != 1 || preview.Debaters != 1 {
		t.Errorf("Expected 1 viewer and 1 debater, got %d/%d", preview.Viewers, preview.Debaters)
	}
}
