// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cineclub/cineforum/models"
)

// ToggleSlotVote flips memberID's availability vote for the given time
// slot and reports the resulting state. Only members committed to
// debating may vote on time, and slot voting freezes permanently once
// a final slot has been decided.
func (s *Store) ToggleSlotVote(ctx context.Context, sessionID, memberID, slot string) (bool, error) {
	var voted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if row.ResolvedAt.Valid {
			return ErrSlotAlreadyFinal
		}

		var committed bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM commitment WHERE session_id = $1 AND member_id = $2 AND kind = $3)
		`, sessionID, memberID, models.CommitDebate).Scan(&committed)
		if err != nil {
			return fmt.Errorf("check debate commitment: %w", err)
		}
		if !committed {
			return ErrNotCommitted
		}

		var exists bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM slot_vote WHERE session_id = $1 AND slot = $2 AND member_id = $3)
		`, sessionID, slot, memberID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check slot vote: %w", err)
		}

		if exists {
			_, err = tx.ExecContext(ctx, `
				DELETE FROM slot_vote WHERE session_id = $1 AND slot = $2 AND member_id = $3
			`, sessionID, slot, memberID)
			voted = false
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO slot_vote (session_id, slot, member_id, cast_at)
				VALUES ($1, $2, $3, $4)
			`, sessionID, slot, memberID, s.now())
			voted = true
		}
		if err != nil {
			return fmt.Errorf("toggle slot vote: %w", err)
		}
		return nil
	})
	return voted, err
}

// SlotCounts returns the voter count per slot.
func (s *Store) SlotCounts(ctx context.Context, sessionID string) (models.SlotCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, COUNT(*) FROM slot_vote
		WHERE session_id = $1
		GROUP BY slot
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query slot counts: %w", err)
	}
	defer rows.Close()

	counts := models.SlotCounts{}
	for rows.Next() {
		var slot string
		var count int
		if err := rows.Scan(&slot, &count); err != nil {
			return nil, fmt.Errorf("scan slot count: %w", err)
		}
		counts[slot] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot counts: %w", err)
	}
	return counts, nil
}

// SlotDecisionRequest is the input handed to the consensus oracle. An
// all-zero snapshot is legitimate input: selection-vs-cancellation
// policy belongs entirely to the oracle.
type SlotDecisionRequest struct {
	SlotCounts     models.SlotCounts
	SubjectTitle   string
	SequenceNumber int
}

// SlotDecision is the oracle's verdict: either a chosen slot or a
// cancellation with an explanatory message.
type SlotDecision struct {
	ChosenSlot string
	Cancelled  bool
	Message    string
}

// SlotDecider is the consensus oracle boundary. Implementations may be
// slow and may fail; the store treats both as retryable.
type SlotDecider interface {
	DecideSlot(ctx context.Context, req SlotDecisionRequest) (SlotDecision, error)
}

// ResolveFinalSlot snapshots the slot counts, consults the oracle, and
// applies the decision write-once. The oracle call happens with no
// transaction open; the result is applied only if no concurrent
// resolution landed first (otherwise ErrAlreadyResolved). An oracle
// failure surfaces as ErrResolutionFailed with zero state mutation, so
// the administrator may simply retry.
func (s *Store) ResolveFinalSlot(ctx context.Context, sessionID string, decider SlotDecider) (SlotDecision, time.Time, error) {
	var req SlotDecisionRequest

	// Snapshot phase, winner title and counts in one transaction.
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if row.Phase == models.PhaseVoting {
			return ErrInvalidPhase
		}
		if row.ResolvedAt.Valid {
			return ErrAlreadyResolved
		}

		if row.WinnerID.Valid {
			err = tx.QueryRowContext(ctx, `
				SELECT title FROM candidate WHERE session_id = $1 AND id = $2
			`, sessionID, row.WinnerID.String).Scan(&req.SubjectTitle)
			if err != nil && err != sql.ErrNoRows {
				return fmt.Errorf("query winner title: %w", err)
			}
		}
		req.SequenceNumber = row.Sequence

		counts := models.SlotCounts{}
		rows, err := tx.QueryContext(ctx, `
			SELECT slot, COUNT(*) FROM slot_vote WHERE session_id = $1 GROUP BY slot
		`, sessionID)
		if err != nil {
			return fmt.Errorf("query slot counts: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var slot string
			var count int
			if err := rows.Scan(&slot, &count); err != nil {
				return fmt.Errorf("scan slot count: %w", err)
			}
			counts[slot] = count
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate slot counts: %w", err)
		}
		req.SlotCounts = counts
		return nil
	})
	if err != nil {
		return SlotDecision{}, time.Time{}, err
	}

	// Call out with no locks held.
	decision, err := decider.DecideSlot(ctx, req)
	if err != nil {
		return SlotDecision{}, time.Time{}, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	// Optimistic check-then-set: apply only if still unresolved.
	resolvedAt := s.now()
	var finalSlot, finalNote *string
	if decision.Cancelled {
		if decision.Message != "" {
			finalNote = &decision.Message
		}
	} else {
		finalSlot = &decision.ChosenSlot
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE session
			SET final_slot = $1, final_cancelled = $2, final_note = $3, resolved_at = $4
			WHERE id = $5 AND resolved_at IS NULL AND closed_at IS NULL
		`, finalSlot, decision.Cancelled, finalNote, resolvedAt, sessionID)
		if err != nil {
			return fmt.Errorf("apply slot decision: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply slot decision: %w", err)
		}
		if n == 0 {
			row, err := readSession(ctx, tx, sessionID)
			if err != nil {
				return err
			}
			if row.ClosedAt.Valid {
				return ErrSessionClosed
			}
			return ErrAlreadyResolved
		}
		return nil
	})
	if err != nil {
		return SlotDecision{}, time.Time{}, err
	}

	return decision, resolvedAt, nil
}
