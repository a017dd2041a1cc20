// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cineclub/cineforum/models"
)

// RaiseHand appends memberID to the speaker queue. The queue is strict
// FIFO by raise time, holds no duplicates, and never contains the
// current speaker.
func (s *Store) RaiseHand(ctx context.Context, sessionID, memberID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if row.Phase != models.PhaseDiscussion {
			return ErrInvalidPhase
		}

		ok, err := memberExists(ctx, tx, sessionID, memberID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownMember
		}

		if row.CurrentSpeakerID.Valid && row.CurrentSpeakerID.String == memberID {
			return ErrAlreadySpeaking
		}

		var queued bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM speaker_queue WHERE session_id = $1 AND member_id = $2)
		`, sessionID, memberID).Scan(&queued)
		if err != nil {
			return fmt.Errorf("check queue: %w", err)
		}
		if queued {
			return ErrAlreadyQueued
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO speaker_queue (session_id, member_id, position, raised_at)
			VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM speaker_queue WHERE session_id = $1), $3)
		`, sessionID, memberID, s.now())
		if err != nil {
			return fmt.Errorf("raise hand: %w", err)
		}
		return nil
	})
}

// LowerHand removes memberID from the speaker queue. Idempotent: a
// member who is not queued is a no-op, so voluntary drops are always
// safe to issue.
func (s *Store) LowerHand(ctx context.Context, sessionID, memberID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := openSession(ctx, tx, sessionID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM speaker_queue WHERE session_id = $1 AND member_id = $2
		`, sessionID, memberID)
		if err != nil {
			return fmt.Errorf("lower hand: %w", err)
		}
		return nil
	})
}

// GrantTurn assigns the floor to memberID. Legal only while the floor
// is open: the guarded UPDATE makes concurrent grants race safely, with
// exactly one winner and ErrFloorOccupied for the rest. The member need
// not be queued (the administrator may exercise discretion); if queued,
// the entry is consumed.
func (s *Store) GrantTurn(ctx context.Context, sessionID, memberID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if row.Phase != models.PhaseDiscussion {
			return ErrInvalidPhase
		}

		ok, err := memberExists(ctx, tx, sessionID, memberID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownMember
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE session SET current_speaker_id = $1
			WHERE id = $2 AND current_speaker_id IS NULL
		`, memberID, sessionID)
		if err != nil {
			return fmt.Errorf("grant turn: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("grant turn: %w", err)
		}
		if n == 0 {
			return ErrFloorOccupied
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM speaker_queue WHERE session_id = $1 AND member_id = $2
		`, sessionID, memberID)
		if err != nil {
			return fmt.Errorf("dequeue speaker: %w", err)
		}
		return nil
	})
}

// ReleaseTurn clears the floor if memberID currently holds it. The next
// queued member is NOT granted automatically: floor allocation stays a
// single deliberate administrative decision.
func (s *Store) ReleaseTurn(ctx context.Context, sessionID, memberID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := openSession(ctx, tx, sessionID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE session SET current_speaker_id = NULL
			WHERE id = $1 AND current_speaker_id = $2
		`, sessionID, memberID)
		if err != nil {
			return fmt.Errorf("release turn: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("release turn: %w", err)
		}
		if n == 0 {
			return ErrNotCurrentSpeaker
		}
		return nil
	})
}

// Floor returns the current speaker and the queue in FIFO order.
func (s *Store) Floor(ctx context.Context, sessionID string) (models.FloorState, error) {
	var state models.FloorState

	err := s.db.QueryRowContext(ctx, `
		SELECT current_speaker_id FROM session WHERE id = $1
	`, sessionID).Scan(&state.CurrentSpeakerID)
	if err == sql.ErrNoRows {
		return models.FloorState{}, ErrSessionNotFound
	}
	if err != nil {
		return models.FloorState{}, fmt.Errorf("query floor: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id FROM speaker_queue
		WHERE session_id = $1
		ORDER BY position
	`, sessionID)
	if err != nil {
		return models.FloorState{}, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	state.Queue = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return models.FloorState{}, fmt.Errorf("scan queue: %w", err)
		}
		state.Queue = append(state.Queue, id)
	}
	if err := rows.Err(); err != nil {
		return models.FloorState{}, fmt.Errorf("iterate queue: %w", err)
	}
	return state, nil
}
