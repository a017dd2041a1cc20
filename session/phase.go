// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cineclub/cineforum/models"
)

// phaseSuccessor is the explicit transition table. Each phase has
// exactly one legal successor; discussion -> viewing is the emergency
// administrative revert. Anything not in the table is illegal.
var phaseSuccessor = map[string]string{
	models.PhaseVoting:     models.PhaseViewing,
	models.PhaseViewing:    models.PhaseDiscussion,
	models.PhaseDiscussion: models.PhaseViewing,
}

// Advance moves the session to nextPhase if the transition table allows
// it. Entering viewing records the winner: winnerID when supplied,
// otherwise the current ballot winner computed in the same transaction.
// Entering discussion requires a recorded winner and resets the floor,
// so each discussion (re)start begins with an open floor and an empty
// queue. The winner computation and the phase write share one
// transaction, so the recorded winner always reflects a consistent
// vote snapshot.
func (s *Store) Advance(ctx context.Context, sessionID, nextPhase, winnerID string) (models.Session, error) {
	if nextPhase != models.PhaseVoting && nextPhase != models.PhaseViewing && nextPhase != models.PhaseDiscussion {
		return models.Session{}, ErrIllegalTransition
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if phaseSuccessor[row.Phase] != nextPhase {
			return ErrIllegalTransition
		}

		switch nextPhase {
		case models.PhaseViewing:
			if row.Phase == models.PhaseVoting {
				// Forward transition: record the winner.
				if winnerID == "" {
					winner, err := winnerTx(ctx, tx, sessionID)
					if err != nil {
						return err
					}
					winnerID = winner.ID
				} else {
					var exists bool
					err := tx.QueryRowContext(ctx, `
						SELECT EXISTS(SELECT 1 FROM candidate WHERE session_id = $1 AND id = $2)
					`, sessionID, winnerID).Scan(&exists)
					if err != nil {
						return fmt.Errorf("check winner candidate: %w", err)
					}
					if !exists {
						return ErrUnknownCandidate
					}
				}
				_, err = tx.ExecContext(ctx, `
					UPDATE session SET phase = $1, winner_id = $2 WHERE id = $3
				`, nextPhase, winnerID, sessionID)
				if err != nil {
					return fmt.Errorf("advance session: %w", err)
				}
				return nil
			}

			// Emergency revert from discussion: winner and collected
			// votes/commitments stay untouched.
			_, err = tx.ExecContext(ctx, `
				UPDATE session SET phase = $1 WHERE id = $2
			`, nextPhase, sessionID)
			if err != nil {
				return fmt.Errorf("revert session: %w", err)
			}
			return nil

		case models.PhaseDiscussion:
			if !row.WinnerID.Valid {
				return ErrIllegalTransition
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE session SET phase = $1, current_speaker_id = NULL WHERE id = $2
			`, nextPhase, sessionID)
			if err != nil {
				return fmt.Errorf("advance session: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				DELETE FROM speaker_queue WHERE session_id = $1
			`, sessionID)
			if err != nil {
				return fmt.Errorf("reset speaker queue: %w", err)
			}
			return nil
		}

		return ErrIllegalTransition
	})
	if err != nil {
		return models.Session{}, err
	}

	return s.Get(ctx, sessionID)
}
