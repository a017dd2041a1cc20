// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cineclub/cineforum/models"
)

// ToggleCommitment flips memberID's membership in the view or debate
// commitment set and reports the resulting state. Commitments are only
// meaningful once a winner exists, so they are rejected during voting.
func (s *Store) ToggleCommitment(ctx context.Context, sessionID, memberID, kind string) (bool, error) {
	if kind != models.CommitView && kind != models.CommitDebate {
		return false, fmt.Errorf("invalid commitment kind %q", kind)
	}

	var committed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if row.Phase == models.PhaseVoting {
			return ErrInvalidPhase
		}

		ok, err := memberExists(ctx, tx, sessionID, memberID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownMember
		}

		var exists bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM commitment WHERE session_id = $1 AND member_id = $2 AND kind = $3)
		`, sessionID, memberID, kind).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check commitment: %w", err)
		}

		if exists {
			_, err = tx.ExecContext(ctx, `
				DELETE FROM commitment WHERE session_id = $1 AND member_id = $2 AND kind = $3
			`, sessionID, memberID, kind)
			committed = false
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO commitment (session_id, member_id, kind, committed_at)
				VALUES ($1, $2, $3, $4)
			`, sessionID, memberID, kind, s.now())
			committed = true
		}
		if err != nil {
			return fmt.Errorf("toggle commitment: %w", err)
		}
		return nil
	})
	return committed, err
}

// Committed returns the member IDs committed to the given kind, in
// commitment order.
func (s *Store) Committed(ctx context.Context, sessionID, kind string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id FROM commitment
		WHERE session_id = $1 AND kind = $2
		ORDER BY committed_at
	`, sessionID, kind)
	if err != nil {
		return nil, fmt.Errorf("query commitments: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commitments: %w", err)
	}
	return members, nil
}
