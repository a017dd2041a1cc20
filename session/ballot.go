// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cineclub/cineforum/models"
)

// CastVote records memberID's vote for candidateID. A member holds at
// most one vote across the whole candidate set: re-voting moves the
// vote, it never duplicates it. Only legal during the voting phase.
func (s *Store) CastVote(ctx context.Context, sessionID, memberID, candidateID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		row, err := openSession(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if row.Phase != models.PhaseVoting {
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
			SELECT EXISTS(SELECT 1 FROM candidate WHERE session_id = $1 AND id = $2)
		`, sessionID, candidateID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check candidate: %w", err)
		}
		if !exists {
			return ErrUnknownCandidate
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO candidate_vote (session_id, member_id, candidate_id, cast_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, member_id)
			DO UPDATE SET candidate_id = excluded.candidate_id, cast_at = excluded.cast_at
		`, sessionID, memberID, candidateID, s.now())
		if err != nil {
			return fmt.Errorf("cast vote: %w", err)
		}
		return nil
	})
}

// Tally returns the vote count for every candidate, including zeroes.
func (s *Store) Tally(ctx context.Context, sessionID string) (models.Tally, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, COUNT(v.member_id)
		FROM candidate c
		LEFT JOIN candidate_vote v ON v.session_id = c.session_id AND v.candidate_id = c.id
		WHERE c.session_id = $1
		GROUP BY c.id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query tally: %w", err)
	}
	defer rows.Close()

	tally := models.Tally{}
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		tally[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tally: %w", err)
	}
	if len(tally) == 0 {
		// Distinguish "no candidates" from "no session".
		if _, err := s.Get(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return tally, nil
}

// Winner returns the candidate with the most votes. Ties break on the
// lowest candidate position (creation order), so the result is
// deterministic even with an all-zero tally: the first candidate wins.
func (s *Store) Winner(ctx context.Context, sessionID string) (models.Candidate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	winner, err := winnerTx(ctx, tx, sessionID)
	if err != nil {
		return models.Candidate{}, err
	}
	return winner, tx.Commit()
}

// winnerTx computes the winner inside an existing transaction so that
// phase transitions see a consistent snapshot of the votes.
func winnerTx(ctx context.Context, tx *sql.Tx, sessionID string) (models.Candidate, error) {
	var c models.Candidate
	var rationale sql.NullString
	var votes int
	err := tx.QueryRowContext(ctx, `
		SELECT c.id, c.session_id, c.title, c.rationale, c.position, COUNT(v.member_id) AS votes
		FROM candidate c
		LEFT JOIN candidate_vote v ON v.session_id = c.session_id AND v.candidate_id = c.id
		WHERE c.session_id = $1
		GROUP BY c.id, c.session_id, c.title, c.rationale, c.position
		ORDER BY votes DESC, c.position ASC
		LIMIT 1
	`, sessionID).Scan(&c.ID, &c.SessionID, &c.Title, &rationale, &c.Position, &votes)
	if err == sql.ErrNoRows {
		return models.Candidate{}, ErrNoCandidates
	}
	if err != nil {
		return models.Candidate{}, fmt.Errorf("query winner: %w", err)
	}
	c.Rationale = rationale.String
	return c, nil
}
