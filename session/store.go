// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cineclub/cineforum/auth"
	"github.com/cineclub/cineforum/models"
)

// Store is the session lifecycle and turn-coordination engine. Every
// mutating operation runs as a single transaction against the session's
// current state; the two known race points (floor grants and final-slot
// resolution) additionally use guarded UPDATEs checked via RowsAffected
// so that concurrent callers get exactly one winner.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CreateInput describes a new session. The candidate set is supplied by
// an external recommender and is immutable once the session exists.
type CreateInput struct {
	ID              string
	Title           string
	ShareSlug       string
	Candidates      []models.CandidateInput
	VotingDeadline  *time.Time
	ViewingDeadline *time.Time
}

// Create inserts a new session in the voting phase together with its
// fixed candidate set. The session's sequence number is one more than
// the number of sessions that came before it.
func (s *Store) Create(ctx context.Context, input CreateInput) (models.Session, error) {
	if len(input.Candidates) == 0 {
		return models.Session{}, ErrNoCandidates
	}

	now := s.now()
	sess := models.Session{
		ID:              input.ID,
		Title:           input.Title,
		ShareSlug:       input.ShareSlug,
		Phase:           models.PhaseVoting,
		VotingDeadline:  input.VotingDeadline,
		ViewingDeadline: input.ViewingDeadline,
		CreatedAt:       now,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) + 1 FROM session`).Scan(&sess.Sequence); err != nil {
			return fmt.Errorf("compute sequence: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO session (id, title, share_slug, sequence, phase, voting_deadline, viewing_deadline, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, sess.ID, sess.Title, sess.ShareSlug, sess.Sequence, sess.Phase,
			sess.VotingDeadline, sess.ViewingDeadline, sess.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		for i, in := range input.Candidates {
			id := in.ID
			if id == "" {
				generated, err := auth.GenerateID(12)
				if err != nil {
					return fmt.Errorf("generate candidate id: %w", err)
				}
				id = generated
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO candidate (id, session_id, title, rationale, position)
				VALUES ($1, $2, $3, $4, $5)
			`, id, sess.ID, in.Title, in.Rationale, i)
			if err != nil {
				return fmt.Errorf("insert candidate: %w", err)
			}
			sess.Candidates = append(sess.Candidates, models.Candidate{
				ID:        id,
				SessionID: sess.ID,
				Title:     in.Title,
				Rationale: in.Rationale,
				Position:  i,
			})
		}
		return nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// Get returns a session with its candidate set by ID.
func (s *Store) Get(ctx context.Context, id string) (models.Session, error) {
	return s.get(ctx, `id`, id)
}

// GetBySlug returns a session with its candidate set by share slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Session, error) {
	return s.get(ctx, `share_slug`, slug)
}

func (s *Store) get(ctx context.Context, column, value string) (models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, share_slug, sequence, phase, winner_id,
		       voting_deadline, viewing_deadline,
		       final_slot, final_cancelled, final_note, resolved_at,
		       current_speaker_id, created_at, closed_at
		FROM session
		WHERE `+column+` = $1
	`, value).Scan(
		&sess.ID, &sess.Title, &sess.ShareSlug, &sess.Sequence, &sess.Phase, &sess.WinnerID,
		&sess.VotingDeadline, &sess.ViewingDeadline,
		&sess.FinalSlot, &sess.FinalCancelled, &sess.FinalNote, &sess.ResolvedAt,
		&sess.CurrentSpeakerID, &sess.CreatedAt, &sess.ClosedAt,
	)
	if err == sql.ErrNoRows {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("query session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, title, rationale, position
		FROM candidate
		WHERE session_id = $1
		ORDER BY position
	`, sess.ID)
	if err != nil {
		return models.Session{}, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Candidate
		var rationale sql.NullString
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Title, &rationale, &c.Position); err != nil {
			return models.Session{}, fmt.Errorf("scan candidate: %w", err)
		}
		c.Rationale = rationale.String
		sess.Candidates = append(sess.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return models.Session{}, fmt.Errorf("iterate candidates: %w", err)
	}

	return sess, nil
}

// Close archives the session. This is a terminal lifecycle action
// independent of phase; every mutation afterwards is rejected.
func (s *Store) Close(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE session SET closed_at = $1 WHERE id = $2 AND closed_at IS NULL
		`, s.now(), id)
		if err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		if n == 0 {
			if _, err := readSession(ctx, tx, id); err != nil {
				return err
			}
			return ErrSessionClosed
		}
		return nil
	})
}

// sessionRow is the subset of session state the engine consults inside
// transactions.
type sessionRow struct {
	ID               string
	Phase            string
	Sequence         int
	WinnerID         sql.NullString
	CurrentSpeakerID sql.NullString
	ResolvedAt       sql.NullTime
	ClosedAt         sql.NullTime
}

// readSession reads the session row inside the given transaction.
func readSession(ctx context.Context, tx *sql.Tx, id string) (sessionRow, error) {
	var row sessionRow
	err := tx.QueryRowContext(ctx, `
		SELECT id, phase, sequence, winner_id, current_speaker_id, resolved_at, closed_at
		FROM session
		WHERE id = $1
	`, id).Scan(&row.ID, &row.Phase, &row.Sequence, &row.WinnerID,
		&row.CurrentSpeakerID, &row.ResolvedAt, &row.ClosedAt)
	if err == sql.ErrNoRows {
		return sessionRow{}, ErrSessionNotFound
	}
	if err != nil {
		return sessionRow{}, fmt.Errorf("query session: %w", err)
	}
	return row, nil
}

// openSession reads the session row and rejects archived sessions.
func openSession(ctx context.Context, tx *sql.Tx, id string) (sessionRow, error) {
	row, err := readSession(ctx, tx, id)
	if err != nil {
		return sessionRow{}, err
	}
	if row.ClosedAt.Valid {
		return sessionRow{}, ErrSessionClosed
	}
	return row, nil
}

// memberExists reports whether memberID belongs to the session.
func memberExists(ctx context.Context, tx *sql.Tx, sessionID, memberID string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM member WHERE session_id = $1 AND id = $2)
	`, sessionID, memberID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check member: %w", err)
	}
	return exists, nil
}
