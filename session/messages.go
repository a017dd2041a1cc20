// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/cineclub/cineforum/models"
)

// AppendMessage appends to the session's message log. The log is
// append-only: there is no edit or delete, corrections are new
// messages. Timestamps are assigned at append time and clamped so they
// never decrease within a log, which is the ordering guarantee the
// rest of the system relies on.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, authorID *string, role, text, audioRef string) (models.Message, error) {
	if role != models.RoleParticipant && role != models.RoleModerator {
		return models.Message{}, fmt.Errorf("invalid message role %q", role)
	}
	if role == models.RoleParticipant && authorID == nil {
		return models.Message{}, ErrUnknownMember
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		AuthorID:  authorID,
		Role:      role,
		Text:      text,
	}
	if audioRef != "" {
		msg.AudioRef = &audioRef
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := openSession(ctx, tx, sessionID); err != nil {
			return err
		}

		if authorID != nil {
			ok, err := memberExists(ctx, tx, sessionID, *authorID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrUnknownMember
			}
		}

		ts := s.now()
		var (
			lastSeq int
			lastAt  sql.NullTime
		)
		err := tx.QueryRowContext(ctx, `
			SELECT seq, created_at FROM message
			WHERE session_id = $1
			ORDER BY seq DESC
			LIMIT 1
		`, sessionID).Scan(&lastSeq, &lastAt)
		switch {
		case err == sql.ErrNoRows:
			lastSeq = 0
		case err != nil:
			return fmt.Errorf("query last message: %w", err)
		}
		if lastAt.Valid && ts.Before(lastAt.Time) {
			ts = lastAt.Time
		}

		msg.Seq = lastSeq + 1
		msg.CreatedAt = ts

		_, err = tx.ExecContext(ctx, `
			INSERT INTO message (id, session_id, seq, author_id, role, body, audio_ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, msg.ID, msg.SessionID, msg.Seq, msg.AuthorID, msg.Role, msg.Text, msg.AudioRef, msg.CreatedAt)
		if err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Messages returns the full log in append order. A limit of 0 means
// no limit.
func (s *Store) Messages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, session_id, seq, author_id, role, body, audio_ref, created_at
		FROM message
		WHERE session_id = $1
		ORDER BY seq
	`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Recent returns the last n messages in append order, the bounded
// window handed to the moderator oracle.
func (s *Store) Recent(ctx context.Context, sessionID string, n int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, author_id, role, body, audio_ref, created_at
		FROM message
		WHERE session_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	// Restore append order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func scanMessages(rows *sql.Rows) ([]models.Message, error) {
	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &m.AuthorID, &m.Role, &m.Text, &m.AudioRef, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}
