// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cineclub/cineforum/models"
)

// AddMember registers a member under a display name. Names are unique
// per session; the secret token identifies the member on every
// subsequent call.
func (s *Store) AddMember(ctx context.Context, sessionID, memberID, name, token string) (models.Member, error) {
	member := models.Member{
		ID:        memberID,
		SessionID: sessionID,
		Name:      name,
		Token:     token,
		JoinedAt:  s.now(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := openSession(ctx, tx, sessionID); err != nil {
			return err
		}

		var taken bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM member WHERE session_id = $1 AND name = $2)
		`, sessionID, name).Scan(&taken)
		if err != nil {
			return fmt.Errorf("check name: %w", err)
		}
		if taken {
			return ErrNameTaken
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO member (id, session_id, name, token, joined_at)
			VALUES ($1, $2, $3, $4, $5)
		`, member.ID, member.SessionID, member.Name, member.Token, member.JoinedAt)
		if err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Member{}, err
	}
	return member, nil
}

// MemberByToken resolves a member token presented by a caller.
func (s *Store) MemberByToken(ctx context.Context, sessionID, token string) (models.Member, error) {
	var m models.Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, token, joined_at
		FROM member
		WHERE session_id = $1 AND token = $2
	`, sessionID, token).Scan(&m.ID, &m.SessionID, &m.Name, &m.Token, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return models.Member{}, ErrUnknownMember
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// Member returns a member by ID.
func (s *Store) Member(ctx context.Context, sessionID, memberID string) (models.Member, error) {
	var m models.Member
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, token, joined_at
		FROM member
		WHERE session_id = $1 AND id = $2
	`, sessionID, memberID).Scan(&m.ID, &m.SessionID, &m.Name, &m.Token, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return models.Member{}, ErrUnknownMember
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}
