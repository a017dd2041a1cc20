// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL sticks to the subset shared by SQLite and PostgreSQL;
// timestamps are always written from Go, never defaulted in SQL.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Sessions
CREATE TABLE IF NOT EXISTS session (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    share_slug TEXT NOT NULL UNIQUE,
    sequence INTEGER NOT NULL,
    phase TEXT NOT NULL DEFAULT 'voting' CHECK (phase IN ('voting', 'viewing', 'discussion')),
    winner_id TEXT,
    voting_deadline TIMESTAMP,
    viewing_deadline TIMESTAMP,
    final_slot TEXT,
    final_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    final_note TEXT,
    resolved_at TIMESTAMP,
    current_speaker_id TEXT,
    created_at TIMESTAMP NOT NULL,
    closed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_session_share_slug ON session(share_slug);
CREATE INDEX IF NOT EXISTS idx_session_phase ON session(phase);

-- Candidates (fixed set per session, position = creation order)
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT NOT NULL,
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    rationale TEXT,
    position INTEGER NOT NULL,
    PRIMARY KEY (session_id, id),
    UNIQUE (session_id, position)
);

-- Members
CREATE TABLE IF NOT EXISTS member (
    id TEXT NOT NULL,
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    token TEXT NOT NULL,
    joined_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, id),
    UNIQUE (session_id, name),
    UNIQUE (session_id, token)
);

CREATE INDEX IF NOT EXISTS idx_member_token ON member(session_id, token);

-- Candidate votes: the primary key makes "one vote per member" a
-- database invariant; re-voting is an upsert that moves the vote.
CREATE TABLE IF NOT EXISTS candidate_vote (
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    candidate_id TEXT NOT NULL,
    cast_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, member_id)
);

CREATE INDEX IF NOT EXISTS idx_candidate_vote_candidate ON candidate_vote(session_id, candidate_id);

-- Commitments (view / debate)
CREATE TABLE IF NOT EXISTS commitment (
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('view', 'debate')),
    committed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, member_id, kind)
);

-- Time-slot votes
CREATE TABLE IF NOT EXISTS slot_vote (
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    slot TEXT NOT NULL,
    member_id TEXT NOT NULL,
    cast_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, slot, member_id)
);

CREATE INDEX IF NOT EXISTS idx_slot_vote_slot ON slot_vote(session_id, slot);

-- Speaker queue (FIFO by position)
CREATE TABLE IF NOT EXISTS speaker_queue (
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    member_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    raised_at TIMESTAMP NOT NULL,
    PRIMARY KEY (session_id, member_id)
);

CREATE INDEX IF NOT EXISTS idx_speaker_queue_position ON speaker_queue(session_id, position);

-- Message log (append-only, ordered by per-session seq)
CREATE TABLE IF NOT EXISTS message (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    author_id TEXT,
    role TEXT NOT NULL CHECK (role IN ('participant', 'moderator')),
    body TEXT NOT NULL,
    audio_ref TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_message_session_seq ON message(session_id, seq);
`
