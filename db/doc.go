// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and
indexes. The SQL sticks to the dialect subset both sqlite and
PostgreSQL accept; timestamps are always written from Go.

# Tables

The schema includes:

  - session: Session metadata, phase, winner, final slot
  - candidate: The fixed ballot per session
  - member: Joined members and their tokens
  - candidate_vote: One vote per member (primary key enforced)
  - commitment: View/debate commitments
  - slot_vote: Time-slot votes from debate-committed members
  - speaker_queue: FIFO queue for the discussion floor
  - message: Append-only discussion log

# Relationships

	session 1──* candidate
	session 1──* member
	session 1──* candidate_vote
	session 1──* commitment
	session 1──* slot_vote
	session 1──* speaker_queue
	session 1──* message

All foreign keys use ON DELETE CASCADE.

# Invariants in the Schema

Some engine invariants live in constraints rather than code:

  - candidate_vote PK (session_id, member_id): one vote per member
  - commitment PK (session_id, member_id, kind): commitments are sets
  - message UNIQUE (session_id, seq): dense per-session sequence
  - session.share_slug UNIQUE
  - member UNIQUE (session_id, name) and (session_id, token)
*/
package db
