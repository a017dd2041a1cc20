// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Cineforum API server.

Cineforum runs a film club's recurring sessions end to end: a candidate
ballot picks what to watch, commitments track who will watch and who
will debate, a consensus oracle fixes the discussion time slot, and a
moderated single-speaker floor keeps the discussion itself orderly.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=cineforum.db go run .

Or with flags:

	go run . -p 3419 -t sqlite -d cineforum.db

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite path or PostgreSQL connection string
  - DATABASE_TYPE (-t): "sqlite" or "postgres" (default: sqlite)
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - SESSION_SLUG_SALT (--slug-salt): Secret for share slug generation

Optional settings:

  - PORT (-p): Server port (default: 3419)
  - ORACLE_URL (--oracle): Consensus oracle base URL; without it,
    slot resolution and moderator lines answer 503
  - ORACLE_TIMEOUT_SECONDS (--oracle-timeout): Per-call timeout (default: 15)

A .env file in the working directory is loaded if present.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - session: The lifecycle engine (phases, ballot, commitments, slots, floor, log)
  - handlers: HTTP request handlers (sessions, voting, discussion)
  - oracle: HTTP client for the consensus oracle
  - live: Websocket fan-out of session events
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Request/response types
  - auth: Token generation and validation
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
