// Copyright (c) 2026 Cineforum Project.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3419)
  - DatabaseURL: sqlite path or PostgreSQL connection string (required)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - SessionSlugSalt: Secret for share slug generation (required)
  - OracleURL: Consensus oracle base URL (optional)
  - OracleTimeout: Per-call oracle timeout (default: 15s)

# CLI Flags

	-p, --port         Server port
	-d, --database-url Database URL
	-t, --database-type Database driver
	--admin-salt       Admin key salt
	--slug-salt        Session slug salt
	--oracle           Oracle base URL
	--oracle-timeout   Oracle timeout in seconds

# Environment Variables

Flags fall back to environment variables:

	PORT                   → -p
	DATABASE_URL           → -d
	DATABASE_TYPE          → -t
	ADMIN_KEY_SALT         → --admin-salt
	SESSION_SLUG_SALT      → --slug-salt
	ORACLE_URL             → --oracle
	ORACLE_TIMEOUT_SECONDS → --oracle-timeout

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - DATABASE_TYPE must be "sqlite" or "postgres"
  - ADMIN_KEY_SALT must be provided
  - SESSION_SLUG_SALT must be provided

The oracle settings are optional; without ORACLE_URL the routes that
need the oracle answer 503.
*/
package cliparse
