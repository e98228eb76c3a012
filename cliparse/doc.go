// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3001)
  - DatabaseURL: Connection string (required)
  - DatabaseType: postgres (lib/pq), pgx (pgx stdlib) or sqlite (default: postgres)
  - JWTSecret: Session token signing secret (required)
  - TokenTTL: Session lifetime (default: 1h)
  - CourtUsername / CourtPasswordHash: Electoral court login; the court
    login is disabled while no bcrypt hash is configured
  - LogFormat / LogLevel: slog handler settings

# CLI Flags

	-env         Path to a .env file (default: .env)
	-p           Server port
	-d           Database URL
	-t           Database type
	-jwt-secret  JWT signing secret
	-token-ttl   Session lifetime
	-court-user  Electoral court login name
	-court-hash  Electoral court bcrypt hash
	-log-format  text or json
	-log-level   debug, info, warn or error

# Environment Variables

Flags fall back to environment variables:

	PORT                → -p
	DATABASE_URL        → -d
	DATABASE_TYPE       → -t
	JWT_SECRET          → -jwt-secret
	TOKEN_TTL           → -token-ttl
	COURT_USERNAME      → -court-user
	COURT_PASSWORD_HASH → -court-hash
	LOG_FORMAT          → -log-format
	LOG_LEVEL           → -log-level

CLI flags take precedence over environment variables, and real environment
variables take precedence over the .env file.

# Validation

ParseFlags returns an error if required values are missing or malformed:

  - DATABASE_URL must be provided
  - JWT_SECRET must be provided
  - DATABASE_TYPE, TOKEN_TTL, LOG_FORMAT and LOG_LEVEL must be valid
*/
package cliparse
