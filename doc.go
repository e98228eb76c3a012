// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the urna API server.

urna is the backend of an electronic voting system for national elections.
Citizens log in with their civic credential, cast one secret ballot at a
circuit (an urn at an establishment), circuit presidents open and close
their urns, and the electoral court reads results once the urns are closed.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... JWT_SECRET=... go run .

Or with flags:

	go run . -p 3001 -d "postgres://..." -jwt-secret dev-secret

For local development SQLite works too:

	go run . -t sqlite -d urna.db -jwt-secret dev-secret

# Configuration

Required settings:

  - DATABASE_URL (-d): connection string for the chosen driver
  - JWT_SECRET (--jwt-secret): session token signing secret

Optional settings:

  - PORT (-p): Server port (default: 3001)
  - DATABASE_TYPE (-t): postgres, pgx or sqlite (default: postgres)
  - TOKEN_TTL (--token-ttl): session lifetime (default: 1h)
  - COURT_USERNAME (--court-user): court login name (default: corte)
  - COURT_PASSWORD_HASH (--court-hash): bcrypt hash; court login is disabled without it
  - LOG_FORMAT (--log-format): text or json
  - LOG_LEVEL (--log-level): debug, info, warn or error

Values are also read from a .env file (--env) when present.

# Architecture

  - voting: Circuit resolution and atomic ballot casting
  - tally: Circuit and election results
  - handlers: HTTP request handlers (auth, voting, president, court, catalog)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, role guards
  - models: Request/response types
  - auth: Session tokens and password hashes
  - db: Driver selection and schema creation
  - cliparse: Configuration parsing
  - cmd/tally: Terminal results report

See package documentation for each component.
*/
package main
