// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections and schema creation.

# Connections

Open selects the database/sql driver and pings the server:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

Supported drivers are "postgres" (lib/pq), "pgx" (jackc/pgx stdlib) and
"sqlite" (modernc.org/sqlite). SQLite connections are limited to a single open
connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - department, establishment: where circuits are located
  - election: voting windows; the active one contains the current time
  - citizen: civic credential and name
  - circuit: polling unit with status open or closed
  - president: the citizen presiding a circuit's table
  - assignment: a citizen's home circuit per election
  - party, party_list, candidate: what an ordinary ballot can choose
  - suffrage: one row per citizen per election, the "has voted" marker
  - ballot, ordinary_ballot: the anonymous ballots
  - circuit_event: urn open/close audit trail

# Relationships

	department 1──* establishment 1──* circuit *──1 election
	circuit 1──1 president
	citizen 1──* assignment *──1 circuit
	party 1──* party_list 1──* candidate
	citizen 1──* suffrage *──1 circuit
	circuit 1──* ballot 1──0..1 ordinary_ballot *──1 party_list

# Uniqueness

suffrage has PRIMARY KEY (citizen_cc, election_id). Vote casting relies on it:
the first insert wins and the loser is detected with IsUniqueViolation, which
understands lib/pq, pgconn and SQLite errors.
*/
package db
