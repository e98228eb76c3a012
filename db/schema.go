// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
//
// The DDL sticks to types and syntax shared by PostgreSQL and SQLite so the
// same statements run on every supported driver.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// Tables lists every table in dependency order (parents first).
var Tables = []string{
	"department",
	"establishment",
	"election",
	"citizen",
	"circuit",
	"president",
	"assignment",
	"party",
	"party_list",
	"candidate",
	"suffrage",
	"ballot",
	"ordinary_ballot",
	"circuit_event",
}

var schema = []string{
	// Geography
	`CREATE TABLE IF NOT EXISTS department (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS establishment (
    id INTEGER PRIMARY KEY,
    department_id INTEGER NOT NULL REFERENCES department(id),
    name TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_establishment_department ON establishment(department_id)`,

	// Elections and circuits
	`CREATE TABLE IF NOT EXISTS election (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    starts_at TIMESTAMP NOT NULL,
    ends_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS citizen (
    cc TEXT PRIMARY KEY,
    name TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS circuit (
    id INTEGER PRIMARY KEY,
    establishment_id INTEGER NOT NULL REFERENCES establishment(id),
    election_id INTEGER NOT NULL REFERENCES election(id),
    status TEXT NOT NULL DEFAULT 'closed' CHECK (status IN ('open', 'closed'))
)`,
	`CREATE INDEX IF NOT EXISTS idx_circuit_election ON circuit(election_id)`,
	`CREATE INDEX IF NOT EXISTS idx_circuit_establishment ON circuit(establishment_id)`,
	`CREATE TABLE IF NOT EXISTS president (
    id INTEGER PRIMARY KEY,
    citizen_cc TEXT NOT NULL UNIQUE REFERENCES citizen(cc),
    circuit_id INTEGER NOT NULL REFERENCES circuit(id)
)`,

	// Home circuit per citizen per election
	`CREATE TABLE IF NOT EXISTS assignment (
    citizen_cc TEXT NOT NULL REFERENCES citizen(cc),
    circuit_id INTEGER NOT NULL REFERENCES circuit(id),
    establishment_id INTEGER NOT NULL REFERENCES establishment(id),
    election_id INTEGER NOT NULL REFERENCES election(id),
    assigned_at TIMESTAMP NOT NULL,
    PRIMARY KEY (citizen_cc, election_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_assignment_circuit ON assignment(circuit_id)`,

	// Parties, lists and candidates
	`CREATE TABLE IF NOT EXISTS party (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS party_list (
    id INTEGER NOT NULL,
    party_id INTEGER NOT NULL REFERENCES party(id),
    list_number INTEGER NOT NULL,
    members TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (id, party_id)
)`,
	`CREATE TABLE IF NOT EXISTS candidate (
    citizen_cc TEXT NOT NULL REFERENCES citizen(cc),
    list_id INTEGER NOT NULL,
    party_id INTEGER NOT NULL,
    list_position INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (citizen_cc, list_id, party_id),
    FOREIGN KEY (list_id, party_id) REFERENCES party_list(id, party_id)
)`,

	// Suffrage: at most one per citizen per election. The primary key is what
	// serializes concurrent casts for the same citizen.
	`CREATE TABLE IF NOT EXISTS suffrage (
    citizen_cc TEXT NOT NULL REFERENCES citizen(cc),
    circuit_id INTEGER NOT NULL REFERENCES circuit(id),
    establishment_id INTEGER NOT NULL REFERENCES establishment(id),
    election_id INTEGER NOT NULL REFERENCES election(id),
    cast_at TIMESTAMP NOT NULL,
    PRIMARY KEY (citizen_cc, election_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_suffrage_circuit ON suffrage(circuit_id)`,

	// Ballots carry no citizen reference and no timestamp
	`CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    circuit_id INTEGER NOT NULL REFERENCES circuit(id),
    establishment_id INTEGER NOT NULL REFERENCES establishment(id),
    election_id INTEGER NOT NULL REFERENCES election(id),
    kind TEXT NOT NULL CHECK (kind IN ('ordinary', 'blank', 'annulled')),
    observed BOOLEAN NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_ballot_circuit ON ballot(circuit_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ballot_election ON ballot(election_id)`,
	`CREATE TABLE IF NOT EXISTS ordinary_ballot (
    ballot_id TEXT PRIMARY KEY REFERENCES ballot(id) ON DELETE CASCADE,
    list_id INTEGER NOT NULL,
    party_id INTEGER NOT NULL,
    FOREIGN KEY (list_id, party_id) REFERENCES party_list(id, party_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_ordinary_ballot_list ON ordinary_ballot(list_id, party_id)`,

	// Urn open/close audit trail
	`CREATE TABLE IF NOT EXISTS circuit_event (
    id TEXT PRIMARY KEY,
    circuit_id INTEGER NOT NULL REFERENCES circuit(id),
    president_cc TEXT NOT NULL REFERENCES citizen(cc),
    action TEXT NOT NULL CHECK (action IN ('open', 'close')),
    occurred_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_circuit_event_circuit ON circuit_event(circuit_id)`,
}
