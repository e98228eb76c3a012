// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the urna API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - AuthHandler: Voter, president and court login
  - VotingHandler: Ballot casting
  - PresidentHandler: Urn open/close and circuit results for presidents
  - CourtHandler: Election and circuit results for the electoral court
  - CatalogHandler: Parties, lists, departments and circuits

Handlers are created via constructor functions that accept *sql.DB and Config:

	votingHandler := handlers.NewVotingHandler(db, cfg)

Protected handlers read the session with middleware.ClaimsFromContext, so
they must be wrapped with middleware.RequireRole.

# Voting Flow

	POST /auth/voter → VoterLogin (returns token, resolved circuit, observed flag)
	POST /votes      → CastVote

Citizens may declare a voting_circuit_id at login. A ballot cast away from
the citizen's assigned circuit is recorded as observed. The citizen and the
ballot are stored in separate tables with nothing linking them.

CastVote maps voting errors to status codes:

	voting.ErrAlreadyVoted        → 409
	voting.ErrCircuitClosed       → 409
	voting.ErrCircuitNotFound     → 404
	voting.ErrInvalidBallotDetail → 400
	anything else                 → 503 (retry)

# Circuit Lifecycle

Circuits move between open and closed:

	POST /president/circuit/open
	POST /president/circuit/close

A transition to the current status answers 409. Each successful transition
writes a circuit_event row. Circuit results answer 409 until the circuit is
closed; election results carry no final section until every circuit is.
*/
package handlers
