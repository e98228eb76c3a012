// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - VoterLoginRequest: credential, optional voting_circuit_id
  - PresidentLoginRequest: credential
  - CourtLoginRequest: username, password
  - CastVoteRequest: kind, party_id, list_id

# Response Types

Types for JSON responses:

  - VoterLoginResponse: token, citizen, assigned and voting circuit, observed
  - PresidentLoginResponse: token, president
  - CastVoteResponse: message, observed, circuit_id
  - CircuitStatusResponse: circuit_id, status, urn_open
  - TransitionResponse: result of opening or closing an urn
  - ErrorResponse: error, message

# Domain Types

  - Citizen, Department, Establishment, Election, Circuit
  - CircuitInfo: circuit joined with its establishment
  - PresidentInfo: president and the circuit they preside
  - Party, List: what an ordinary ballot can choose

# Result Types

  - CircuitResults: one closed circuit's tallies
  - ElectionResults: participation across an election, with FinalResults
    once every circuit is closed

# Constants

Circuit status values:

	StatusOpen   = "open"
	StatusClosed = "closed"

Ballot kinds:

	KindOrdinary = "ordinary"
	KindBlank    = "blank"
	KindAnnulled = "annulled"

Session roles:

	RoleVoter     = "voter"
	RolePresident = "president"
	RoleCourt     = "court"
*/
package models
