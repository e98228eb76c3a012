// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the urna API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg)

Every route except /health and / is wrapped with middleware.WithLogging.
Protected routes also go through middleware.RequireRole, which answers 401
for a missing or invalid token and 403 for the wrong role.

# Endpoints

Health:

	GET /health

Login:

	POST /auth/voter     - Citizen credential, optional voting_circuit_id
	POST /auth/president - President credential
	POST /auth/court     - Court user name and password

Public catalog:

	GET /elections/active
	GET /departments
	GET /departments/{id}/circuits - Circuits of the active election
	GET /circuits/{id}/status      - Whether the urn is open

Catalog (any session):

	GET /parties
	GET /lists?party_id=

Voting (voter session):

	POST /votes - Cast a ballot

Circuit president (president session):

	GET  /president/me
	GET  /president/circuit/status
	POST /president/circuit/open
	POST /president/circuit/close
	GET  /president/circuit/results - 409 while the urn is open

Electoral court (court session):

	GET /court/results                - Active election
	GET /court/elections/{id}/results
	GET /court/circuits/{id}/results
*/
package router
