// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/urna/models"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Voter is the session context of an authenticated citizen. It is built from
// the verified token and never carries assignment data.
type Voter struct {
	CitizenCC       string
	VotingCircuitID *int64
}

// Resolution is where a citizen's ballot will be recorded
type Resolution struct {
	CircuitID         int64
	EstablishmentID   int64
	ElectionID        int64
	Status            string
	AssignedCircuitID *int64
	Observed          bool
}

// ActiveElection returns the election whose window contains now. When
// windows overlap the latest start wins.
func ActiveElection(ctx context.Context, q Queryer, now time.Time) (models.Election, error) {
	var e models.Election
	err := q.QueryRowContext(ctx, `
		SELECT id, name, starts_at, ends_at
		FROM election
		WHERE starts_at <= $1 AND ends_at >= $2
		ORDER BY starts_at DESC
		LIMIT 1
	`, now.UTC(), now.UTC()).Scan(&e.ID, &e.Name, &e.StartsAt, &e.EndsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, ErrNoActiveElection
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to query active election: %w", err)
	}
	return e, nil
}

// resolve picks the circuit the citizen is voting at: the declared circuit
// if any, otherwise the assignment for the active election. The ballot is
// observed when an assignment exists for that election and points elsewhere.
func resolve(ctx context.Context, q Queryer, voter Voter, now time.Time) (Resolution, error) {
	var res Resolution

	if voter.VotingCircuitID != nil {
		err := q.QueryRowContext(ctx, `
			SELECT id, establishment_id, election_id, status
			FROM circuit
			WHERE id = $1
		`, *voter.VotingCircuitID).Scan(&res.CircuitID, &res.EstablishmentID, &res.ElectionID, &res.Status)
		if errors.Is(err, sql.ErrNoRows) {
			return Resolution{}, ErrCircuitNotFound
		}
		if err != nil {
			return Resolution{}, fmt.Errorf("failed to query circuit: %w", err)
		}

		assigned, err := assignedCircuit(ctx, q, voter.CitizenCC, res.ElectionID)
		if err != nil {
			return Resolution{}, err
		}
		res.AssignedCircuitID = assigned
		res.Observed = assigned != nil && *assigned != res.CircuitID
		return res, nil
	}

	election, err := ActiveElection(ctx, q, now)
	if errors.Is(err, ErrNoActiveElection) {
		return Resolution{}, ErrCircuitNotFound
	}
	if err != nil {
		return Resolution{}, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT c.id, c.establishment_id, c.election_id, c.status
		FROM assignment a
		JOIN circuit c ON c.id = a.circuit_id
		WHERE a.citizen_cc = $1 AND a.election_id = $2
	`, voter.CitizenCC, election.ID).Scan(&res.CircuitID, &res.EstablishmentID, &res.ElectionID, &res.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Resolution{}, ErrCircuitNotFound
	}
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to query assignment: %w", err)
	}

	assigned := res.CircuitID
	res.AssignedCircuitID = &assigned
	return res, nil
}

func assignedCircuit(ctx context.Context, q Queryer, cc string, electionID int64) (*int64, error) {
	var circuitID int64
	err := q.QueryRowContext(ctx, `
		SELECT circuit_id FROM assignment
		WHERE citizen_cc = $1 AND election_id = $2
	`, cc, electionID).Scan(&circuitID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}
	return &circuitID, nil
}

func hasVoted(ctx context.Context, q Queryer, cc string, electionID int64) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `
		SELECT 1 FROM suffrage
		WHERE citizen_cc = $1 AND election_id = $2
	`, cc, electionID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query suffrage: %w", err)
	}
	return true, nil
}
