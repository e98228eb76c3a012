// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/danielhkuo/urna/models"
)

var (
	ErrCircuitNotFound  = errors.New("circuit not found")
	ErrElectionNotFound = errors.New("election not found")
	// ErrResultsSealed is returned while the circuit's urn is open
	ErrResultsSealed = errors.New("results are sealed until the urn is closed")
)

// Ballot columns a tally can be scoped to
const (
	scopeCircuit  = "circuit_id"
	scopeElection = "election_id"
)

// Row labels for the non-party entries of the per-party breakdown
const (
	BlankLabel    = "Blank votes"
	AnnulledLabel = "Annulled votes"
)

// CircuitResults tallies the ballots of one closed circuit
func CircuitResults(ctx context.Context, db *sql.DB, circuitID int64) (models.CircuitResults, error) {
	var res models.CircuitResults

	info, err := circuitInfo(ctx, db, circuitID)
	if err != nil {
		return res, err
	}
	if info.Status != models.StatusClosed {
		return res, ErrResultsSealed
	}
	res.Circuit = info

	res.Summary, err = summary(ctx, db, scopeCircuit, circuitID)
	if err != nil {
		return res, err
	}
	total := res.Summary.Total
	res.Percentages = models.ResultPercentages{
		Ordinary: Percent(res.Summary.Ordinary, total),
		Blank:    Percent(res.Summary.Blank, total),
		Annulled: Percent(res.Summary.Annulled, total),
		Observed: Percent(res.Summary.Observed, total),
	}

	res.ByList, err = listVotes(ctx, db, scopeCircuit, circuitID, total)
	if err != nil {
		return res, err
	}

	res.ByParty, err = partyVotes(ctx, db, circuitID, total)
	if err != nil {
		return res, err
	}
	res.ByParty = append(res.ByParty,
		models.PartyResult{PartyName: BlankLabel, Votes: res.Summary.Blank, Percentage: res.Percentages.Blank},
		models.PartyResult{PartyName: AnnulledLabel, Votes: res.Summary.Annulled, Percentage: res.Percentages.Annulled},
	)
	sort.SliceStable(res.ByParty, func(i, j int) bool {
		return res.ByParty[i].Votes > res.ByParty[j].Votes
	})

	res.ByCandidate, err = candidateVotes(ctx, db, circuitID, total)
	if err != nil {
		return res, err
	}

	return res, nil
}

// Percent returns part as a percentage of total rounded to two decimals,
// or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func circuitInfo(ctx context.Context, db *sql.DB, circuitID int64) (models.CircuitInfo, error) {
	var info models.CircuitInfo
	err := db.QueryRowContext(ctx, `
		SELECT c.id, c.election_id, c.status,
		       e.id, e.department_id, e.name, e.kind, e.address
		FROM circuit c
		JOIN establishment e ON e.id = c.establishment_id
		WHERE c.id = $1
	`, circuitID).Scan(
		&info.ID, &info.ElectionID, &info.Status,
		&info.Establishment.ID, &info.Establishment.DepartmentID, &info.Establishment.Name,
		&info.Establishment.Kind, &info.Establishment.Address,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return info, ErrCircuitNotFound
	}
	if err != nil {
		return info, fmt.Errorf("failed to query circuit: %w", err)
	}
	return info, nil
}

// summary counts ballots by kind. scope must be scopeCircuit or
// scopeElection.
func summary(ctx context.Context, db *sql.DB, scope string, id int64) (models.ResultSummary, error) {
	var s models.ResultSummary
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN kind = 'ordinary' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kind = 'blank' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kind = 'annulled' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN observed THEN 1 ELSE 0 END), 0)
		FROM ballot
		WHERE `+scope+` = $1
	`, id).Scan(&s.Total, &s.Ordinary, &s.Blank, &s.Annulled, &s.Observed)
	if err != nil {
		return s, fmt.Errorf("failed to count ballots: %w", err)
	}
	return s, nil
}

// listVotes returns lists with at least one vote, most voted first
func listVotes(ctx context.Context, db *sql.DB, scope string, id int64, total int) ([]models.ListResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT l.id, l.list_number, p.id, p.name, COUNT(*) AS votes
		FROM ordinary_ballot ob
		JOIN ballot b ON b.id = ob.ballot_id
		JOIN party_list l ON l.id = ob.list_id AND l.party_id = ob.party_id
		JOIN party p ON p.id = l.party_id
		WHERE b.`+scope+` = $1
		GROUP BY l.id, l.list_number, p.id, p.name
		ORDER BY votes DESC, l.list_number
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query list votes: %w", err)
	}
	defer rows.Close()

	lists := []models.ListResult{}
	for rows.Next() {
		var l models.ListResult
		if err := rows.Scan(&l.ListID, &l.ListNumber, &l.PartyID, &l.PartyName, &l.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan list votes: %w", err)
		}
		l.Percentage = Percent(l.Votes, total)
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func partyVotes(ctx context.Context, db *sql.DB, circuitID int64, total int) ([]models.PartyResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT p.id, p.name, COUNT(*) AS votes
		FROM ordinary_ballot ob
		JOIN ballot b ON b.id = ob.ballot_id
		JOIN party p ON p.id = ob.party_id
		WHERE b.circuit_id = $1
		GROUP BY p.id, p.name
		ORDER BY votes DESC, p.name
	`, circuitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query party votes: %w", err)
	}
	defer rows.Close()

	parties := []models.PartyResult{}
	for rows.Next() {
		var p models.PartyResult
		var id int64
		if err := rows.Scan(&id, &p.PartyName, &p.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan party votes: %w", err)
		}
		p.PartyID = &id
		p.Percentage = Percent(p.Votes, total)
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

// candidateVotes credits each ordinary ballot to every candidate of the
// chosen list
func candidateVotes(ctx context.Context, db *sql.DB, circuitID int64, total int) ([]models.CandidateResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.citizen_cc, ci.name, c.list_id, p.id, p.name, COUNT(*) AS votes
		FROM ordinary_ballot ob
		JOIN ballot b ON b.id = ob.ballot_id
		JOIN candidate c ON c.list_id = ob.list_id AND c.party_id = ob.party_id
		JOIN citizen ci ON ci.cc = c.citizen_cc
		JOIN party p ON p.id = c.party_id
		WHERE b.circuit_id = $1
		GROUP BY c.citizen_cc, ci.name, c.list_id, p.id, p.name
		ORDER BY votes DESC, ci.name
	`, circuitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate votes: %w", err)
	}
	defer rows.Close()

	candidates := []models.CandidateResult{}
	for rows.Next() {
		var c models.CandidateResult
		if err := rows.Scan(&c.CandidateCC, &c.CandidateName, &c.ListID, &c.PartyID, &c.PartyName, &c.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan candidate votes: %w", err)
		}
		c.Percentage = Percent(c.Votes, total)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
