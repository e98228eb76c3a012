// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielhkuo/urna/models"
)

// ElectionResults reports participation and circuit progress for an
// election. Final results are attached only once every circuit is closed.
func ElectionResults(ctx context.Context, db *sql.DB, electionID int64) (models.ElectionResults, error) {
	var res models.ElectionResults

	err := db.QueryRowContext(ctx, `
		SELECT id, name, starts_at, ends_at FROM election WHERE id = $1
	`, electionID).Scan(&res.Election.ID, &res.Election.Name, &res.Election.StartsAt, &res.Election.EndsAt)
	if errors.Is(err, sql.ErrNoRows) {
		return res, ErrElectionNotFound
	}
	if err != nil {
		return res, fmt.Errorf("failed to query election: %w", err)
	}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM citizen`).Scan(&res.TotalCitizens); err != nil {
		return res, fmt.Errorf("failed to count citizens: %w", err)
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM suffrage WHERE election_id = $1
	`, electionID).Scan(&res.TotalVoters)
	if err != nil {
		return res, fmt.Errorf("failed to count voters: %w", err)
	}
	res.Participation = Percent(res.TotalVoters, res.TotalCitizens)

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = 'closed' THEN 1 ELSE 0 END), 0)
		FROM circuit
		WHERE election_id = $1
	`, electionID).Scan(&res.TotalCircuits, &res.OpenCircuits, &res.ClosedCircuits)
	if err != nil {
		return res, fmt.Errorf("failed to count circuits: %w", err)
	}
	res.AllClosed = res.OpenCircuits == 0 && res.ClosedCircuits > 0

	if !res.AllClosed {
		return res, nil
	}

	final, err := finalResults(ctx, db, electionID)
	if err != nil {
		return res, err
	}
	res.Final = &final
	return res, nil
}

func finalResults(ctx context.Context, db *sql.DB, electionID int64) (models.FinalResults, error) {
	var final models.FinalResults
	var err error

	final.Summary, err = summary(ctx, db, scopeElection, electionID)
	if err != nil {
		return final, err
	}

	final.Lists, err = listVotes(ctx, db, scopeElection, electionID, final.Summary.Total)
	if err != nil {
		return final, err
	}

	candidates, err := candidatesByList(ctx, db)
	if err != nil {
		return final, err
	}
	for i := range final.Lists {
		final.Lists[i].Candidates = candidates[listKey{final.Lists[i].ListID, final.Lists[i].PartyID}]
	}
	if len(final.Lists) > 0 {
		winner := final.Lists[0]
		final.WinningList = &winner
	}

	final.ByDepartment, err = departmentResults(ctx, db, electionID)
	if err != nil {
		return final, err
	}

	return final, nil
}

type listKey struct {
	listID  int64
	partyID int64
}

// candidatesByList returns candidate names per list in list order
func candidatesByList(ctx context.Context, db *sql.DB) (map[listKey][]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.list_id, c.party_id, ci.name
		FROM candidate c
		JOIN citizen ci ON ci.cc = c.citizen_cc
		ORDER BY c.list_id, c.party_id, c.list_position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	out := make(map[listKey][]string)
	for rows.Next() {
		var k listKey
		var name string
		if err := rows.Scan(&k.listID, &k.partyID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out[k] = append(out[k], name)
	}
	return out, rows.Err()
}

// departmentResults reports participation per department (voters over
// assigned citizens) and the list votes cast in its circuits
func departmentResults(ctx context.Context, db *sql.DB, electionID int64) ([]models.DepartmentResult, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT d.id, d.name,
		       (SELECT COUNT(*)
		          FROM suffrage s
		          JOIN establishment e ON e.id = s.establishment_id
		         WHERE e.department_id = d.id AND s.election_id = $1),
		       (SELECT COUNT(*)
		          FROM assignment a
		          JOIN establishment e ON e.id = a.establishment_id
		         WHERE e.department_id = d.id AND a.election_id = $2)
		FROM department d
		ORDER BY d.name
	`, electionID, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}

	departments := []models.DepartmentResult{}
	index := make(map[int64]int)
	for rows.Next() {
		var d models.DepartmentResult
		if err := rows.Scan(&d.DepartmentID, &d.DepartmentName, &d.Voters, &d.AssignedCitizens); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		d.Participation = Percent(d.Voters, d.AssignedCitizens)
		d.Lists = []models.ListResult{}
		index[d.DepartmentID] = len(departments)
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read departments: %w", err)
	}
	rows.Close()

	listRows, err := db.QueryContext(ctx, `
		SELECT e.department_id, l.id, l.list_number, p.id, p.name, COUNT(*) AS votes
		FROM ordinary_ballot ob
		JOIN ballot b ON b.id = ob.ballot_id
		JOIN establishment e ON e.id = b.establishment_id
		JOIN party_list l ON l.id = ob.list_id AND l.party_id = ob.party_id
		JOIN party p ON p.id = l.party_id
		WHERE b.election_id = $1
		GROUP BY e.department_id, l.id, l.list_number, p.id, p.name
		ORDER BY votes DESC, l.list_number
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query department list votes: %w", err)
	}
	defer listRows.Close()

	for listRows.Next() {
		var deptID int64
		var l models.ListResult
		if err := listRows.Scan(&deptID, &l.ListID, &l.ListNumber, &l.PartyID, &l.PartyName, &l.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan department list votes: %w", err)
		}
		i, ok := index[deptID]
		if !ok {
			continue
		}
		l.Percentage = Percent(l.Votes, departments[i].Voters)
		departments[i].Lists = append(departments[i].Lists, l)
	}
	return departments, listRows.Err()
}
