// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielhkuo/urna/models"
)

var errCircuitNotFound = errors.New("circuit not found")

// loadCircuit returns a circuit with its establishment
func loadCircuit(ctx context.Context, db *sql.DB, circuitID int64) (models.CircuitInfo, error) {
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
		return info, errCircuitNotFound
	}
	if err != nil {
		return info, fmt.Errorf("failed to query circuit: %w", err)
	}
	return info, nil
}
