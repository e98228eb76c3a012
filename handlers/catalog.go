// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/urna/cliparse"
	"github.com/danielhkuo/urna/middleware"
	"github.com/danielhkuo/urna/models"
	"github.com/danielhkuo/urna/voting"
)

// CatalogHandler serves the reference data used by the voting forms
type CatalogHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCatalogHandler(db *sql.DB, cfg cliparse.Config) *CatalogHandler {
	return &CatalogHandler{db: db, cfg: cfg}
}

// Parties handles GET /parties
func (h *CatalogHandler) Parties(w http.ResponseWriter, r *http.Request) {
	parties, err := queryAll(r.Context(), h.db, scanParty, `SELECT id, name FROM party ORDER BY name`)
	if err != nil {
		slog.Error("failed to query parties", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, parties)
}

// Lists handles GET /lists
// Accepts an optional party_id query parameter.
func (h *CatalogHandler) Lists(w http.ResponseWriter, r *http.Request) {
	query := `SELECT id, party_id, list_number, members, image_url FROM party_list`
	var args []any

	if raw := r.URL.Query().Get("party_id"); raw != "" {
		partyID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "invalid party_id")
			return
		}
		query += ` WHERE party_id = $1`
		args = append(args, partyID)
	}
	query += ` ORDER BY list_number, id`

	lists, err := queryAll(r.Context(), h.db, scanList, query, args...)
	if err != nil {
		slog.Error("failed to query lists", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, lists)
}

// Departments handles GET /departments
func (h *CatalogHandler) Departments(w http.ResponseWriter, r *http.Request) {
	departments, err := queryAll(r.Context(), h.db, scanDepartment, `SELECT id, name FROM department ORDER BY name`)
	if err != nil {
		slog.Error("failed to query departments", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, departments)
}

// DepartmentCircuits handles GET /departments/{id}/circuits
// Lists the active election's circuits in the department, for citizens
// declaring where they are voting.
func (h *CatalogHandler) DepartmentCircuits(w http.ResponseWriter, r *http.Request) {
	departmentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid department id")
		return
	}

	ctx := r.Context()

	var exists int
	err = h.db.QueryRowContext(ctx, `SELECT 1 FROM department WHERE id = $1`, departmentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Department not found")
		return
	}
	if err != nil {
		slog.Error("failed to query department", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	election, err := voting.ActiveElection(ctx, h.db, time.Now())
	if errors.Is(err, voting.ErrNoActiveElection) {
		middleware.ErrorResponse(w, http.StatusNotFound, "No active election")
		return
	}
	if err != nil {
		slog.Error("failed to query active election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	circuits, err := queryAll(ctx, h.db, scanCircuitInfo, `
		SELECT c.id, c.election_id, c.status,
		       e.id, e.department_id, e.name, e.kind, e.address
		FROM circuit c
		JOIN establishment e ON e.id = c.establishment_id
		WHERE e.department_id = $1 AND c.election_id = $2
		ORDER BY c.id
	`, departmentID, election.ID)
	if err != nil {
		slog.Error("failed to query circuits", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, circuits)
}

// ActiveElection handles GET /elections/active
func (h *CatalogHandler) ActiveElection(w http.ResponseWriter, r *http.Request) {
	election, err := voting.ActiveElection(r.Context(), h.db, time.Now())
	if errors.Is(err, voting.ErrNoActiveElection) {
		middleware.ErrorResponse(w, http.StatusNotFound, "No active election")
		return
	}
	if err != nil {
		slog.Error("failed to query active election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, election)
}

// queryAll runs query and scans every row with scan. It returns an empty,
// non-nil slice when nothing matches and a nil slice on any error,
// including one reported only after iteration stops.
func queryAll[T any](ctx context.Context, db *sql.DB, scan func(*sql.Rows) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return items, nil
}

func scanParty(rows *sql.Rows) (models.Party, error) {
	var p models.Party
	err := rows.Scan(&p.ID, &p.Name)
	return p, err
}

func scanList(rows *sql.Rows) (models.List, error) {
	var l models.List
	err := rows.Scan(&l.ID, &l.PartyID, &l.Number, &l.Members, &l.ImageURL)
	return l, err
}

func scanDepartment(rows *sql.Rows) (models.Department, error) {
	var d models.Department
	err := rows.Scan(&d.ID, &d.Name)
	return d, err
}

func scanCircuitInfo(rows *sql.Rows) (models.CircuitInfo, error) {
	var c models.CircuitInfo
	err := rows.Scan(
		&c.ID, &c.ElectionID, &c.Status,
		&c.Establishment.ID, &c.Establishment.DepartmentID, &c.Establishment.Name,
		&c.Establishment.Kind, &c.Establishment.Address,
	)
	return c, err
}
