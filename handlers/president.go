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
	"github.com/danielhkuo/urna/tally"
	"github.com/google/uuid"
)

var errPresidentNotFound = errors.New("president not found")

type PresidentHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPresidentHandler(db *sql.DB, cfg cliparse.Config) *PresidentHandler {
	return &PresidentHandler{db: db, cfg: cfg}
}

// president loads the president behind the session. The circuit is always
// read from storage, never from the token.
func (h *PresidentHandler) president(r *http.Request) (models.PresidentInfo, error) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.PresidentID == nil {
		return models.PresidentInfo{}, errPresidentNotFound
	}

	var p models.PresidentInfo
	err := h.db.QueryRowContext(r.Context(), `
		SELECT p.id, p.citizen_cc, c.name, p.circuit_id
		FROM president p
		JOIN citizen c ON c.cc = p.citizen_cc
		WHERE p.id = $1 AND p.citizen_cc = $2
	`, *claims.PresidentID, claims.Subject).Scan(&p.ID, &p.CC, &p.Name, &p.CircuitID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PresidentInfo{}, errPresidentNotFound
	}
	if err != nil {
		return models.PresidentInfo{}, fmt.Errorf("failed to query president: %w", err)
	}
	return p, nil
}

// presidentCircuit writes the error response itself and returns ok=false
// when the president or their circuit cannot be loaded
func (h *PresidentHandler) presidentCircuit(w http.ResponseWriter, r *http.Request) (models.PresidentInfo, models.CircuitInfo, bool) {
	p, err := h.president(r)
	if errors.Is(err, errPresidentNotFound) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Not a circuit president")
		return p, models.CircuitInfo{}, false
	}
	if err != nil {
		slog.Error("failed to load president", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return p, models.CircuitInfo{}, false
	}

	circuit, err := loadCircuit(r.Context(), h.db, p.CircuitID)
	if err != nil {
		slog.Error("failed to load president circuit", "error", err, "circuit_id", p.CircuitID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return p, models.CircuitInfo{}, false
	}
	return p, circuit, true
}

// Me handles GET /president/me
func (h *PresidentHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, circuit, ok := h.presidentCircuit(w, r)
	if !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PresidentOverview{
		President: p,
		Circuit:   circuit,
		UrnOpen:   circuit.Status == models.StatusOpen,
	})
}

// Status handles GET /president/circuit/status
func (h *PresidentHandler) Status(w http.ResponseWriter, r *http.Request) {
	_, circuit, ok := h.presidentCircuit(w, r)
	if !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CircuitStatusResponse{
		CircuitID: circuit.ID,
		Status:    circuit.Status,
		UrnOpen:   circuit.Status == models.StatusOpen,
	})
}

// OpenCircuit handles POST /president/circuit/open
func (h *PresidentHandler) OpenCircuit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusClosed, models.StatusOpen, models.ActionOpen)
}

// CloseCircuit handles POST /president/circuit/close
func (h *PresidentHandler) CloseCircuit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusOpen, models.StatusClosed, models.ActionClose)
}

func (h *PresidentHandler) transition(w http.ResponseWriter, r *http.Request, from, to, action string) {
	p, err := h.president(r)
	if errors.Is(err, errPresidentNotFound) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Not a circuit president")
		return
	}
	if err != nil {
		slog.Error("failed to load president", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	changedAt, err := setCircuitStatus(r.Context(), h.db, p, from, to, action)
	if errors.Is(err, errStatusUnchanged) {
		middleware.ErrorResponse(w, http.StatusConflict, "The urn is already "+to)
		return
	}
	if err != nil {
		slog.Error("failed to change circuit status", "error", err, "circuit_id", p.CircuitID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to change urn status")
		return
	}

	slog.Info("circuit status changed", "circuit_id", p.CircuitID, "president_id", p.ID, "status", to)

	message := "Urn opened: ballots are now accepted"
	if to == models.StatusClosed {
		message = "Urn closed: ballots are no longer accepted"
	}

	middleware.JSONResponse(w, http.StatusOK, models.TransitionResponse{
		CircuitID: p.CircuitID,
		Status:    to,
		ChangedAt: changedAt,
		Message:   message,
	})
}

var errStatusUnchanged = errors.New("circuit is not in the expected status")

// setCircuitStatus moves the circuit from one status to the other and
// records the event. The conditional UPDATE makes repeated or concurrent
// transitions fail with errStatusUnchanged. The event time is taken inside
// the transaction, after any vote holding the circuit row has committed.
func setCircuitStatus(ctx context.Context, db *sql.DB, p models.PresidentInfo, from, to, action string) (time.Time, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE circuit SET status = $1 WHERE id = $2 AND status = $3
	`, to, p.CircuitID, from)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update circuit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return time.Time{}, errStatusUnchanged
	}

	at := time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO circuit_event (id, circuit_id, president_cc, action, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), p.CircuitID, p.CC, action, at)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to record circuit event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("failed to commit status change: %w", err)
	}
	return at, nil
}

// Results handles GET /president/circuit/results
// Results stay sealed while the urn is open.
func (h *PresidentHandler) Results(w http.ResponseWriter, r *http.Request) {
	p, err := h.president(r)
	if errors.Is(err, errPresidentNotFound) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Not a circuit president")
		return
	}
	if err != nil {
		slog.Error("failed to load president", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeCircuitResults(w, r, h.db, p.CircuitID)
}

// PublicStatus handles GET /circuits/{id}/status
func (h *PresidentHandler) PublicStatus(w http.ResponseWriter, r *http.Request) {
	circuitID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid circuit id")
		return
	}

	var status string
	err = h.db.QueryRowContext(r.Context(), `SELECT status FROM circuit WHERE id = $1`, circuitID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Circuit not found")
		return
	}
	if err != nil {
		slog.Error("failed to query circuit", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CircuitStatusResponse{
		CircuitID: circuitID,
		Status:    status,
		UrnOpen:   status == models.StatusOpen,
	})
}

// writeCircuitResults is shared by the president and court views
func writeCircuitResults(w http.ResponseWriter, r *http.Request, db *sql.DB, circuitID int64) {
	res, err := tally.CircuitResults(r.Context(), db, circuitID)
	switch {
	case err == nil:
		middleware.JSONResponse(w, http.StatusOK, res)
	case errors.Is(err, tally.ErrCircuitNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Circuit not found")
	case errors.Is(err, tally.ErrResultsSealed):
		middleware.ErrorResponse(w, http.StatusConflict, "Results are sealed until the urn is closed")
	default:
		slog.Error("failed to compute circuit results", "error", err, "circuit_id", circuitID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
	}
}
