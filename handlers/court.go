// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/urna/cliparse"
	"github.com/danielhkuo/urna/middleware"
	"github.com/danielhkuo/urna/tally"
	"github.com/danielhkuo/urna/voting"
)

type CourtHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCourtHandler(db *sql.DB, cfg cliparse.Config) *CourtHandler {
	return &CourtHandler{db: db, cfg: cfg}
}

// Results handles GET /court/results
// Reports the active election.
func (h *CourtHandler) Results(w http.ResponseWriter, r *http.Request) {
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

	h.writeElectionResults(w, r, election.ID)
}

// ElectionResults handles GET /court/elections/{id}/results
func (h *CourtHandler) ElectionResults(w http.ResponseWriter, r *http.Request) {
	electionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid election id")
		return
	}

	h.writeElectionResults(w, r, electionID)
}

// CircuitResults handles GET /court/circuits/{id}/results
func (h *CourtHandler) CircuitResults(w http.ResponseWriter, r *http.Request) {
	circuitID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "invalid circuit id")
		return
	}

	writeCircuitResults(w, r, h.db, circuitID)
}

func (h *CourtHandler) writeElectionResults(w http.ResponseWriter, r *http.Request, electionID int64) {
	res, err := tally.ElectionResults(r.Context(), h.db, electionID)
	if errors.Is(err, tally.ErrElectionNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if err != nil {
		slog.Error("failed to compute election results", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, res)
}
