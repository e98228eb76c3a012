// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/urna/auth"
	"github.com/danielhkuo/urna/cliparse"
	"github.com/danielhkuo/urna/middleware"
	"github.com/danielhkuo/urna/models"
	"github.com/danielhkuo/urna/voting"
	"github.com/golang-jwt/jwt/v4"
)

type AuthHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	votes *voting.Service
}

func NewAuthHandler(db *sql.DB, cfg cliparse.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, votes: voting.NewService(db)}
}

// VoterLogin handles POST /auth/voter
// The optional voting_circuit_id declares the citizen is voting away from
// their assigned circuit; the ballot will then be observed.
func (h *AuthHandler) VoterLogin(w http.ResponseWriter, r *http.Request) {
	var req models.VoterLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Credential = strings.TrimSpace(req.Credential)
	if req.Credential == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "credential is required")
		return
	}

	ctx := r.Context()

	var citizen models.Citizen
	err := h.db.QueryRowContext(ctx, `
		SELECT cc, name FROM citizen WHERE cc = $1
	`, req.Credential).Scan(&citizen.CC, &citizen.Name)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credential")
		return
	}
	if err != nil {
		slog.Error("failed to query citizen", "error", err)
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

	voted, err := h.votes.HasVoted(ctx, citizen.CC, election.ID)
	if err != nil {
		slog.Error("failed to check suffrage", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if voted {
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted in this election")
		return
	}

	voter := voting.Voter{CitizenCC: citizen.CC, VotingCircuitID: req.VotingCircuitID}
	res, err := h.votes.ResolvePreview(ctx, voter)
	if errors.Is(err, voting.ErrCircuitNotFound) {
		if req.VotingCircuitID != nil {
			middleware.ErrorResponse(w, http.StatusNotFound, "Voting circuit not found")
		} else {
			middleware.ErrorResponse(w, http.StatusNotFound, "No circuit assigned for this election")
		}
		return
	}
	if err != nil {
		slog.Error("failed to resolve voting circuit", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if res.ElectionID != election.ID {
		middleware.ErrorResponse(w, http.StatusNotFound, "Voting circuit is not part of the active election")
		return
	}

	votingCircuit, err := loadCircuit(ctx, h.db, res.CircuitID)
	if err != nil {
		slog.Error("failed to load voting circuit", "error", err, "circuit_id", res.CircuitID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	var assigned *models.CircuitInfo
	if res.AssignedCircuitID != nil {
		info, err := loadCircuit(ctx, h.db, *res.AssignedCircuitID)
		if err != nil {
			slog.Error("failed to load assigned circuit", "error", err, "circuit_id", *res.AssignedCircuitID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		assigned = &info
	}

	token, err := auth.IssueToken(h.cfg.JWTSecret, auth.Claims{
		Role:             models.RoleVoter,
		Name:             citizen.Name,
		VotingCircuitID:  req.VotingCircuitID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: citizen.CC},
	}, h.cfg.TokenTTL, time.Now())
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("voter logged in", "circuit_id", res.CircuitID, "observed", res.Observed)

	middleware.JSONResponse(w, http.StatusOK, models.VoterLoginResponse{
		Token:           token,
		Citizen:         citizen,
		AssignedCircuit: assigned,
		VotingCircuit:   votingCircuit,
		Observed:        res.Observed,
	})
}

// PresidentLogin handles POST /auth/president
func (h *AuthHandler) PresidentLogin(w http.ResponseWriter, r *http.Request) {
	var req models.PresidentLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Credential = strings.TrimSpace(req.Credential)
	if req.Credential == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "credential is required")
		return
	}

	var president models.PresidentInfo
	err := h.db.QueryRowContext(r.Context(), `
		SELECT p.id, p.citizen_cc, c.name, p.circuit_id
		FROM president p
		JOIN citizen c ON c.cc = p.citizen_cc
		WHERE p.citizen_cc = $1
	`, req.Credential).Scan(&president.ID, &president.CC, &president.Name, &president.CircuitID)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credential")
		return
	}
	if err != nil {
		slog.Error("failed to query president", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	presidentID := president.ID
	token, err := auth.IssueToken(h.cfg.JWTSecret, auth.Claims{
		Role:             models.RolePresident,
		Name:             president.Name,
		PresidentID:      &presidentID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: president.CC},
	}, h.cfg.TokenTTL, time.Now())
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("president logged in", "president_id", president.ID, "circuit_id", president.CircuitID)

	middleware.JSONResponse(w, http.StatusOK, models.PresidentLoginResponse{
		Token:     token,
		President: president,
	})
}

// CourtLogin handles POST /auth/court
func (h *AuthHandler) CourtLogin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.CourtPasswordHash == "" {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Court login is not configured")
		return
	}

	var req models.CourtLoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Username == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username and password are required")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.cfg.CourtUsername)) == 1
	passErr := auth.CheckPassword(h.cfg.CourtPasswordHash, req.Password)
	if !userOK || passErr != nil {
		slog.Warn("court login rejected", "client_ip", middleware.GetClientIP(r))
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.IssueToken(h.cfg.JWTSecret, auth.Claims{
		Role:             models.RoleCourt,
		Name:             h.cfg.CourtUsername,
		RegisteredClaims: jwt.RegisteredClaims{Subject: h.cfg.CourtUsername},
	}, h.cfg.TokenTTL, time.Now())
	if err != nil {
		slog.Error("failed to issue token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("court logged in")

	middleware.JSONResponse(w, http.StatusOK, models.CourtLoginResponse{Token: token})
}
