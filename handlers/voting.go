// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/urna/cliparse"
	"github.com/danielhkuo/urna/middleware"
	"github.com/danielhkuo/urna/models"
	"github.com/danielhkuo/urna/voting"
)

type VotingHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	votes *voting.Service
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, votes: voting.NewService(db)}
}

// CastVote handles POST /votes
// Requires a voter token. The citizen and the declared circuit come from the
// token; the ballot body only carries kind, party_id and list_id.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Missing session")
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	voter := voting.Voter{
		CitizenCC:       claims.Subject,
		VotingCircuitID: claims.VotingCircuitID,
	}

	receipt, err := h.votes.CastVote(r.Context(), voter, req)
	switch {
	case err == nil:
	case errors.Is(err, voting.ErrAlreadyVoted):
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted in this election")
		return
	case errors.Is(err, voting.ErrCircuitClosed):
		middleware.ErrorResponse(w, http.StatusConflict, "The urn is closed")
		return
	case errors.Is(err, voting.ErrCircuitNotFound):
		slog.Warn("vote without a resolvable circuit", "declared_circuit", claims.VotingCircuitID != nil)
		middleware.ErrorResponse(w, http.StatusNotFound, "Voting circuit not found")
		return
	case errors.Is(err, voting.ErrInvalidBallotDetail):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	default:
		slog.Error("failed to cast vote", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Could not record your vote, please try again")
		return
	}

	// The citizen is never logged together with the ballot
	slog.Info("ballot cast", "circuit_id", receipt.CircuitID, "kind", req.Kind, "observed", receipt.Observed)

	message := "Vote recorded"
	if receipt.Observed {
		message = "Vote recorded as observed"
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastVoteResponse{
		Message:   message,
		Observed:  receipt.Observed,
		CircuitID: receipt.CircuitID,
	})
}
