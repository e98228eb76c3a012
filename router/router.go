// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/urna/cliparse"
	"github.com/danielhkuo/urna/handlers"
	"github.com/danielhkuo/urna/middleware"
	"github.com/danielhkuo/urna/models"
)

func NewRouter(db *sql.DB, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(db, cfg)
	votingHandler := handlers.NewVotingHandler(db, cfg)
	presidentHandler := handlers.NewPresidentHandler(db, cfg)
	courtHandler := handlers.NewCourtHandler(db, cfg)

	// Role guards
	anySession := middleware.RequireRole(cfg.JWTSecret)
	voterOnly := middleware.RequireRole(cfg.JWTSecret, models.RoleVoter)
	presidentOnly := middleware.RequireRole(cfg.JWTSecret, models.RolePresident)
	courtOnly := middleware.RequireRole(cfg.JWTSecret, models.RoleCourt)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Login
	mux.HandleFunc("POST /auth/voter", middleware.WithLogging(authHandler.VoterLogin))
	mux.HandleFunc("POST /auth/president", middleware.WithLogging(authHandler.PresidentLogin))
	mux.HandleFunc("POST /auth/court", middleware.WithLogging(authHandler.CourtLogin))

	// Catalog (public, used by the login form)
	mux.HandleFunc("GET /elections/active", middleware.WithLogging(catalogHandler.ActiveElection))
	mux.HandleFunc("GET /departments", middleware.WithLogging(catalogHandler.Departments))
	mux.HandleFunc("GET /departments/{id}/circuits", middleware.WithLogging(catalogHandler.DepartmentCircuits))
	mux.HandleFunc("GET /circuits/{id}/status", middleware.WithLogging(presidentHandler.PublicStatus))

	// Catalog (any session)
	mux.HandleFunc("GET /parties", middleware.WithLogging(anySession(catalogHandler.Parties)))
	mux.HandleFunc("GET /lists", middleware.WithLogging(anySession(catalogHandler.Lists)))

	// Voting
	mux.HandleFunc("POST /votes", middleware.WithLogging(voterOnly(votingHandler.CastVote)))

	// Circuit president
	mux.HandleFunc("GET /president/me", middleware.WithLogging(presidentOnly(presidentHandler.Me)))
	mux.HandleFunc("GET /president/circuit/status", middleware.WithLogging(presidentOnly(presidentHandler.Status)))
	mux.HandleFunc("POST /president/circuit/open", middleware.WithLogging(presidentOnly(presidentHandler.OpenCircuit)))
	mux.HandleFunc("POST /president/circuit/close", middleware.WithLogging(presidentOnly(presidentHandler.CloseCircuit)))
	mux.HandleFunc("GET /president/circuit/results", middleware.WithLogging(presidentOnly(presidentHandler.Results)))

	// Electoral court
	mux.HandleFunc("GET /court/results", middleware.WithLogging(courtOnly(courtHandler.Results)))
	mux.HandleFunc("GET /court/elections/{id}/results", middleware.WithLogging(courtOnly(courtHandler.ElectionResults)))
	mux.HandleFunc("GET /court/circuits/{id}/results", middleware.WithLogging(courtOnly(courtHandler.CircuitResults)))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("urna API v1"))
	})

	return mux
}
