// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, client_ip) and completion (status,
duration_ms). Request bodies are never logged.

# Role Guard

Require a bearer session token with one of the given roles:

	guard := middleware.RequireRole(cfg.JWTSecret, models.RoleVoter)
	mux.HandleFunc("POST /votes", middleware.WithLogging(guard(h.CastVote)))

A missing, malformed or expired token gets 401; a valid token with another
role gets 403. The parsed claims are available to the handler:

	claims, ok := middleware.ClaimsFromContext(r.Context())

# CORS Middleware

Enable cross-origin requests from the voting terminals:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, OPTIONS with headers Content-Type and
Authorization.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies (capped at 64 KiB):

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)
*/
package middleware
