// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/urna/auth"
	"github.com/danielhkuo/urna/middleware"
	"github.com/danielhkuo/urna/models"
	"github.com/danielhkuo/urna/testutil"
)

// guarded wraps h the same way the router does
func guarded(h http.HandlerFunc, roles ...string) http.HandlerFunc {
	return middleware.RequireRole(testutil.TestJWTSecret, roles...)(h)
}

func voterToken(t *testing.T, cc string, votingCircuitID *int64) string {
	t.Helper()
	return testutil.IssueTestToken(t, models.RoleVoter, cc, func(c *auth.Claims) {
		c.VotingCircuitID = votingCircuitID
	})
}

func presidentToken(t *testing.T, cc string, presidentID int64) string {
	t.Helper()
	return testutil.IssueTestToken(t, models.RolePresident, cc, func(c *auth.Claims) {
		c.PresidentID = &presidentID
	})
}

func courtToken(t *testing.T) string {
	t.Helper()
	return testutil.IssueTestToken(t, models.RoleCourt, "corte", nil)
}

// do runs h against a request built from method, path, body and an optional
// bearer token
func do(h http.HandlerFunc, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var headers map[string]string
	if token != "" {
		headers = testutil.BearerHeader(token)
	}
	req := testutil.MakeRequest(method, path, body, headers)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func int64Ptr(v int64) *int64 {
	return &v
}
