// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_URL", "DATABASE_TYPE", "JWT_SECRET", "TOKEN_TTL",
		"COURT_USERNAME", "COURT_PASSWORD_HASH", "LOG_FORMAT", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestParseFlags_EnvVars(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TOKEN_TTL", "30m")

	cfg, err := ParseFlags([]string{"-env", ""})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabasePostgres {
		t.Errorf("expected default database type postgres, got %s", cfg.DatabaseType)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("expected TTL 30m, got %s", cfg.TokenTTL)
	}
	if cfg.CourtUsername != defaultCourtUser {
		t.Errorf("expected default court user, got %s", cfg.CourtUsername)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := ParseFlags([]string{"-env", "", "-p", "8080", "-d", "file:test.db", "-t", "sqlite", "-jwt-secret", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.DatabaseType != DatabaseSQLite {
		t.Errorf("expected sqlite, got %s", cfg.DatabaseType)
	}
	if cfg.TokenTTL != defaultTokenTTL {
		t.Errorf("expected default TTL, got %s", cfg.TokenTTL)
	}
}

func TestParseFlags_DotEnvFile(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("JWT_SECRET", "from-env")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "DATABASE_URL=postgres://dotenv\nJWT_SECRET=from-file\nLOG_LEVEL=debug\nLOG_FORMAT=json\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseFlags([]string{"-env", path})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DatabaseURL != "postgres://dotenv" {
		t.Errorf("expected DATABASE_URL from .env, got %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("real env should win over .env, got %q", cfg.JWTSecret)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected json format, got %s", cfg.LogFormat)
	}
}

func TestParseFlags_MissingDotEnvIsFine(t *testing.T) {
	clearConfigEnv(t)

	_, err := ParseFlags([]string{
		"-env", filepath.Join(t.TempDir(), "missing.env"),
		"-d", "postgres://x", "-jwt-secret", "s",
	})
	if err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing database url", []string{"-jwt-secret", "s"}},
		{"missing jwt secret", []string{"-d", "postgres://x"}},
		{"unknown database type", []string{"-d", "x", "-jwt-secret", "s", "-t", "mysql"}},
		{"bad ttl", []string{"-d", "x", "-jwt-secret", "s", "-token-ttl", "soon"}},
		{"negative ttl", []string{"-d", "x", "-jwt-secret", "s", "-token-ttl", "-1h"}},
		{"bad log format", []string{"-d", "x", "-jwt-secret", "s", "-log-format", "xml"}},
		{"bad log level", []string{"-d", "x", "-jwt-secret", "s", "-log-level", "loud"}},
		{"port out of range", []string{"-d", "x", "-jwt-secret", "s", "-p", "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			args := append([]string{"-env", ""}, tt.args...)
			if _, err := ParseFlags(args); err == nil {
				t.Errorf("expected error for args %v", tt.args)
			}
		})
	}
}
