// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/urna/auth"
	"github.com/danielhkuo/urna/cliparse"
	"github.com/danielhkuo/urna/db"
	"github.com/golang-jwt/jwt/v4"
)

// TestJWTSecret signs every token issued in tests
const TestJWTSecret = "test-jwt-secret"

// IDs of the standard fixture created by SeedElection
const (
	ElectionID = 1

	DeptMontevideo = 1
	DeptCanelones  = 2

	EstSchool = 1
	EstLiceo  = 2
	EstClub   = 3

	// Circuits 7 and 9 start open, 11 starts closed
	CircuitHome   = 7
	CircuitAway   = 9
	CircuitClosed = 11

	PartyBlue = 101
	PartyRed  = 102

	ListBlue1 = 1
	ListRed2  = 2
	ListBlue3 = 3

	PresidentHome   = 1
	PresidentClosed = 2
)

// Citizens of the standard fixture
const (
	CitizenAna    = "12345678" // assigned to CircuitHome
	CitizenBruno  = "23456789" // assigned to CircuitAway
	CitizenCarla  = "34567890" // assigned to CircuitClosed
	CitizenDiego  = "45678901" // no assignment
	CitizenElena  = "56789012" // presides CircuitHome, assigned there
	CitizenFabio  = "67890123" // presides CircuitClosed, assigned there
	CitizenGloria = "78901234" // candidate on list 1
	CitizenHugo   = "89012345" // candidate on list 2
)

// SetupTestDB creates a fresh SQLite database file with the full schema.
// The database is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "urna.db") +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(context.Background(), conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration. The court password
// is "court-password".
func GetTestConfig(t *testing.T) cliparse.Config {
	t.Helper()

	hash, err := auth.HashPassword("court-password")
	if err != nil {
		t.Fatalf("Failed to hash court password: %v", err)
	}

	return cliparse.Config{
		Port:              3318,
		DatabaseURL:       ":memory:",
		DatabaseType:      cliparse.DatabaseSQLite,
		JWTSecret:         TestJWTSecret,
		TokenTTL:          time.Hour,
		CourtUsername:     "corte",
		CourtPasswordHash: hash,
		LogFormat:         "text",
	}
}

func exec(t *testing.T, db *sql.DB, what, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("Failed to create test %s: %v", what, err)
	}
}

func CreateDepartment(t *testing.T, db *sql.DB, id int64, name string) {
	t.Helper()
	exec(t, db, "department", `INSERT INTO department (id, name) VALUES ($1, $2)`, id, name)
}

func CreateEstablishment(t *testing.T, db *sql.DB, id, departmentID int64, name string) {
	t.Helper()
	exec(t, db, "establishment", `
		INSERT INTO establishment (id, department_id, name, kind, address)
		VALUES ($1, $2, $3, 'school', $4)
	`, id, departmentID, name, name+" 1234")
}

// CreateElection creates an election with the given window
func CreateElection(t *testing.T, db *sql.DB, id int64, name string, startsAt, endsAt time.Time) {
	t.Helper()
	exec(t, db, "election", `
		INSERT INTO election (id, name, starts_at, ends_at)
		VALUES ($1, $2, $3, $4)
	`, id, name, startsAt.UTC(), endsAt.UTC())
}

// CreateActiveElection creates an election running from yesterday to tomorrow
func CreateActiveElection(t *testing.T, db *sql.DB, id int64) {
	t.Helper()
	now := time.Now()
	CreateElection(t, db, id, "Elecciones Nacionales", now.Add(-24*time.Hour), now.Add(24*time.Hour))
}

func CreateCitizen(t *testing.T, db *sql.DB, cc, name string) {
	t.Helper()
	exec(t, db, "citizen", `INSERT INTO citizen (cc, name) VALUES ($1, $2)`, cc, name)
}

// CreateCircuit creates a circuit; status should be "open" or "closed"
func CreateCircuit(t *testing.T, db *sql.DB, id, establishmentID, electionID int64, status string) {
	t.Helper()
	exec(t, db, "circuit", `
		INSERT INTO circuit (id, establishment_id, election_id, status)
		VALUES ($1, $2, $3, $4)
	`, id, establishmentID, electionID, status)
}

// AssignCitizen makes circuitID the citizen's home circuit for its election
func AssignCitizen(t *testing.T, db *sql.DB, cc string, circuitID int64) {
	t.Helper()
	exec(t, db, "assignment", `
		INSERT INTO assignment (citizen_cc, circuit_id, establishment_id, election_id, assigned_at)
		SELECT $1, id, establishment_id, election_id, $2 FROM circuit WHERE id = $3
	`, cc, time.Now().UTC(), circuitID)
}

func CreatePresident(t *testing.T, db *sql.DB, id int64, cc string, circuitID int64) {
	t.Helper()
	exec(t, db, "president", `
		INSERT INTO president (id, citizen_cc, circuit_id) VALUES ($1, $2, $3)
	`, id, cc, circuitID)
}

func CreateParty(t *testing.T, db *sql.DB, id int64, name string) {
	t.Helper()
	exec(t, db, "party", `INSERT INTO party (id, name) VALUES ($1, $2)`, id, name)
}

func CreateList(t *testing.T, db *sql.DB, id, partyID int64, number int) {
	t.Helper()
	exec(t, db, "list", `
		INSERT INTO party_list (id, party_id, list_number, members, image_url)
		VALUES ($1, $2, $3, '', '')
	`, id, partyID, number)
}

func AddCandidate(t *testing.T, db *sql.DB, cc string, listID, partyID int64, position int) {
	t.Helper()
	exec(t, db, "candidate", `
		INSERT INTO candidate (citizen_cc, list_id, party_id, list_position)
		VALUES ($1, $2, $3, $4)
	`, cc, listID, partyID, position)
}

// SetCircuitStatus changes a circuit's status directly, bypassing the
// president workflow
func SetCircuitStatus(t *testing.T, db *sql.DB, circuitID int64, status string) {
	t.Helper()
	exec(t, db, "circuit status", `UPDATE circuit SET status = $1 WHERE id = $2`, status, circuitID)
}

// InsertBallot writes a ballot row directly, bypassing vote casting.
// listID and partyID are only used for ordinary ballots.
func InsertBallot(t *testing.T, db *sql.DB, id string, circuitID int64, kind string, observed bool, listID, partyID int64) {
	t.Helper()
	exec(t, db, "ballot", `
		INSERT INTO ballot (id, circuit_id, establishment_id, election_id, kind, observed)
		SELECT $1, id, establishment_id, election_id, $2, $3 FROM circuit WHERE id = $4
	`, id, kind, observed, circuitID)
	if kind == "ordinary" {
		exec(t, db, "ordinary ballot", `
			INSERT INTO ordinary_ballot (ballot_id, list_id, party_id) VALUES ($1, $2, $3)
		`, id, listID, partyID)
	}
}

// InsertSuffrage records that cc voted at circuitID, bypassing vote casting
func InsertSuffrage(t *testing.T, db *sql.DB, cc string, circuitID int64) {
	t.Helper()
	exec(t, db, "suffrage", `
		INSERT INTO suffrage (citizen_cc, circuit_id, establishment_id, election_id, cast_at)
		SELECT $1, id, establishment_id, election_id, $2 FROM circuit WHERE id = $3
	`, cc, time.Now().UTC(), circuitID)
}

// SeedElection creates the standard fixture: one active election, two
// departments, three establishments and circuits, two parties with three
// lists, and the citizens declared above.
func SeedElection(t *testing.T, db *sql.DB) {
	t.Helper()

	CreateDepartment(t, db, DeptMontevideo, "Montevideo")
	CreateDepartment(t, db, DeptCanelones, "Canelones")

	CreateEstablishment(t, db, EstSchool, DeptMontevideo, "Escuela 12")
	CreateEstablishment(t, db, EstLiceo, DeptCanelones, "Liceo 3")
	CreateEstablishment(t, db, EstClub, DeptMontevideo, "Club Atenas")

	CreateActiveElection(t, db, ElectionID)

	CreateCircuit(t, db, CircuitHome, EstSchool, ElectionID, "open")
	CreateCircuit(t, db, CircuitAway, EstLiceo, ElectionID, "open")
	CreateCircuit(t, db, CircuitClosed, EstClub, ElectionID, "closed")

	for cc, name := range map[string]string{
		CitizenAna:    "Ana Pereira",
		CitizenBruno:  "Bruno Silva",
		CitizenCarla:  "Carla Gómez",
		CitizenDiego:  "Diego Rodríguez",
		CitizenElena:  "Elena Martínez",
		CitizenFabio:  "Fabio Sosa",
		CitizenGloria: "Gloria Núñez",
		CitizenHugo:   "Hugo Fernández",
	} {
		CreateCitizen(t, db, cc, name)
	}

	AssignCitizen(t, db, CitizenAna, CircuitHome)
	AssignCitizen(t, db, CitizenBruno, CircuitAway)
	AssignCitizen(t, db, CitizenCarla, CircuitClosed)
	AssignCitizen(t, db, CitizenElena, CircuitHome)
	AssignCitizen(t, db, CitizenFabio, CircuitClosed)

	CreatePresident(t, db, PresidentHome, CitizenElena, CircuitHome)
	CreatePresident(t, db, PresidentClosed, CitizenFabio, CircuitClosed)

	CreateParty(t, db, PartyBlue, "Partido Azul")
	CreateParty(t, db, PartyRed, "Partido Rojo")

	CreateList(t, db, ListBlue1, PartyBlue, 1)
	CreateList(t, db, ListRed2, PartyRed, 2)
	CreateList(t, db, ListBlue3, PartyBlue, 3)

	AddCandidate(t, db, CitizenGloria, ListBlue1, PartyBlue, 1)
	AddCandidate(t, db, CitizenHugo, ListRed2, PartyRed, 1)
}

// CountRows runs a COUNT(*) query and returns the result
func CountRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

// IssueTestToken signs a session token for tests. mutate, if non-nil, can
// adjust the claims before signing.
func IssueTestToken(t *testing.T, role, subject string, mutate func(*auth.Claims)) string {
	t.Helper()
	claims := auth.Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
	if mutate != nil {
		mutate(&claims)
	}
	token, err := auth.IssueToken(TestJWTSecret, claims, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return token
}

// BearerHeader returns the Authorization header for token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
