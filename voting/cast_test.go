// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/urna/db"
	"github.com/danielhkuo/urna/models"
	"github.com/danielhkuo/urna/testutil"
)

func int64Ptr(v int64) *int64 { return &v }

func ordinary(partyID, listID int64) models.CastVoteRequest {
	return models.CastVoteRequest{Kind: models.KindOrdinary, PartyID: &partyID, ListID: &listID}
}

func setup(t *testing.T) (*sql.DB, *Service) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	testutil.SeedElection(t, conn)
	return conn, NewService(conn)
}

func countVotes(t *testing.T, conn *sql.DB, cc string) (suffrages, ballots, details int) {
	t.Helper()
	suffrages = testutil.CountRows(t, conn, `SELECT COUNT(*) FROM suffrage WHERE citizen_cc = $1`, cc)
	ballots = testutil.CountRows(t, conn, `SELECT COUNT(*) FROM ballot`)
	details = testutil.CountRows(t, conn, `SELECT COUNT(*) FROM ordinary_ballot`)
	return suffrages, ballots, details
}

func TestCastVote_ObservedAtDeclaredCircuit(t *testing.T) {
	conn, svc := setup(t)

	voter := Voter{CitizenCC: testutil.CitizenAna, VotingCircuitID: int64Ptr(testutil.CircuitAway)}
	receipt, err := svc.CastVote(context.Background(), voter, ordinary(testutil.PartyBlue, testutil.ListBlue1))
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	if !receipt.Observed {
		t.Error("Expected ballot to be observed")
	}
	if receipt.CircuitID != testutil.CircuitAway {
		t.Errorf("Expected circuit %d, got %d", testutil.CircuitAway, receipt.CircuitID)
	}
	if receipt.EstablishmentID != testutil.EstLiceo {
		t.Errorf("Expected establishment %d, got %d", testutil.EstLiceo, receipt.EstablishmentID)
	}
	if receipt.ElectionID != testutil.ElectionID {
		t.Errorf("Expected election %d, got %d", testutil.ElectionID, receipt.ElectionID)
	}
	if receipt.BallotID == "" {
		t.Error("Expected a ballot ID")
	}

	var circuitID int64
	var kind string
	var observed bool
	err = conn.QueryRow(`SELECT circuit_id, kind, observed FROM ballot WHERE id = $1`, receipt.BallotID).
		Scan(&circuitID, &kind, &observed)
	if err != nil {
		t.Fatalf("Failed to read ballot: %v", err)
	}
	if circuitID != testutil.CircuitAway || kind != models.KindOrdinary || !observed {
		t.Errorf("Unexpected ballot row: circuit=%d kind=%s observed=%v", circuitID, kind, observed)
	}

	var listID, partyID int64
	err = conn.QueryRow(`SELECT list_id, party_id FROM ordinary_ballot WHERE ballot_id = $1`, receipt.BallotID).
		Scan(&listID, &partyID)
	if err != nil {
		t.Fatalf("Failed to read ballot detail: %v", err)
	}
	if listID != testutil.ListBlue1 || partyID != testutil.PartyBlue {
		t.Errorf("Unexpected detail: list=%d party=%d", listID, partyID)
	}

	var suffrageCircuit int64
	err = conn.QueryRow(`SELECT circuit_id FROM suffrage WHERE citizen_cc = $1`, testutil.CitizenAna).Scan(&suffrageCircuit)
	if err != nil {
		t.Fatalf("Failed to read suffrage: %v", err)
	}
	if suffrageCircuit != testutil.CircuitAway {
		t.Errorf("Expected suffrage at circuit %d, got %d", testutil.CircuitAway, suffrageCircuit)
	}
}

func TestCastVote_SecondAttemptRejected(t *testing.T) {
	conn, svc := setup(t)
	ctx := context.Background()
	voter := Voter{CitizenCC: testutil.CitizenAna, VotingCircuitID: int64Ptr(testutil.CircuitAway)}

	if _, err := svc.CastVote(ctx, voter, ordinary(testutil.PartyBlue, testutil.ListBlue1)); err != nil {
		t.Fatalf("First CastVote() error = %v", err)
	}

	// Same citizen, different circuit and kind
	_, err := svc.CastVote(ctx, Voter{CitizenCC: testutil.CitizenAna}, models.CastVoteRequest{Kind: models.KindBlank})
	if !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("Expected ErrAlreadyVoted, got %v", err)
	}

	suffrages, ballots, details := countVotes(t, conn, testutil.CitizenAna)
	if suffrages != 1 || ballots != 1 || details != 1 {
		t.Errorf("Expected 1/1/1 rows, got suffrage=%d ballot=%d detail=%d", suffrages, ballots, details)
	}
}

func TestCastVote_BlankAtAssignedCircuit(t *testing.T) {
	conn, svc := setup(t)

	receipt, err := svc.CastVote(context.Background(), Voter{CitizenCC: testutil.CitizenAna}, models.CastVoteRequest{Kind: models.KindBlank})
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if receipt.Observed {
		t.Error("Ballot at the assigned circuit should not be observed")
	}
	if receipt.CircuitID != testutil.CircuitHome {
		t.Errorf("Expected circuit %d, got %d", testutil.CircuitHome, receipt.CircuitID)
	}

	suffrages, ballots, details := countVotes(t, conn, testutil.CitizenAna)
	if suffrages != 1 || ballots != 1 || details != 0 {
		t.Errorf("Expected 1/1/0 rows, got suffrage=%d ballot=%d detail=%d", suffrages, ballots, details)
	}
}

func TestCastVote_Observed(t *testing.T) {
	testCases := []struct {
		name         string
		cc           string
		override     *int64
		wantCircuit  int64
		wantObserved bool
	}{
		{"assigned, no declaration", testutil.CitizenAna, nil, testutil.CircuitHome, false},
		{"declared own circuit", testutil.CitizenAna, int64Ptr(testutil.CircuitHome), testutil.CircuitHome, false},
		{"declared other circuit", testutil.CitizenAna, int64Ptr(testutil.CircuitAway), testutil.CircuitAway, true},
		{"no assignment, declared circuit", testutil.CitizenDiego, int64Ptr(testutil.CircuitAway), testutil.CircuitAway, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, svc := setup(t)

			receipt, err := svc.CastVote(context.Background(), Voter{CitizenCC: tc.cc, VotingCircuitID: tc.override}, models.CastVoteRequest{Kind: models.KindAnnulled})
			if err != nil {
				t.Fatalf("CastVote() error = %v", err)
			}
			if receipt.CircuitID != tc.wantCircuit {
				t.Errorf("Expected circuit %d, got %d", tc.wantCircuit, receipt.CircuitID)
			}
			if receipt.Observed != tc.wantObserved {
				t.Errorf("Expected observed %v, got %v", tc.wantObserved, receipt.Observed)
			}

			stored := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM ballot WHERE observed = $1`, tc.wantObserved)
			if stored != 1 {
				t.Errorf("Expected one ballot with observed=%v, got %d", tc.wantObserved, stored)
			}
		})
	}
}

func TestCastVote_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		prepare func(t *testing.T, conn *sql.DB)
		voter   Voter
		req     models.CastVoteRequest
		wantErr error
	}{
		{
			name:    "closed circuit",
			voter:   Voter{CitizenCC: testutil.CitizenCarla},
			req:     models.CastVoteRequest{Kind: models.KindBlank},
			wantErr: ErrCircuitClosed,
		},
		{
			name:    "declared closed circuit",
			voter:   Voter{CitizenCC: testutil.CitizenAna, VotingCircuitID: int64Ptr(testutil.CircuitClosed)},
			req:     ordinary(testutil.PartyBlue, testutil.ListBlue1),
			wantErr: ErrCircuitClosed,
		},
		{
			name:    "declared circuit does not exist",
			voter:   Voter{CitizenCC: testutil.CitizenAna, VotingCircuitID: int64Ptr(999)},
			req:     models.CastVoteRequest{Kind: models.KindBlank},
			wantErr: ErrCircuitNotFound,
		},
		{
			name:    "no assignment and no declaration",
			voter:   Voter{CitizenCC: testutil.CitizenDiego},
			req:     models.CastVoteRequest{Kind: models.KindBlank},
			wantErr: ErrCircuitNotFound,
		},
		{
			name:    "empty citizen",
			voter:   Voter{},
			req:     models.CastVoteRequest{Kind: models.KindBlank},
			wantErr: ErrCircuitNotFound,
		},
		{
			name:    "ordinary without list",
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     models.CastVoteRequest{Kind: models.KindOrdinary, PartyID: int64Ptr(testutil.PartyBlue)},
			wantErr: ErrInvalidBallotDetail,
		},
		{
			name:    "ordinary without party",
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     models.CastVoteRequest{Kind: models.KindOrdinary, ListID: int64Ptr(testutil.ListBlue1)},
			wantErr: ErrInvalidBallotDetail,
		},
		{
			name:    "list of another party",
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     ordinary(testutil.PartyBlue, testutil.ListRed2),
			wantErr: ErrInvalidBallotDetail,
		},
		{
			name:    "unknown list",
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     ordinary(testutil.PartyBlue, 42),
			wantErr: ErrInvalidBallotDetail,
		},
		{
			name:    "blank with party",
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     models.CastVoteRequest{Kind: models.KindBlank, PartyID: int64Ptr(testutil.PartyBlue)},
			wantErr: ErrInvalidBallotDetail,
		},
		{
			name:    "annulled with list",
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     models.CastVoteRequest{Kind: models.KindAnnulled, ListID: int64Ptr(testutil.ListBlue1)},
			wantErr: ErrInvalidBallotDetail,
		},
		{
			name:    "unknown kind",
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     models.CastVoteRequest{Kind: "spoiled"},
			wantErr: ErrInvalidBallotDetail,
		},
		{
			name: "already voted wins over closed urn",
			prepare: func(t *testing.T, conn *sql.DB) {
				testutil.InsertSuffrage(t, conn, testutil.CitizenCarla, testutil.CircuitClosed)
			},
			voter:   Voter{CitizenCC: testutil.CitizenCarla},
			req:     models.CastVoteRequest{Kind: models.KindBlank},
			wantErr: ErrAlreadyVoted,
		},
		{
			name:    "closed urn wins over bad detail",
			voter:   Voter{CitizenCC: testutil.CitizenCarla},
			req:     models.CastVoteRequest{Kind: "spoiled"},
			wantErr: ErrCircuitClosed,
		},
		{
			name: "already voted wins over bad detail",
			prepare: func(t *testing.T, conn *sql.DB) {
				testutil.InsertSuffrage(t, conn, testutil.CitizenAna, testutil.CircuitHome)
			},
			voter:   Voter{CitizenCC: testutil.CitizenAna},
			req:     ordinary(testutil.PartyBlue, testutil.ListRed2),
			wantErr: ErrAlreadyVoted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, svc := setup(t)
			if tc.prepare != nil {
				tc.prepare(t, conn)
			}
			suffragesBefore := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM suffrage`)

			_, err := svc.CastVote(context.Background(), tc.voter, tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Expected %v, got %v", tc.wantErr, err)
			}

			if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM suffrage`); n != suffragesBefore {
				t.Errorf("Expected %d suffrage rows, got %d", suffragesBefore, n)
			}
			if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM ballot`); n != 0 {
				t.Errorf("Expected no ballots, got %d", n)
			}
		})
	}
}

func TestCastVote_NoActiveElection(t *testing.T) {
	_, svc := setup(t)
	svc.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	_, err := svc.CastVote(context.Background(), Voter{CitizenCC: testutil.CitizenAna}, models.CastVoteRequest{Kind: models.KindBlank})
	if !errors.Is(err, ErrCircuitNotFound) {
		t.Fatalf("Expected ErrCircuitNotFound, got %v", err)
	}
}

func TestCastVote_ConcurrentSameCitizen(t *testing.T) {
	conn, svc := setup(t)

	const attempts = 20
	var wg sync.WaitGroup
	var successes, alreadyVoted, other atomic.Int32

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := models.CastVoteRequest{Kind: models.KindBlank}
			if i%2 == 0 {
				req = ordinary(testutil.PartyRed, testutil.ListRed2)
			}
			_, err := svc.CastVote(context.Background(), Voter{CitizenCC: testutil.CitizenBruno}, req)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrAlreadyVoted):
				alreadyVoted.Add(1)
			default:
				other.Add(1)
				t.Errorf("Unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes.Load() != 1 {
		t.Errorf("Expected exactly 1 success, got %d", successes.Load())
	}
	if alreadyVoted.Load() != attempts-1 {
		t.Errorf("Expected %d already-voted errors, got %d", attempts-1, alreadyVoted.Load())
	}

	suffrages, ballots, _ := countVotes(t, conn, testutil.CitizenBruno)
	if suffrages != 1 || ballots != 1 {
		t.Errorf("Expected one suffrage and one ballot, got %d and %d", suffrages, ballots)
	}
}

func TestCastVote_ConcurrentDifferentCitizens(t *testing.T) {
	conn, svc := setup(t)

	citizens := []string{testutil.CitizenAna, testutil.CitizenBruno, testutil.CitizenElena, testutil.CitizenDiego}
	var wg sync.WaitGroup
	var failures atomic.Int32

	for _, cc := range citizens {
		wg.Add(1)
		go func(cc string) {
			defer wg.Done()
			voter := Voter{CitizenCC: cc}
			if cc == testutil.CitizenDiego {
				voter.VotingCircuitID = int64Ptr(testutil.CircuitHome)
			}
			if _, err := svc.CastVote(context.Background(), voter, models.CastVoteRequest{Kind: models.KindBlank}); err != nil {
				failures.Add(1)
				t.Errorf("CastVote(%s) error = %v", cc, err)
			}
		}(cc)
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("Expected no failures, got %d", failures.Load())
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM ballot`); n != len(citizens) {
		t.Errorf("Expected %d ballots, got %d", len(citizens), n)
	}
}

func TestInsertSuffrage_UniqueViolation(t *testing.T) {
	conn, _ := setup(t)
	ctx := context.Background()

	res := Resolution{CircuitID: testutil.CircuitHome, EstablishmentID: testutil.EstSchool, ElectionID: testutil.ElectionID}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	defer tx.Rollback()

	if err := insertSuffrage(ctx, tx, testutil.CitizenAna, res, time.Now().UTC()); err != nil {
		t.Fatalf("First insertSuffrage() error = %v", err)
	}

	// A racing cast that passed the pre-check lands here
	res.CircuitID = testutil.CircuitAway
	res.EstablishmentID = testutil.EstLiceo
	err = insertSuffrage(ctx, tx, testutil.CitizenAna, res, time.Now().UTC())
	if err == nil {
		t.Fatal("Expected second suffrage insert to fail")
	}
	if !db.IsUniqueViolation(err) {
		t.Errorf("Expected unique violation, got %v", err)
	}
}

func TestCastVote_WriteFailureRollsBack(t *testing.T) {
	conn, svc := setup(t)

	if _, err := conn.Exec(`DROP TABLE ordinary_ballot`); err != nil {
		t.Fatalf("Failed to drop table: %v", err)
	}

	_, err := svc.CastVote(context.Background(), Voter{CitizenCC: testutil.CitizenAna}, ordinary(testutil.PartyBlue, testutil.ListBlue1))
	if !errors.Is(err, ErrTransientStorage) {
		t.Fatalf("Expected ErrTransientStorage, got %v", err)
	}

	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM suffrage`); n != 0 {
		t.Errorf("Expected suffrage to be rolled back, got %d rows", n)
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM ballot`); n != 0 {
		t.Errorf("Expected ballot to be rolled back, got %d rows", n)
	}

	// Nothing was committed, so the citizen can retry a blank vote
	if _, err := svc.CastVote(context.Background(), Voter{CitizenCC: testutil.CitizenAna}, models.CastVoteRequest{Kind: models.KindBlank}); err != nil {
		t.Errorf("Retry after rollback error = %v", err)
	}
}

func TestCastVote_CancelledContext(t *testing.T) {
	conn, svc := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CastVote(ctx, Voter{CitizenCC: testutil.CitizenAna}, models.CastVoteRequest{Kind: models.KindBlank})
	if !errors.Is(err, ErrTransientStorage) {
		t.Fatalf("Expected ErrTransientStorage, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM suffrage`); n != 0 {
		t.Errorf("Expected no suffrage rows, got %d", n)
	}
}

func TestHasVoted(t *testing.T) {
	conn, svc := setup(t)
	ctx := context.Background()

	voted, err := svc.HasVoted(ctx, testutil.CitizenAna, testutil.ElectionID)
	if err != nil {
		t.Fatalf("HasVoted() error = %v", err)
	}
	if voted {
		t.Error("Expected citizen not to have voted yet")
	}

	testutil.InsertSuffrage(t, conn, testutil.CitizenAna, testutil.CircuitHome)

	voted, err = svc.HasVoted(ctx, testutil.CitizenAna, testutil.ElectionID)
	if err != nil {
		t.Fatalf("HasVoted() error = %v", err)
	}
	if !voted {
		t.Error("Expected citizen to have voted")
	}
}

func TestResolvePreview(t *testing.T) {
	conn, svc := setup(t)
	ctx := context.Background()

	res, err := svc.ResolvePreview(ctx, Voter{CitizenCC: testutil.CitizenAna, VotingCircuitID: int64Ptr(testutil.CircuitAway)})
	if err != nil {
		t.Fatalf("ResolvePreview() error = %v", err)
	}
	if res.CircuitID != testutil.CircuitAway || !res.Observed {
		t.Errorf("Unexpected resolution: %+v", res)
	}
	if res.AssignedCircuitID == nil || *res.AssignedCircuitID != testutil.CircuitHome {
		t.Errorf("Expected assigned circuit %d, got %v", testutil.CircuitHome, res.AssignedCircuitID)
	}
	if res.Status != models.StatusOpen {
		t.Errorf("Expected status open, got %s", res.Status)
	}

	res, err = svc.ResolvePreview(ctx, Voter{CitizenCC: testutil.CitizenDiego, VotingCircuitID: int64Ptr(testutil.CircuitHome)})
	if err != nil {
		t.Fatalf("ResolvePreview() error = %v", err)
	}
	if res.AssignedCircuitID != nil || res.Observed {
		t.Errorf("Unassigned citizen should not be observed: %+v", res)
	}

	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM suffrage`); n != 0 {
		t.Errorf("ResolvePreview wrote %d suffrage rows", n)
	}
}

func TestActiveElection(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := ActiveElection(ctx, conn, now); !errors.Is(err, ErrNoActiveElection) {
		t.Fatalf("Expected ErrNoActiveElection on empty database, got %v", err)
	}

	testutil.CreateElection(t, conn, 1, "Pasada", now.Add(-72*time.Hour), now.Add(-48*time.Hour))
	testutil.CreateElection(t, conn, 2, "Nacionales", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	testutil.CreateElection(t, conn, 3, "Balotaje", now.Add(-time.Hour), now.Add(time.Hour))
	testutil.CreateElection(t, conn, 4, "Futura", now.Add(48*time.Hour), now.Add(72*time.Hour))

	e, err := ActiveElection(ctx, conn, now)
	if err != nil {
		t.Fatalf("ActiveElection() error = %v", err)
	}
	if e.ID != 3 {
		t.Errorf("Expected latest-started election 3, got %d (%s)", e.ID, e.Name)
	}
}

func TestHoldOpenCircuit(t *testing.T) {
	testCases := []struct {
		name        string
		circuitID   int64
		closeFirst  bool
		expectedErr error
	}{
		{"open circuit", testutil.CircuitHome, false, nil},
		{"closed circuit", testutil.CircuitClosed, false, ErrCircuitClosed},
		{"closed after the status was read", testutil.CircuitHome, true, ErrCircuitClosed},
		{"unknown circuit", 999, false, ErrCircuitClosed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, _ := setup(t)
			ctx := context.Background()

			tx, err := conn.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("BeginTx() error = %v", err)
			}
			defer tx.Rollback()

			res, err := resolve(ctx, tx, Voter{CitizenCC: testutil.CitizenAna, VotingCircuitID: int64Ptr(tc.circuitID)}, time.Now())
			if err == nil && tc.closeFirst {
				if res.Status != models.StatusOpen {
					t.Fatalf("Expected open circuit before the close, got %q", res.Status)
				}
				// What a READ COMMITTED update sees once a concurrent close commits
				if _, err := tx.ExecContext(ctx, `UPDATE circuit SET status = $1 WHERE id = $2`, models.StatusClosed, tc.circuitID); err != nil {
					t.Fatalf("Failed to close circuit: %v", err)
				}
			}

			err = holdOpenCircuit(ctx, tx, tc.circuitID)
			if !errors.Is(err, tc.expectedErr) {
				t.Fatalf("holdOpenCircuit() error = %v, want %v", err, tc.expectedErr)
			}
			if tc.expectedErr != nil {
				return
			}

			var status string
			if err := tx.QueryRowContext(ctx, `SELECT status FROM circuit WHERE id = $1`, tc.circuitID).Scan(&status); err != nil {
				t.Fatalf("Failed to read status: %v", err)
			}
			if status != models.StatusOpen {
				t.Errorf("Expected status to stay open, got %q", status)
			}
		})
	}
}
