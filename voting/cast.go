// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/urna/db"
	"github.com/danielhkuo/urna/models"
	"github.com/google/uuid"
)

// Receipt confirms a cast ballot. It names where the ballot was counted,
// never who cast it.
type Receipt struct {
	BallotID        string
	CircuitID       int64
	EstablishmentID int64
	ElectionID      int64
	Observed        bool
}

type Service struct {
	db  *sql.DB
	now func() time.Time
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// CastVote records one ballot for the voter. Preconditions are checked in
// order (circuit resolvable, not yet voted, urn open, ballot detail valid)
// and every write happens in a single transaction. Storage failures are
// reported as ErrTransientStorage with nothing committed.
func (s *Service) CastVote(ctx context.Context, voter Voter, req models.CastVoteRequest) (Receipt, error) {
	if voter.CitizenCC == "" {
		return Receipt{}, ErrCircuitNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Receipt{}, transient(err)
	}
	defer tx.Rollback()

	now := s.now().UTC()

	res, err := resolve(ctx, tx, voter, now)
	if errors.Is(err, ErrCircuitNotFound) {
		return Receipt{}, err
	}
	if err != nil {
		return Receipt{}, transient(err)
	}

	voted, err := hasVoted(ctx, tx, voter.CitizenCC, res.ElectionID)
	if err != nil {
		return Receipt{}, transient(err)
	}
	if voted {
		return Receipt{}, ErrAlreadyVoted
	}

	if res.Status != models.StatusOpen {
		return Receipt{}, ErrCircuitClosed
	}

	if err := validateBallot(ctx, tx, req); err != nil {
		if errors.Is(err, ErrInvalidBallotDetail) {
			return Receipt{}, err
		}
		return Receipt{}, transient(err)
	}

	if err := holdOpenCircuit(ctx, tx, res.CircuitID); err != nil {
		if errors.Is(err, ErrCircuitClosed) {
			return Receipt{}, err
		}
		return Receipt{}, transient(err)
	}

	if err := insertSuffrage(ctx, tx, voter.CitizenCC, res, now); err != nil {
		if db.IsUniqueViolation(err) {
			return Receipt{}, ErrAlreadyVoted
		}
		return Receipt{}, transient(err)
	}

	ballotID := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ballot (id, circuit_id, establishment_id, election_id, kind, observed)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ballotID, res.CircuitID, res.EstablishmentID, res.ElectionID, req.Kind, res.Observed)
	if err != nil {
		return Receipt{}, transient(fmt.Errorf("failed to insert ballot: %w", err))
	}

	if req.Kind == models.KindOrdinary {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ordinary_ballot (ballot_id, list_id, party_id)
			VALUES ($1, $2, $3)
		`, ballotID, *req.ListID, *req.PartyID)
		if err != nil {
			return Receipt{}, transient(fmt.Errorf("failed to insert ballot detail: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return Receipt{}, transient(fmt.Errorf("failed to commit vote: %w", err))
	}

	return Receipt{
		BallotID:        ballotID,
		CircuitID:       res.CircuitID,
		EstablishmentID: res.EstablishmentID,
		ElectionID:      res.ElectionID,
		Observed:        res.Observed,
	}, nil
}

// HasVoted reports whether a suffrage record exists for the citizen
func (s *Service) HasVoted(ctx context.Context, cc string, electionID int64) (bool, error) {
	return hasVoted(ctx, s.db, cc, electionID)
}

// ResolvePreview resolves the voting circuit without writing anything. Login
// uses it to warn the citizen that their ballot will be observed.
func (s *Service) ResolvePreview(ctx context.Context, voter Voter) (Resolution, error) {
	return resolve(ctx, s.db, voter, s.now().UTC())
}

// holdOpenCircuit re-checks the status with a no-op UPDATE so the circuit
// row stays locked until the transaction ends. A close that commits after
// the status was read makes this fail with ErrCircuitClosed, and a close
// that comes later waits for the ballot to commit.
func holdOpenCircuit(ctx context.Context, tx *sql.Tx, circuitID int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE circuit SET status = $1 WHERE id = $2 AND status = $3
	`, models.StatusOpen, circuitID, models.StatusOpen)
	if err != nil {
		return fmt.Errorf("failed to lock circuit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCircuitClosed
	}
	return nil
}

// insertSuffrage is the point where concurrent casts for one citizen are
// serialized: the (citizen_cc, election_id) primary key lets one insert win.
func insertSuffrage(ctx context.Context, tx *sql.Tx, cc string, res Resolution, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO suffrage (citizen_cc, circuit_id, establishment_id, election_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, cc, res.CircuitID, res.EstablishmentID, res.ElectionID, now)
	return err
}

func validateBallot(ctx context.Context, q Queryer, req models.CastVoteRequest) error {
	switch req.Kind {
	case models.KindOrdinary:
		if req.PartyID == nil || req.ListID == nil {
			return fmt.Errorf("%w: ordinary ballot needs party_id and list_id", ErrInvalidBallotDetail)
		}
		var exists int
		err := q.QueryRowContext(ctx, `
			SELECT 1 FROM party_list WHERE id = $1 AND party_id = $2
		`, *req.ListID, *req.PartyID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: list %d does not belong to party %d", ErrInvalidBallotDetail, *req.ListID, *req.PartyID)
		}
		if err != nil {
			return fmt.Errorf("failed to query list: %w", err)
		}
		return nil

	case models.KindBlank, models.KindAnnulled:
		if req.PartyID != nil || req.ListID != nil {
			return fmt.Errorf("%w: %s ballot takes no party or list", ErrInvalidBallotDetail, req.Kind)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBallotDetail, req.Kind)
	}
}

func transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransientStorage, err)
}
