// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import "errors"

var (
	// ErrAlreadyVoted means a suffrage record exists for the citizen in the
	// election. Not retryable.
	ErrAlreadyVoted = errors.New("citizen already voted in this election")

	// ErrCircuitClosed means the resolved circuit is not accepting ballots.
	// Retryable once the president opens the urn.
	ErrCircuitClosed = errors.New("urn is closed")

	// ErrCircuitNotFound means no circuit could be resolved for the citizen:
	// the declared circuit does not exist, or there is no assignment.
	ErrCircuitNotFound = errors.New("voting circuit not found")

	// ErrInvalidBallotDetail means the party/list reference does not match
	// the ballot kind, or names a list the party does not have.
	ErrInvalidBallotDetail = errors.New("invalid ballot detail")

	// ErrTransientStorage wraps any storage failure. Nothing was committed.
	ErrTransientStorage = errors.New("temporary storage failure")

	ErrNoActiveElection = errors.New("no active election")
)
