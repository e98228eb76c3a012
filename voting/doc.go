// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting casts ballots.

# Circuit Resolution

A ballot is recorded at the circuit the citizen is actually voting at:

  - the circuit declared at login (Voter.VotingCircuitID), if any
  - otherwise the citizen's assignment for the active election

The ballot is observed when the citizen has an assignment for that election
and it names a different circuit. A citizen voting at a declared circuit
without any assignment is not observed.

# Casting

	svc := voting.NewService(db)
	receipt, err := svc.CastVote(ctx, voting.Voter{CitizenCC: cc}, req)

Checks run inside the transaction, before any write:

 1. circuit resolvable, else ErrCircuitNotFound
 2. no suffrage for (citizen, election), else ErrAlreadyVoted
 3. circuit open, else ErrCircuitClosed
 4. ordinary ballots name an existing list of the party; blank and
    annulled ballots name neither, else ErrInvalidBallotDetail

Then the suffrage record, the ballot and (for ordinary ballots) the detail
row are written and committed together. The suffrage primary key on
(citizen_cc, election_id) decides concurrent casts: the first insert wins and
the loser gets ErrAlreadyVoted. Any other failure is ErrTransientStorage and
nothing is committed.

Ballot rows carry no citizen reference and no timestamp.
*/
package voting
