// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally aggregates ballots into results.

# Circuit Results

	res, err := tally.CircuitResults(ctx, db, circuitID)

Results stay sealed (ErrResultsSealed) while the circuit's urn is open. For a
closed circuit the result holds:

  - summary: total, ordinary, blank, annulled and observed ballots
  - percentages of the total for each of those counts
  - by_list: lists with at least one vote, most voted first
  - by_party: parties plus "Blank votes" and "Annulled votes" rows, sorted
    by votes
  - by_candidate: every candidate of a voted list, credited with the votes
    of that list

Percentages are rounded to two decimals and are 0 when there are no ballots.

# Election Results

	res, err := tally.ElectionResults(ctx, db, electionID)

Participation is voters (suffrage records) over registered citizens. Circuit
counts show how many urns are still open. Final results, with the winning
list, candidates per list and per-department participation, are only
attached when every circuit of the election is closed.
*/
package tally
