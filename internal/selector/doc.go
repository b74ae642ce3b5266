// Package selector chooses the next passage to turn into a work item.
//
// Random mode samples allowed collections uniformly and is bounded by an
// attempt limit. Sequential mode walks forward from the ledger cursor and is
// bounded by an advance limit per call. Both return a Result that is either
// Accepted or Exhausted; Next never mutates the ledger. Claim creates the
// work item and, for sequential candidates, moves the cursor to the accepted
// position in the same transaction.
package selector
