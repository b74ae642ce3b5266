// Package ledger persists work items, the sequential cursor, daily statistics
// and the upload schedule in SQLite.
//
// The ledger is the single source of truth for which passages have been
// produced. Natural keys (BOOK_CHAPTER_VERSE) are unique; creating a key twice
// returns services.ErrDuplicateKey and leaves the ledger unchanged. Status
// changes follow pending → processing → ready → uploaded, with failures
// recorded through MarkFailed and returned to pending by ResetForRetry.
//
// A Store is opened explicitly and passed to its consumers; there is no
// package-level instance.
package ledger
