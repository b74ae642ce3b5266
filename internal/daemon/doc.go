// Package daemon runs the long-lived versereel scheduler process.
//
// It holds the flock-based pipeline lock next to the ledger for its whole run
// (CLI commands that drive the pipeline take the same lock), recovers items
// interrupted by a previous run, and registers the periodic jobs
// (generation, uploads, retries, cleanup and database maintenance) on a
// scheduler.Scheduler. Each job body delegates to workflow.Manager,
// storage.Housekeeper or ledger.Store; the daemon only owns lifecycle and
// wiring.
package daemon
