// Package preflight provides readiness checks for the directories, external
// binaries, catalog, credentials and ledger that versereel depends on.
//
// The doctor command prints every result. The scheduler daemon runs RunAll
// at startup and refuses to start when a non-optional check fails.
package preflight
