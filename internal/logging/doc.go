// Package logging builds the slog loggers used by the CLI and the scheduler
// daemon.
//
// Console output is a compact human format (one header line plus highlighted
// fields); the daily log file under paths.log_dir receives JSON. WithContext
// stamps item ids, stages, job names and correlation ids that were attached to
// the context through the services helpers, so stage code never repeats them.
package logging
