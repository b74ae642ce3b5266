// Package scheduler runs the daemon's periodic jobs from one cooperative loop.
//
// Jobs are registered with a Trigger (Every, DailyAt or WeeklyAt) evaluated
// in a single timezone. Only one job runs at a time. Each run gets its own
// correlation id, recovers from panics and records failures in its JobStats
// without affecting later triggers.
package scheduler
