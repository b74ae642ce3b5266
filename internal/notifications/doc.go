// Package notifications publishes pipeline events to ntfy.
//
// NewService returns a no-op publisher when no topic is configured, so
// callers can publish unconditionally. Each event kind can be muted in the
// [notifications] config section.
package notifications
