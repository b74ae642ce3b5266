package testsupport

import (
	"context"
	"sync"

	"versereel/internal/notifications"
)

// Notification is one event captured by RecordingNotifier.
type Notification struct {
	Event   notifications.Event
	Payload notifications.Payload
}

// RecordingNotifier captures published events in memory.
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Notification
	err    error
}

// NewRecordingNotifier returns a notifier that records every event.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// FailWith makes subsequent Publish calls record and then return err.
func (r *RecordingNotifier) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Publish implements notifications.Service.
func (r *RecordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Notification{Event: event, Payload: payload})
	return r.err
}

// Events returns the recorded notifications of the given kind, or all of
// them when no kind is given.
func (r *RecordingNotifier) Events(kinds ...notifications.Event) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.events {
		if len(kinds) == 0 || containsEvent(kinds, n.Event) {
			out = append(out, n)
		}
	}
	return out
}

func containsEvent(kinds []notifications.Event, event notifications.Event) bool {
	for _, k := range kinds {
		if k == event {
			return true
		}
	}
	return false
}
