package testsupport

import (
	"context"
	"strings"
	"testing"

	"versereel/internal/config"
	"versereel/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...ledger.Option) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem creates a pending work item at the given position.
func NewItem(t testing.TB, store *ledger.Store, collection string, subunit, item int, text string) *ledger.WorkItem {
	t.Helper()

	words := len(strings.Fields(text))
	created, err := store.CreateWorkItem(context.Background(), ledger.NewItem{
		Position:  ledger.Position{Collection: collection, Subunit: subunit, Item: item},
		Text:      text,
		WordCount: words,
		Duration:  float64(words) / 2.5,
	})
	if err != nil {
		t.Fatalf("store.CreateWorkItem: %v", err)
	}
	return created
}

// MustReady drives an item from pending to ready with a final path.
func MustReady(t testing.TB, store *ledger.Store, id int64, finalPath string) {
	t.Helper()

	ctx := context.Background()
	if err := store.SetStatus(ctx, id, ledger.StatusProcessing); err != nil {
		t.Fatalf("set processing: %v", err)
	}
	if err := store.SetStage(ctx, id, ledger.StageComposition, finalPath); err != nil {
		t.Fatalf("set final path: %v", err)
	}
	if err := store.SetStatus(ctx, id, ledger.StatusReady); err != nil {
		t.Fatalf("set ready: %v", err)
	}
}
