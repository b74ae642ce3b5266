package selector_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"versereel/internal/ledger"
	"versereel/internal/passages"
	"versereel/internal/selector"
	"versereel/internal/services"
	"versereel/internal/testsupport"
)

func baseConstraints() selector.Constraints {
	return selector.Constraints{
		MinWords:     1,
		MaxWords:     50,
		MaxDuration:  60,
		SpeakingRate: 2.5,
	}
}

func sampleCatalog(t *testing.T) *passages.Catalog {
	t.Helper()
	catalog, err := passages.Sample()
	if err != nil {
		t.Fatalf("passages.Sample: %v", err)
	}
	return catalog
}

func newSelector(t *testing.T, catalog *passages.Catalog, constraints selector.Constraints) (*selector.Selector, *ledger.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sel := selector.New(catalog, store, constraints, selector.WithRand(rand.New(rand.NewPCG(7, 11))))
	return sel, store
}

func mustAccept(t *testing.T, result selector.Result) selector.Candidate {
	t.Helper()
	accepted, ok := result.(selector.Accepted)
	if !ok {
		t.Fatalf("expected Accepted, got %#v", result)
	}
	return accepted.Candidate
}

func mustExhaust(t *testing.T, result selector.Result) selector.Exhausted {
	t.Helper()
	exhausted, ok := result.(selector.Exhausted)
	if !ok {
		t.Fatalf("expected Exhausted, got %#v", result)
	}
	return exhausted
}

func TestDurationLimitBoundary(t *testing.T) {
	words := make([]string, 20)
	for i := range words {
		words[i] = "word"
	}
	catalog, err := passages.Parse([]byte("collections:\n  - name: Test\n    chapters:\n      - - \""+strings.Join(words, " ")+"\"\n"), "inline")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ctx := context.Background()

	loose := baseConstraints()
	loose.MaxDuration = 10
	sel, _ := newSelector(t, catalog, loose)
	result, err := sel.Next(ctx, ledger.ModeSequential)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	candidate := mustAccept(t, result)
	if candidate.WordCount != 20 || candidate.Duration != 8.0 {
		t.Fatalf("expected 20 words at 8.0s, got %d words at %v", candidate.WordCount, candidate.Duration)
	}

	tight := baseConstraints()
	tight.MaxDuration = 7
	sel, _ = newSelector(t, catalog, tight)
	result, err = sel.Next(ctx, ledger.ModeSequential)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	exhausted := mustExhaust(t, result)
	if exhausted.Rejections[selector.RejectDuration] != 1 {
		t.Fatalf("expected a duration rejection, got %v", exhausted.Rejections)
	}
}

func TestRandomUnsatisfiableReturnsExhaustedWithoutMutation(t *testing.T) {
	constraints := baseConstraints()
	constraints.MinWords = 30
	constraints.MaxWords = 10
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	before, _ := store.GetCursor(ctx)
	result, err := sel.Next(ctx, ledger.ModeRandom)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if exhausted := mustExhaust(t, result); exhausted.Reason != selector.ExhaustUnsatisfiable {
		t.Fatalf("unexpected exhaust reason %s", exhausted.Reason)
	}

	items, _ := store.List(ctx)
	after, _ := store.GetCursor(ctx)
	if len(items) != 0 || after.Position != before.Position {
		t.Fatalf("ledger mutated: %d items, cursor %s", len(items), after.Position)
	}
}

func TestRandomStopsAfterAttemptBound(t *testing.T) {
	constraints := baseConstraints()
	constraints.MinWords = 1000
	constraints.MaxWords = 2000
	constraints.MaxDuration = 1000
	sel, _ := newSelector(t, sampleCatalog(t), constraints)

	result, err := sel.Next(context.Background(), ledger.ModeRandom)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	exhausted := mustExhaust(t, result)
	if exhausted.Reason != selector.ExhaustAttempts || exhausted.Attempts != 200 {
		t.Fatalf("expected 200 attempts, got %s/%d", exhausted.Reason, exhausted.Attempts)
	}
	if exhausted.Rejections[selector.RejectWordCount] != 200 {
		t.Fatalf("expected every attempt rejected on word count, got %v", exhausted.Rejections)
	}
}

func TestRandomClaimLeavesCursor(t *testing.T) {
	constraints := baseConstraints()
	constraints.Allow = []string{"Proverbs"}
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	result, err := sel.Next(ctx, ledger.ModeRandom)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	candidate := mustAccept(t, result)
	if candidate.Collection != "PROVERBS" || candidate.Mode != ledger.ModeRandom {
		t.Fatalf("unexpected candidate %+v", candidate)
	}
	if _, err := sel.Claim(ctx, candidate); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	cursor, _ := store.GetCursor(ctx)
	if !cursor.IsZero() {
		t.Fatalf("random claim moved cursor to %s", cursor.Position)
	}
	if _, err := sel.Claim(ctx, candidate); !errors.Is(err, services.ErrDuplicateKey) {
		t.Fatalf("expected duplicate on second claim, got %v", err)
	}
}

func TestRandomSkipsExistingKeys(t *testing.T) {
	constraints := baseConstraints()
	constraints.Allow = []string{"Genesis"}
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	for verse := 1; verse <= 4; verse++ {
		testsupport.NewItem(t, store, "GENESIS", 1, verse, "taken")
	}
	result, err := sel.Next(ctx, ledger.ModeRandom)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if candidate := mustAccept(t, result); candidate.Item != 5 {
		t.Fatalf("expected the only free verse, got %s", candidate.Position)
	}
}

func TestSequentialReplayDoesNotMoveCursor(t *testing.T) {
	constraints := baseConstraints()
	constraints.Allow = []string{"John"}
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	first, err := sel.Next(ctx, ledger.ModeSequential)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	again, err := sel.Next(ctx, ledger.ModeSequential)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	a, b := mustAccept(t, first), mustAccept(t, again)
	if a.Position != b.Position || a.NaturalKey() != "JOHN_1_1" {
		t.Fatalf("expected JOHN_1_1 twice, got %s and %s", a.Position, b.Position)
	}
	cursor, _ := store.GetCursor(ctx)
	if !cursor.IsZero() {
		t.Fatalf("Next moved the cursor to %s", cursor.Position)
	}

	if _, err := sel.Claim(ctx, a); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	cursor, _ = store.GetCursor(ctx)
	if cursor.Position != a.Position {
		t.Fatalf("expected cursor at %s, got %s", a.Position, cursor.Position)
	}
}

func TestSequentialSkipsRejectedAndRecordsAccepted(t *testing.T) {
	constraints := baseConstraints()
	constraints.MinWords = 10
	constraints.Allow = []string{"John"}
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	if err := store.SetCursor(ctx, ledger.Position{Collection: "JOHN", Subunit: 1, Item: 1}); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}
	result, err := sel.Next(ctx, ledger.ModeSequential)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	candidate := mustAccept(t, result)
	if candidate.Item != 3 {
		t.Fatalf("expected the 8-word verse 2 to be skipped, got %s", candidate.Position)
	}
	if _, err := sel.Claim(ctx, candidate); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	cursor, _ := store.GetCursor(ctx)
	if cursor.Item != 3 {
		t.Fatalf("cursor should record the accepted verse, got %s", cursor.Position)
	}
}

func TestSequentialNeverRegresses(t *testing.T) {
	constraints := baseConstraints()
	constraints.Allow = []string{"Psalms", "John"}
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	// A key taken outside sequential mode is skipped, not revisited.
	testsupport.NewItem(t, store, "JOHN", 1, 2, "The same was in the beginning with God.")

	order := map[string]int{"PSALMS": 0, "JOHN": 1}
	var last ledger.Position
	claimed := 0
	for {
		result, err := sel.Next(ctx, ledger.ModeSequential)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if exhausted, ok := result.(selector.Exhausted); ok {
			if exhausted.Reason != selector.ExhaustCompleted {
				t.Fatalf("expected completed, got %s", exhausted.Reason)
			}
			break
		}
		candidate := mustAccept(t, result)
		if !last.IsZero() {
			prev := [3]int{order[last.Collection], last.Subunit, last.Item}
			next := [3]int{order[candidate.Collection], candidate.Subunit, candidate.Item}
			if !(next[0] > prev[0] || (next[0] == prev[0] && (next[1] > prev[1] || (next[1] == prev[1] && next[2] > prev[2])))) {
				t.Fatalf("cursor regressed from %s to %s", last, candidate.Position)
			}
		}
		if candidate.NaturalKey() == "JOHN_1_2" {
			t.Fatal("pre-existing key was selected")
		}
		if _, err := sel.Claim(ctx, candidate); err != nil {
			t.Fatalf("Claim failed: %v", err)
		}
		last = candidate.Position
		claimed++
	}
	if claimed != 10 {
		t.Fatalf("expected 6 psalms and 4 free john verses, claimed %d", claimed)
	}
	cursor, _ := store.GetCursor(ctx)
	if cursor.NaturalKey() != "JOHN_1_5" {
		t.Fatalf("expected cursor at the last accepted verse, got %s", cursor.Position)
	}
}

func TestSequentialRestartsWhenCollectionNoLongerAllowed(t *testing.T) {
	constraints := baseConstraints()
	constraints.Allow = []string{"John"}
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	if err := store.SetCursor(ctx, ledger.Position{Collection: "GENESIS", Subunit: 1, Item: 3}); err != nil {
		t.Fatalf("SetCursor failed: %v", err)
	}
	result, err := sel.Next(ctx, ledger.ModeSequential)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if candidate := mustAccept(t, result); candidate.NaturalKey() != "JOHN_1_1" {
		t.Fatalf("expected restart at JOHN_1_1, got %s", candidate.Position)
	}
}

func TestSequentialAdvanceBound(t *testing.T) {
	constraints := baseConstraints()
	constraints.MinWords = 1000
	constraints.MaxWords = 2000
	constraints.MaxDuration = 1000
	constraints.SequentialAdvances = 2
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	result, err := sel.Next(ctx, ledger.ModeSequential)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	exhausted := mustExhaust(t, result)
	if exhausted.Reason != selector.ExhaustAttempts || exhausted.Attempts != 2 {
		t.Fatalf("expected attempt bound of 2, got %s/%d", exhausted.Reason, exhausted.Attempts)
	}
	cursor, _ := store.GetCursor(ctx)
	if !cursor.IsZero() {
		t.Fatalf("rejected positions moved the cursor to %s", cursor.Position)
	}
}

func TestNextUsesCursorModeWhenUnset(t *testing.T) {
	constraints := baseConstraints()
	constraints.Allow = []string{"Genesis"}
	sel, store := newSelector(t, sampleCatalog(t), constraints)
	ctx := context.Background()

	if err := store.SetMode(ctx, ledger.ModeSequential); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}
	result, err := sel.Next(ctx, "")
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	candidate := mustAccept(t, result)
	if candidate.Mode != ledger.ModeSequential || candidate.NaturalKey() != "GENESIS_1_1" {
		t.Fatalf("unexpected candidate %+v", candidate)
	}
	if candidate.Reference() != "Genesis 1:1" {
		t.Fatalf("unexpected reference %q", candidate.Reference())
	}
}

func TestEveryCollectionDenied(t *testing.T) {
	constraints := baseConstraints()
	constraints.Deny = []string{"Genesis", "Psalms", "Proverbs", "John"}
	sel, _ := newSelector(t, sampleCatalog(t), constraints)

	result, err := sel.Next(context.Background(), ledger.ModeRandom)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if exhausted := mustExhaust(t, result); exhausted.Reason != selector.ExhaustNoCollections {
		t.Fatalf("unexpected reason %s", exhausted.Reason)
	}
}
