package stage_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"versereel/internal/stage"
)

type recordingResource struct {
	name     string
	log      *[]string
	failWith error
}

func (r recordingResource) Acquire(context.Context, *stage.Lease) (func() error, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	*r.log = append(*r.log, "acquire "+r.name)
	return func() error {
		*r.log = append(*r.log, "release "+r.name)
		return nil
	}, nil
}

func TestWithLeaseReleasesInReverseOrderOnSuccess(t *testing.T) {
	var log []string
	resources := []stage.Resource{
		recordingResource{name: "a", log: &log},
		recordingResource{name: "b", log: &log},
	}
	err := stage.WithLease(context.Background(), resources, func(context.Context, *stage.Lease) error {
		log = append(log, "run")
		return nil
	})
	if err != nil {
		t.Fatalf("WithLease failed: %v", err)
	}
	want := []string{"acquire a", "acquire b", "run", "release b", "release a"}
	if len(log) != len(want) {
		t.Fatalf("unexpected sequence %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("step %d = %q, want %q (%v)", i, log[i], want[i], log)
		}
	}
}

func TestWithLeaseReleasesOnFailure(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	err := stage.WithLease(context.Background(), []stage.Resource{recordingResource{name: "a", log: &log}},
		func(context.Context, *stage.Lease) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected stage error, got %v", err)
	}
	if len(log) != 2 || log[1] != "release a" {
		t.Fatalf("resource not released: %v", log)
	}
}

func TestWithLeaseReleasesAcquiredWhenLaterAcquireFails(t *testing.T) {
	var log []string
	acquireErr := errors.New("no gpu")
	ran := false
	err := stage.WithLease(context.Background(), []stage.Resource{
		recordingResource{name: "a", log: &log},
		recordingResource{name: "b", log: &log, failWith: acquireErr},
	}, func(context.Context, *stage.Lease) error {
		ran = true
		return nil
	})
	if !errors.Is(err, acquireErr) || ran {
		t.Fatalf("expected acquire failure without running, err=%v ran=%v", err, ran)
	}
	if len(log) != 2 || log[1] != "release a" {
		t.Fatalf("expected first resource released, got %v", log)
	}
}

func TestWithLeaseReleasesOnPanic(t *testing.T) {
	var log []string
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic to propagate")
		}
		if len(log) != 2 || log[1] != "release a" {
			t.Fatalf("resource not released on panic: %v", log)
		}
	}()
	_ = stage.WithLease(context.Background(), []stage.Resource{recordingResource{name: "a", log: &log}},
		func(context.Context, *stage.Lease) error { panic("stage crashed") })
}

func TestScratchDirRemovedAfterLease(t *testing.T) {
	parent := t.TempDir()
	var dir string
	err := stage.WithLease(context.Background(), []stage.Resource{stage.ScratchDir{Parent: parent, Prefix: "align"}},
		func(_ context.Context, lease *stage.Lease) error {
			dir = lease.ScratchDir
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				t.Fatalf("scratch dir missing during lease: %v", err)
			}
			return nil
		})
	if err != nil {
		t.Fatalf("WithLease failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir removed, stat err=%v", err)
	}
}

func TestSlotBlocksUntilReleased(t *testing.T) {
	slot := stage.NewSlot(1)
	release, err := slot.Acquire(context.Background(), &stage.Lease{})
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := slot.Acquire(ctx, &stage.Lease{}); err == nil {
		t.Fatal("expected second acquire to fail while held")
	}
	if err := release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := slot.Acquire(context.Background(), &stage.Lease{}); err != nil {
		t.Fatalf("expected acquire after release: %v", err)
	}
}
