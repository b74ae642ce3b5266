package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/semaphore"
)

// Lease holds the resources acquired for a single stage call.
type Lease struct {
	// ScratchDir is set when a ScratchDir resource is part of the lease.
	ScratchDir string
}

// Resource is acquired for the duration of one stage call.
type Resource interface {
	Acquire(ctx context.Context, lease *Lease) (release func() error, err error)
}

// WithLease acquires resources in order, runs fn, and releases every acquired
// resource in reverse order whether fn succeeds, fails or panics.
func WithLease(ctx context.Context, resources []Resource, fn func(ctx context.Context, lease *Lease) error) (err error) {
	lease := &Lease{}
	releases := make([]func() error, 0, len(resources))
	defer func() {
		var releaseErr error
		for i := len(releases) - 1; i >= 0; i-- {
			releaseErr = errors.Join(releaseErr, releases[i]())
		}
		if err == nil && releaseErr != nil {
			err = fmt.Errorf("release lease: %w", releaseErr)
		}
	}()

	for _, res := range resources {
		release, acquireErr := res.Acquire(ctx, lease)
		if acquireErr != nil {
			return acquireErr
		}
		if release != nil {
			releases = append(releases, release)
		}
	}
	return fn(ctx, lease)
}

// ScratchDir creates a temporary working directory under Parent and removes
// it on release.
type ScratchDir struct {
	Parent string
	Prefix string
}

// Acquire implements Resource.
func (s ScratchDir) Acquire(_ context.Context, lease *Lease) (func() error, error) {
	parent := s.Parent
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch parent: %w", err)
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = "stage"
	}
	dir, err := os.MkdirTemp(parent, prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	lease.ScratchDir = filepath.Clean(dir)
	return func() error { return os.RemoveAll(dir) }, nil
}

// Slot bounds concurrent use of an exclusive device such as a GPU.
type Slot struct {
	sem *semaphore.Weighted
}

// NewSlot returns a Slot admitting n concurrent holders.
func NewSlot(n int64) *Slot {
	if n <= 0 {
		n = 1
	}
	return &Slot{sem: semaphore.NewWeighted(n)}
}

// Acquire implements Resource. It blocks until a slot frees or ctx ends.
func (s *Slot) Acquire(ctx context.Context, _ *Lease) (func() error, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire slot: %w", err)
	}
	return func() error {
		s.sem.Release(1)
		return nil
	}, nil
}
