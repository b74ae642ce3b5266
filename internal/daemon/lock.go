package daemon

import (
	"fmt"

	"github.com/gofrs/flock"

	"versereel/internal/services"
)

// ErrAlreadyRunning is returned when another process holds the pipeline lock.
var ErrAlreadyRunning = fmt.Errorf("another versereel process holds the pipeline lock: %w", services.ErrBusy)

// PipelineLock serializes ledger-mutating work across processes. The
// scheduler holds it for its whole run and CLI commands that drive the
// pipeline hold it for theirs.
type PipelineLock struct {
	path string
	fl   *flock.Flock
}

// NewPipelineLock returns an unheld lock on path.
func NewPipelineLock(path string) *PipelineLock {
	return &PipelineLock{path: path, fl: flock.New(path)}
}

// TryAcquire takes the lock without waiting. It returns ErrAlreadyRunning
// when another process holds it.
func (l *PipelineLock) TryAcquire() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	return nil
}

// Release drops the lock.
func (l *PipelineLock) Release() error {
	return l.fl.Unlock()
}

// Path returns the lock file location.
func (l *PipelineLock) Path() string {
	return l.path
}
