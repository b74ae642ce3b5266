package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"versereel/internal/logging"
	"versereel/internal/services"
)

// Func is the body of a scheduled job.
type Func func(ctx context.Context) error

// JobStats describes a registered job and its run history.
type JobStats struct {
	Name         string
	Trigger      string
	Runs         int
	Failures     int
	LastRun      time.Time
	LastDuration time.Duration
	LastError    string
	NextRun      time.Time
}

type job struct {
	name    string
	trigger Trigger
	run     Func
	order   int
	next    time.Time
	stats   JobStats
}

// Scheduler runs registered jobs from a single loop. A running job blocks
// every other trigger; triggers that came due meanwhile fire once when it
// returns.
type Scheduler struct {
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	jobs []*job
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs an empty Scheduler.
func New(logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: logging.NewComponentLogger(logger, "scheduler"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a job. Its first run is the trigger's next fire time after now.
func (s *Scheduler) Add(name string, trigger Trigger, run Func) error {
	name = strings.TrimSpace(name)
	if name == "" || trigger == nil || run == nil {
		return services.Wrap(services.ErrValidation, "scheduler", "add job", "name, trigger and func are required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.jobs {
		if existing.name == name {
			return services.Wrap(services.ErrValidation, "scheduler", "add job", fmt.Sprintf("duplicate job %q", name), nil)
		}
	}
	next := trigger.Next(s.now())
	s.jobs = append(s.jobs, &job{
		name:    name,
		trigger: trigger,
		run:     run,
		order:   len(s.jobs),
		next:    next,
		stats:   JobStats{Name: name, Trigger: trigger.String(), NextRun: next},
	})
	return nil
}

// Stats returns a snapshot of every job in registration order.
func (s *Scheduler) Stats() []JobStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStats, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.stats)
	}
	return out
}

// Run loops until ctx is cancelled, sleeping until the earliest trigger and
// running whatever is due. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, st := range s.Stats() {
		s.logger.Info("job registered",
			logging.String(logging.FieldJob, st.Name),
			logging.String("trigger", st.Trigger),
			logging.Time("next_run", st.NextRun),
		)
	}
	for {
		wait, ok := s.untilNext()
		if !ok {
			<-ctx.Done()
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		s.RunDue(ctx)
	}
}

func (s *Scheduler) untilNext() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return 0, false
	}
	earliest := s.jobs[0].next
	for _, j := range s.jobs[1:] {
		if j.next.Before(earliest) {
			earliest = j.next
		}
	}
	wait := earliest.Sub(s.now())
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// RunDue runs every job whose next fire time is at or before now, earliest
// first, one at a time. It returns the number of jobs run.
func (s *Scheduler) RunDue(ctx context.Context) int {
	now := s.now()
	s.mu.Lock()
	due := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if !j.next.After(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()
	sort.SliceStable(due, func(a, b int) bool {
		if due[a].next.Equal(due[b].next) {
			return due[a].order < due[b].order
		}
		return due[a].next.Before(due[b].next)
	})

	ran := 0
	for _, j := range due {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, j)
		ran++
	}
	return ran
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	runID := uuid.NewString()
	jobCtx := services.WithRunID(services.WithJob(ctx, j.name), runID)
	logger := logging.WithContext(jobCtx, s.logger)

	logger.Info("job started", logging.Event("job_start"), logging.String("trigger", j.trigger.String()))
	started := s.now()
	err := invoke(jobCtx, logger, j.run)
	finished := s.now()
	elapsed := finished.Sub(started)
	interrupted := err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())

	s.mu.Lock()
	j.next = j.trigger.Next(finished)
	j.stats.Runs++
	j.stats.LastRun = started
	j.stats.LastDuration = elapsed
	j.stats.NextRun = j.next
	j.stats.LastError = ""
	if err != nil && !interrupted {
		j.stats.Failures++
		j.stats.LastError = err.Error()
	}
	next := j.next
	s.mu.Unlock()

	switch {
	case interrupted:
		logger.Info("job interrupted by shutdown", logging.Event("job_interrupted"))
	case err != nil:
		wrapped := services.Wrap(services.ErrSchedulerJob, j.name, "run", "", err)
		attrs := []logging.Attr{
			logging.Error(wrapped),
			logging.Duration("elapsed", elapsed),
			logging.Time("next_run", next),
			logging.String(logging.FieldImpact, "job will run again at its next trigger"),
		}
		if hint := services.Hint(err); hint != "" {
			attrs = append(attrs, logging.String(logging.FieldErrorHint, hint))
		}
		logging.ErrorWithContext(logger, "job failed", "job_failure", attrs...)
	default:
		logger.Info("job completed",
			logging.Event("job_complete"),
			logging.Duration("elapsed", elapsed),
			logging.Time("next_run", next),
		)
	}
}

func invoke(ctx context.Context, logger *slog.Logger, run Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked",
				logging.String("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return run(ctx)
}
