// Package scheduler runs the periodic maintenance jobs: anchor
// reconciliation and the certificate expiry sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"certus/pkg/requestcontext"
)

// JobFunc does one pass and reports how many items it handled.
type JobFunc func(ctx context.Context) (int, error)

type job struct {
	name string
	spec string
	fn   JobFunc
}

// Scheduler runs jobs on cron specs. A run that is still going when its
// next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[string]job
	ctx  context.Context
}

func New(logger *slog.Logger) *Scheduler {
	adapter := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(adapter),
			cron.SkipIfStillRunning(adapter),
		)),
		logger: logger,
		jobs:   make(map[string]job),
		ctx:    context.Background(),
	}
}

// Add registers fn under name. Specs use the standard five-field syntax or
// descriptors such as "@every 5m".
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	j := job{name: name, spec: spec, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { s.run(s.context(), j) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = j
	return nil
}

// Run starts the jobs and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started", "jobs", len(s.jobs))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Trigger runs the named job once, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown job %s", name)
	}
	return s.run(ctx, j)
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, j job) (int, error) {
	start := time.Now()
	ctx = requestcontext.WithTime(ctx, start)
	n, err := j.fn(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled job failed",
			"job", j.name,
			"error", err,
			"duration", time.Since(start),
		)
		return n, err
	}
	s.logger.InfoContext(ctx, "scheduled job finished",
		"job", j.name,
		"handled", n,
		"duration", time.Since(start),
	)
	return n, nil
}

// cronLogger routes cron's own messages (recovered panics, skipped runs)
// to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
