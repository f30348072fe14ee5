// Package scheduler runs named maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/index-checker/internal/logger"
)

// ErrUnknownJob is returned by Run for a name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// Job is one unit of scheduled work. It receives the scheduler's lifecycle context.
type Job func(ctx context.Context) error

type entry struct {
	id   cron.EntryID
	spec string
	run  func()
}

// Scheduler wraps a cron runner. Jobs never overlap with themselves and a
// panicking job is logged instead of taking the process down.
type Scheduler struct {
	log    logger.Logger
	cron   *cron.Cron
	parser cron.Parser

	mu      sync.Mutex
	entries map[string]entry

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New creates a stopped scheduler. Specs use the five-field format or descriptors such as @hourly.
func New(log logger.Logger) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		log:     log,
		parser:  parser,
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		entries: make(map[string]entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers job under name. Adding an existing name replaces its schedule.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("parse schedule %q for %s: %w", spec, name, err)
	}

	run := s.wrap(name, job)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old.id)
	}

	id, err := s.cron.AddFunc(spec, run)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}
	s.entries[name] = entry{id: id, spec: spec, run: run}

	s.log.Info("Job scheduled",
		logger.String("job", name),
		logger.String("schedule", spec),
	)
	return nil
}

// Run executes a registered job immediately on the calling goroutine.
func (s *Scheduler) Run(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	e.run()
	return nil
}

// Jobs returns the registered job names and their next run times.
func (s *Scheduler) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))
	for name, e := range s.entries {
		out[name] = s.cron.Entry(e.id).Next
	}
	return out
}

// Start begins running jobs. The scheduler stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.log.Info("Scheduler started", logger.Int("jobs", len(s.Jobs())))

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.ctx.Done():
		}
	}()
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()

		done := s.cron.Stop()
		<-done.Done()
		s.log.Info("Scheduler stopped")
	})
}

func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("Job panicked",
					logger.String("job", name),
					logger.Any("panic", r),
				)
			}
		}()

		if err := job(s.ctx); err != nil {
			s.log.Error("Job failed",
				logger.String("job", name),
				logger.Duration("duration", time.Since(start)),
				logger.Error(err),
			)
			return
		}

		s.log.Debug("Job completed",
			logger.String("job", name),
			logger.Duration("duration", time.Since(start)),
		)
	}
}
