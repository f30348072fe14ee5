package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/index-checker/internal/config"
	"github.com/jonesrussell/index-checker/internal/logger"
	"github.com/jonesrussell/index-checker/internal/scheduler"
)

// Scheduled job names.
const (
	JobSessionCleanup = "session-cleanup"
	JobTokenPurge     = "token-purge"
)

// SetupScheduler registers the maintenance jobs and starts the scheduler.
func SetupScheduler(ctx context.Context, cfg *config.Config, s *Services, log logger.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(log.With(logger.String("component", "scheduler")))

	if err := sched.Add(JobSessionCleanup, cfg.Cleanup.Schedule, s.Sessions.CleanupStale); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", JobSessionCleanup, err)
	}
	if err := sched.Add(JobTokenPurge, cfg.Cleanup.Schedule, s.Auth.DeleteExpired); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", JobTokenPurge, err)
	}

	sched.Start(ctx)
	log.Info("Scheduler started", logger.String("schedule", cfg.Cleanup.Schedule))
	return sched, nil
}
