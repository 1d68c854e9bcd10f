// Package scheduler runs the retention purge on a cron schedule using
// robfig/cron.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the purge daily at 03:00.
const DefaultSchedule = "0 3 * * *"

// runTimeout bounds a single purge run.
const runTimeout = 10 * time.Minute

// Purger is the job the scheduler triggers. *service.RetentionPurge
// satisfies it.
type Purger interface {
	Run(ctx context.Context) (int64, error)
}

// Scheduler manages the background purge job.
type Scheduler struct {
	cron     *cron.Cron
	purger   Purger
	schedule string
	logger   *slog.Logger
}

// New creates a scheduler that triggers purger on schedule, a standard
// 5-field cron expression. An empty schedule uses DefaultSchedule.
func New(purger Purger, schedule string, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(cronLogger),
		// A slow run must not overlap the next tick.
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:     c,
		purger:   purger,
		schedule: schedule,
		logger:   logger,
	}
}

// Start registers the purge job and begins scheduling. It returns an error
// if the schedule does not parse.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.purge); err != nil {
		return fmt.Errorf("scheduler.Start: schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop stops scheduling new runs. The returned context is done once any
// running purge has finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunOnce triggers a purge synchronously, outside the schedule.
func (s *Scheduler) RunOnce(ctx context.Context) (int64, error) {
	return s.purger.Run(ctx)
}

// purge is the cron callback. Failures were already logged and counted by
// the purger and are picked up again on the next tick.
func (s *Scheduler) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.purger.Run(ctx); err != nil {
		s.logger.Warn("scheduled purge will retry on next tick", slog.Any("error", err))
	}
}
