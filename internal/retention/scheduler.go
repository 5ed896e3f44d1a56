package retention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fixora/tracker/internal/logger"
)

// Scheduler triggers purge runs on a cron schedule.
// Overlapping ticks are skipped while a run is still in progress.
type Scheduler struct {
	purger  *Purger
	cron    *cron.Cron
	mu      sync.Mutex
	logger  logger.Logger
	running bool
}

// NewScheduler creates a new purge scheduler
func NewScheduler(purger *Purger, log logger.Logger) *Scheduler {
	log = log.WithFields(map[string]interface{}{"component": "retention.scheduler"})
	cl := cronLogger{logger: log}

	return &Scheduler{
		purger: purger,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: log,
	}
}

// Start schedules purge runs using the purger's cron expression and stops
// them when ctx is cancelled. An empty schedule leaves the scheduler idle.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM UTC
//   - "0 */6 * * *"  - Every 6 hours
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	schedule := s.purger.config.Schedule
	if schedule == "" {
		s.logger.Info(ctx, "Purge schedule not configured, skipping scheduler", nil)
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.runPurge(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule purge: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info(ctx, "Purge scheduler started", map[string]interface{}{
		"schedule":   schedule,
		"batch_size": s.purger.config.BatchSize,
	})

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runPurge(ctx context.Context) {
	report, err := s.purger.RunPurge(ctx)
	switch {
	case errors.Is(err, ErrPurgeAlreadyRunning):
		s.logger.Info(ctx, "Purge already running elsewhere, skipping tick", nil)
	case err != nil:
		// Already logged by the purger; the next tick retries.
		return
	case report.Projects.Purged+report.Tickets.Purged == 0:
		s.logger.Debug(ctx, "Scheduled purge completed, nothing purged", nil)
	}
}

// Stop stops the scheduler and waits for a running purge to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info(context.Background(), "Purge scheduler stopped", nil)
	}
}

// IsRunning reports whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled purge time, or nil when idle
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(context.Background(), msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(context.Background(), msg, err, kvFields(keysAndValues))
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
