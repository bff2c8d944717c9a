// Package retention runs the periodic cleanup of old activity rows.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"activity-monitor/internal/logging"
	"activity-monitor/internal/metrics"
	"activity-monitor/internal/store"
)

// Cleaner deletes rows older than a number of days.
type Cleaner interface {
	CleanupOlderThan(ctx context.Context, days int) (store.Deleted, error)
}

// Scheduler triggers a cleanup on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	cleaner Cleaner
	days    int
	timeout time.Duration
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logging.Logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logging.Logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// New validates schedule (standard five-field cron syntax or a descriptor such
// as "@daily") and prepares a scheduler. It does not start it.
func New(cleaner Cleaner, schedule string, days int, loc *time.Location) (*Scheduler, error) {
	if days <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", days)
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cleaner: cleaner,
		days:    days,
		timeout: 5 * time.Minute,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{}), cron.Recover(cronLogger{})),
		),
	}
	if _, err := s.cron.AddFunc(schedule, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled and any running
// cleanup has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	logging.Logger.Info("retention scheduler started", "days", s.days, "next", s.Next())
	<-ctx.Done()
	<-s.cron.Stop().Done()
	logging.Logger.Info("retention scheduler stopped")
	return nil
}

// Next is the next scheduled run, zero before Run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce performs one cleanup and records what it removed.
func (s *Scheduler) RunOnce(ctx context.Context) (store.Deleted, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	deleted, err := s.cleaner.CleanupOlderThan(ctx, s.days)
	if err != nil {
		logging.Logger.Error("retention cleanup failed", "days", s.days, "error", err)
		return nil, err
	}
	for table, n := range deleted {
		metrics.RetentionDeleted.WithLabelValues(table).Add(float64(n))
	}
	logging.Logger.Info("retention cleanup finished",
		"days", s.days,
		"total_deleted", deleted.Total(),
		"duration", time.Since(start),
	)
	return deleted, nil
}
