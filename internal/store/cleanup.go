package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
)

// Deleted counts removed rows per table.
type Deleted map[string]int64

// Total sums every table.
func (d Deleted) Total() int64 {
	var n int64
	for _, v := range d {
		n += v
	}
	return n
}

// deletion is one table's delete statement within a purge.
type deletion struct {
	table string
	model any
	where string
	args  []any
}

// purge runs every deletion in one transaction. Any failure rolls back all of
// them.
func (s *Store) purge(ctx context.Context, steps []deletion) (Deleted, error) {
	deleted := Deleted{}
	err := withRetry(func() error {
		clear(deleted)
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, d := range steps {
				q := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
				if d.where != "" {
					q = q.Where(d.where, d.args...)
				}
				res := q.Delete(d.model)
				if res.Error != nil {
					return fmt.Errorf("failed to delete from %s: %w", d.table, res.Error)
				}
				deleted[d.table] = res.RowsAffected
			}
			return nil
		})
	}, 3)
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// CleanupAll empties every activity table. The ignore list is kept.
func (s *Store) CleanupAll(ctx context.Context) (Deleted, error) {
	return s.purge(ctx, []deletion{
		{table: "activity_events", model: &models.ActivityEvent{}},
		{table: "activity_periods", model: &models.ActivityPeriod{}},
		{table: "daily_activity_summary", model: &models.DailyActivitySummary{}},
		{table: "last_input_activity", model: &models.LastInputActivity{}},
		{table: "windows_snapshot", model: &models.WindowsSnapshot{}},
	})
}

// CleanupOlderThan removes rows older than the given number of days.
func (s *Store) CleanupOlderThan(ctx context.Context, days int) (Deleted, error) {
	if days <= 0 {
		return nil, &models.ValidationError{Fields: []string{"days"}, Reason: "days must be positive"}
	}
	cutoff := s.utc(s.RetentionCutoff(days))
	cutoffDate := activity.DateOf(activity.StartOfDay(s.now(), s.loc).AddDate(0, 0, -days), s.loc)

	return s.purge(ctx, []deletion{
		{table: "activity_events", model: &models.ActivityEvent{}, where: "start_time < ?", args: []any{cutoff}},
		{table: "activity_periods", model: &models.ActivityPeriod{}, where: "start_time < ?", args: []any{cutoff}},
		{table: "daily_activity_summary", model: &models.DailyActivitySummary{}, where: "date < ?", args: []any{cutoffDate}},
		{table: "last_input_activity", model: &models.LastInputActivity{}, where: "last_activity < ?", args: []any{cutoff}},
		{table: "windows_snapshot", model: &models.WindowsSnapshot{}, where: "timestamp < ?", args: []any{cutoff}},
	})
}

// PurgeUser removes every row of username across all hosts.
func (s *Store) PurgeUser(ctx context.Context, username string) (Deleted, error) {
	where, args := "username = ?", []any{username}
	return s.purge(ctx, keyedDeletions(where, args))
}

// PurgeComputer removes every row of one (hostname, username).
func (s *Store) PurgeComputer(ctx context.Context, hostname, username string) (Deleted, error) {
	where, args := "hostname = ? AND username = ?", []any{hostname, username}
	return s.purge(ctx, keyedDeletions(where, args))
}

func keyedDeletions(where string, args []any) []deletion {
	return []deletion{
		{table: "activity_events", model: &models.ActivityEvent{}, where: where, args: args},
		{table: "activity_periods", model: &models.ActivityPeriod{}, where: where, args: args},
		{table: "daily_activity_summary", model: &models.DailyActivitySummary{}, where: where, args: args},
		{table: "last_input_activity", model: &models.LastInputActivity{}, where: where, args: args},
		{table: "windows_snapshot", model: &models.WindowsSnapshot{}, where: where, args: args},
	}
}

// RetentionCutoff is the instant before which CleanupOlderThan(days) deletes.
func (s *Store) RetentionCutoff(days int) time.Time {
	return s.now().AddDate(0, 0, -days)
}
