package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
)

// DailyContribution is what one period write adds to a day's summary.
// Seconds is an increment, not the period's running total.
type DailyContribution struct {
	Hostname   string
	Username   string
	Date       string
	PeriodType string
	Seconds    int64
	StartTime  time.Time
	EndTime    time.Time
}

// Accumulate upserts the (hostname, username, date) summary row: Seconds is
// added to the bucket of PeriodType, first/last activity move by min/max.
// Totals never decrease.
func (s *Store) Accumulate(ctx context.Context, c DailyContribution) error {
	if !models.ValidPeriodType(c.PeriodType) {
		return fmt.Errorf("invalid period type %q", c.PeriodType)
	}
	if c.Seconds < 0 {
		c.Seconds = 0
	}

	row := models.DailyActivitySummary{
		Hostname:      c.Hostname,
		Username:      c.Username,
		Date:          c.Date,
		FirstActivity: s.utc(c.StartTime),
		LastActivity:  s.utc(c.EndTime),
	}
	bucket := "total_inactive_seconds"
	if c.PeriodType == models.PeriodActive {
		bucket = "total_active_seconds"
		row.TotalActiveSeconds = c.Seconds
	} else {
		row.TotalInactiveSeconds = c.Seconds
	}

	return withRetry(func() error {
		return s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "hostname"}, {Name: "username"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				bucket:           gorm.Expr(bucket+" + ?", c.Seconds),
				"first_activity": gorm.Expr("MIN(COALESCE(first_activity, excluded.first_activity), excluded.first_activity)"),
				"last_activity":  gorm.Expr("MAX(COALESCE(last_activity, excluded.last_activity), excluded.last_activity)"),
				"updated_at":     s.now().UTC(),
			}),
		}).Create(&row).Error
	}, 3)
}

// SummaryQuery selects daily summary rows. With no date bounds it covers today.
type SummaryQuery struct {
	Hostname string
	Username string
	From     string
	To       string
}

// ListSummaries returns summary rows, newest date first.
func (s *Store) ListSummaries(ctx context.Context, q SummaryQuery) ([]models.DailyActivitySummary, error) {
	tx := s.db.WithContext(ctx).Model(&models.DailyActivitySummary{})
	if q.Hostname != "" {
		tx = tx.Where("hostname = ?", q.Hostname)
	}
	if q.Username != "" {
		tx = tx.Where("username = ?", q.Username)
	}
	switch {
	case q.From != "" && q.To != "":
		tx = tx.Where("date BETWEEN ? AND ?", q.From, q.To)
	case q.From != "":
		tx = tx.Where("date = ?", q.From)
	default:
		tx = tx.Where("date = ?", activity.DateOf(s.now(), s.loc))
	}

	var rows []models.DailyActivitySummary
	if err := tx.Order("date DESC").Order("hostname").Order("username").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list daily summaries: %w", err)
	}
	return rows, nil
}

// Summary returns one day's row.
func (s *Store) Summary(ctx context.Context, hostname, username, date string) (models.DailyActivitySummary, error) {
	var row models.DailyActivitySummary
	err := s.db.WithContext(ctx).
		Where("hostname = ? AND username = ? AND date = ?", hostname, username, date).
		Take(&row).Error
	return row, translate(err)
}
