package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/logging"
	"activity-monitor/internal/metrics"
	"activity-monitor/internal/models"
)

// PeriodReport is one heartbeat-derived period as sent by an agent.
// DurationSeconds is trusted as sent and never recomputed from the bounds.
type PeriodReport struct {
	Hostname        string
	Username        string
	PeriodType      string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
}

// PeriodResult tells whether a report opened a new period or extended the
// latest one in place.
type PeriodResult struct {
	ID      uint
	Updated bool
}

// ReportPeriod reconciles a report against the most recently started period
// of the same (hostname, username). A matching type extends that row; a newer
// start of another type inserts a new one. A report starting before the
// latest period only re-checkpoints the row with its exact type and start,
// and is rejected with ErrConflict when there is none. The read and the
// write share one immediate transaction.
//
// The daily summary is updated afterwards with only the seconds this report
// adds to the period, so a period checkpointed many times contributes its
// final duration once. A failed summary update is logged and does not undo
// the period write.
func (s *Store) ReportPeriod(ctx context.Context, r PeriodReport) (PeriodResult, error) {
	if !models.ValidPeriodType(r.PeriodType) {
		return PeriodResult{}, &models.ValidationError{Fields: []string{"period_type"}, Reason: "period_type must be active or inactive"}
	}

	var (
		result  PeriodResult
		contrib DailyContribution
	)
	err := withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var last models.ActivityPeriod
			err := tx.Where("hostname = ? AND username = ?", r.Hostname, r.Username).
				Order("start_time DESC").Order("id DESC").
				Take(&last).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			if err == nil && s.isStale(last, r) {
				// A late retry of an earlier heartbeat. It may only
				// re-checkpoint the period it belongs to.
				var own models.ActivityPeriod
				err := tx.Where("hostname = ? AND username = ? AND period_type = ? AND start_time = ?",
					r.Hostname, r.Username, r.PeriodType, s.utc(r.StartTime)).
					Order("id DESC").Take(&own).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%s period starting %s overlaps a later period: %w",
						r.PeriodType, s.utc(r.StartTime).Format(time.RFC3339), models.ErrConflict)
				}
				if err != nil {
					return err
				}
				var next models.ActivityPeriod
				err = tx.Where("hostname = ? AND username = ? AND start_time > ?", r.Hostname, r.Username, s.utc(own.StartTime)).
					Order("start_time ASC").Take(&next).Error
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				var limit *time.Time
				if err == nil {
					limit = &next.StartTime
				}
				result, contrib, err = s.checkpoint(tx, own, r, limit)
				return err
			}

			if err == nil && last.PeriodType == r.PeriodType {
				result, contrib, err = s.checkpoint(tx, last, r, nil)
				return err
			}

			period := models.ActivityPeriod{
				Hostname:        r.Hostname,
				Username:        r.Username,
				PeriodType:      r.PeriodType,
				StartTime:       s.utc(r.StartTime),
				EndTime:         s.utc(r.EndTime),
				DurationSeconds: r.DurationSeconds,
			}
			if err := tx.Create(&period).Error; err != nil {
				return fmt.Errorf("failed to create period: %w", err)
			}
			result = PeriodResult{ID: period.ID, Updated: false}
			contrib = s.contribution(r, r.StartTime, r.EndTime, r.DurationSeconds)
			return nil
		})
	}, 3)
	if errors.Is(err, models.ErrConflict) {
		metrics.PeriodReports.WithLabelValues("rejected").Inc()
		return PeriodResult{}, err
	}
	if err != nil {
		return PeriodResult{}, err
	}

	if result.Updated {
		metrics.PeriodReports.WithLabelValues("extended").Inc()
	} else {
		metrics.PeriodReports.WithLabelValues("created").Inc()
	}

	if err := s.Accumulate(ctx, contrib); err != nil {
		metrics.SummaryFailures.Inc()
		logging.Logger.Error("failed to update daily summary",
			"hostname", r.Hostname,
			"username", r.Username,
			"date", contrib.Date,
			"period_id", result.ID,
			"error", err,
		)
	}

	return result, nil
}

// isStale reports whether r starts before the latest period, or at the same
// instant with another type. Inserting it would overlap existing rows.
func (s *Store) isStale(last models.ActivityPeriod, r PeriodReport) bool {
	start := s.utc(r.StartTime)
	if start.Before(last.StartTime) {
		return true
	}
	return start.Equal(last.StartTime) && last.PeriodType != r.PeriodType
}

// checkpoint extends row with r. Neither end_time nor duration_seconds ever
// decrease, and end_time stays at or before limit when one is given. The
// contribution carries only the seconds added to the row.
func (s *Store) checkpoint(tx *gorm.DB, row models.ActivityPeriod, r PeriodReport, limit *time.Time) (PeriodResult, DailyContribution, error) {
	endTime, duration := r.EndTime, r.DurationSeconds
	if endTime.Before(row.EndTime) {
		endTime = row.EndTime
	}
	if limit != nil && endTime.After(*limit) {
		endTime = *limit
	}
	if duration < row.DurationSeconds {
		duration = row.DurationSeconds
	}
	if err := tx.Model(&models.ActivityPeriod{}).Where("id = ?", row.ID).Updates(map[string]any{
		"end_time":         s.utc(endTime),
		"duration_seconds": duration,
		"updated_at":       s.now().UTC(),
	}).Error; err != nil {
		return PeriodResult{}, DailyContribution{}, fmt.Errorf("failed to extend period %d: %w", row.ID, err)
	}
	return PeriodResult{ID: row.ID, Updated: true}, s.contribution(r, row.StartTime, endTime, duration-row.DurationSeconds), nil
}

// contribution attributes a report to the date of the period's original
// start, so a period crossing midnight stays on its first day.
func (s *Store) contribution(r PeriodReport, start, end time.Time, seconds int64) DailyContribution {
	if seconds < 0 {
		seconds = 0
	}
	return DailyContribution{
		Hostname:   r.Hostname,
		Username:   r.Username,
		Date:       activity.DateOf(start, s.loc),
		PeriodType: r.PeriodType,
		Seconds:    seconds,
		StartTime:  start,
		EndTime:    end,
	}
}

// PeriodQuery selects stored periods. Zero fields do not filter.
type PeriodQuery struct {
	Hostname   string
	Username   string
	PeriodType string
	// Started bounds start_time.
	Started activity.DateRange
	// EndedBefore is an exclusive upper bound on end_time.
	EndedBefore time.Time
	// Gate applies the start-time-of-day gate after loading.
	Gate  activity.Filters
	Limit int
}

// ListPeriods returns matching periods, newest start first.
func (s *Store) ListPeriods(ctx context.Context, q PeriodQuery) ([]models.ActivityPeriod, error) {
	tx := s.db.WithContext(ctx).Model(&models.ActivityPeriod{})
	if q.Hostname != "" {
		tx = tx.Where("hostname = ?", q.Hostname)
	}
	if q.Username != "" {
		tx = tx.Where("username = ?", q.Username)
	}
	if q.PeriodType != "" {
		tx = tx.Where("period_type = ?", q.PeriodType)
	}
	if !q.Started.From.IsZero() {
		tx = tx.Where("start_time >= ?", s.utc(q.Started.From))
	}
	if !q.Started.To.IsZero() {
		tx = tx.Where("start_time < ?", s.utc(q.Started.To))
	}
	if !q.EndedBefore.IsZero() {
		tx = tx.Where("end_time < ?", s.utc(q.EndedBefore))
	}

	var periods []models.ActivityPeriod
	if err := tx.Order("start_time DESC").Order("id DESC").Find(&periods).Error; err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}

	periods = activity.GatePeriods(periods, q.Gate)
	if q.Limit > 0 && len(periods) > q.Limit {
		periods = periods[:q.Limit]
	}
	return periods, nil
}
