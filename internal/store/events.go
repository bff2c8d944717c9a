package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
)

// CreateEvent stores a new focus session.
func (s *Store) CreateEvent(ctx context.Context, ev *models.ActivityEvent) error {
	ev.StartTime = s.utc(ev.StartTime)
	if ev.EndTime != nil {
		end := s.utc(*ev.EndTime)
		ev.EndTime = &end
	}
	return withRetry(func() error {
		if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
			return fmt.Errorf("failed to create activity event: %w", err)
		}
		return nil
	}, 3)
}

// GetEvent loads one event by id.
func (s *Store) GetEvent(ctx context.Context, id uint) (models.ActivityEvent, error) {
	var ev models.ActivityEvent
	err := s.db.WithContext(ctx).Take(&ev, id).Error
	return ev, translate(err)
}

// EventUpdate holds the fields a session update may change.
type EventUpdate struct {
	StartTime       *time.Time
	EndTime         *time.Time
	DurationSeconds *int64
}

// UpdateEvent applies u to the event. It fails with a ValidationError when u
// is empty and with ErrNotFound for an unknown id.
func (s *Store) UpdateEvent(ctx context.Context, id uint, u EventUpdate) error {
	updates := map[string]any{}
	if u.StartTime != nil {
		updates["start_time"] = s.utc(*u.StartTime)
	}
	if u.EndTime != nil {
		updates["end_time"] = s.utc(*u.EndTime)
	}
	if u.DurationSeconds != nil {
		updates["duration_seconds"] = *u.DurationSeconds
	}
	if len(updates) == 0 {
		return &models.ValidationError{Reason: "no fields to update"}
	}

	return withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var ev models.ActivityEvent
			if err := tx.Select("id").Take(&ev, id).Error; err != nil {
				return translate(err)
			}
			return tx.Model(&models.ActivityEvent{}).Where("id = ?", id).Updates(updates).Error
		})
	}, 3)
}

// EventQuery selects activity events. Zero fields do not filter.
type EventQuery struct {
	Hostname string
	Username string
	// Executable matches exactly; ExecutableLike is a case-insensitive substring.
	Executable     string
	ExecutableLike string
	Started        activity.DateRange
	// ExcludeIgnored drops executables on the ignore list.
	ExcludeIgnored bool
	Newest         bool
	Limit          int
}

// ListEvents returns matching events ordered by start time (ascending, or
// descending when Newest is set).
func (s *Store) ListEvents(ctx context.Context, q EventQuery) ([]models.ActivityEvent, error) {
	tx := s.db.WithContext(ctx).Model(&models.ActivityEvent{})
	if q.Hostname != "" {
		tx = tx.Where("hostname = ?", q.Hostname)
	}
	if q.Username != "" {
		tx = tx.Where("username = ?", q.Username)
	}
	if q.Executable != "" {
		tx = tx.Where("executable = ?", q.Executable)
	}
	if q.ExecutableLike != "" {
		tx = tx.Where(`executable LIKE ? ESCAPE '\'`, containsPattern(q.ExecutableLike))
	}
	if !q.Started.From.IsZero() {
		tx = tx.Where("start_time >= ?", s.utc(q.Started.From))
	}
	if !q.Started.To.IsZero() {
		tx = tx.Where("start_time < ?", s.utc(q.Started.To))
	}
	if q.ExcludeIgnored {
		tx = tx.Where("executable NOT IN (?)", s.db.Model(&models.IgnoredExecutable{}).Select("executable"))
	}
	if q.Newest {
		tx = tx.Order("start_time DESC").Order("id DESC")
	} else {
		tx = tx.Order("start_time").Order("id")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var events []models.ActivityEvent
	if err := tx.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list activity events: %w", err)
	}
	return events, nil
}

// UserTotals is one row of the per-user listing and comparison.
type UserTotals struct {
	Username          string    `json:"username"`
	Hostname          string    `json:"hostname"`
	TotalActivities   int64     `json:"total_activities"`
	TotalSeconds      int64     `json:"total_time_seconds"`
	TotalHours        float64   `json:"total_hours"`
	UniqueApps        int64     `json:"unique_apps"`
	AvgSessionSeconds float64   `json:"avg_session_seconds"`
	FirstActivity     time.Time `json:"first_activity"`
	LastActivity      time.Time `json:"last_activity"`
}

type userTotalsRow struct {
	Username        string
	Hostname        string
	TotalActivities int64
	TotalSeconds    int64
	UniqueApps      int64
	AvgSeconds      float64
	FirstActivity   string
	LastActivity    string
}

// UserTotals groups events by (username, hostname) over r, ordered by total
// reported seconds descending. A limit <= 0 returns every row.
func (s *Store) UserTotals(ctx context.Context, r activity.DateRange, limit int) ([]UserTotals, error) {
	tx := s.db.WithContext(ctx).Model(&models.ActivityEvent{}).
		Select(`username, hostname,
			COUNT(*) AS total_activities,
			COALESCE(SUM(duration_seconds), 0) AS total_seconds,
			COUNT(DISTINCT executable) AS unique_apps,
			COALESCE(AVG(duration_seconds), 0) AS avg_seconds,
			MIN(start_time) AS first_activity,
			MAX(start_time) AS last_activity`)
	if !r.From.IsZero() {
		tx = tx.Where("start_time >= ?", s.utc(r.From))
	}
	if !r.To.IsZero() {
		tx = tx.Where("start_time < ?", s.utc(r.To))
	}
	tx = tx.Group("username, hostname").Order("total_seconds DESC").Order("username").Order("hostname")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var rows []userTotalsRow
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate users: %w", err)
	}

	out := make([]UserTotals, 0, len(rows))
	for _, row := range rows {
		first, err := s.parseAggregateTime(row.FirstActivity)
		if err != nil {
			return nil, err
		}
		last, err := s.parseAggregateTime(row.LastActivity)
		if err != nil {
			return nil, err
		}
		out = append(out, UserTotals{
			Username:          row.Username,
			Hostname:          row.Hostname,
			TotalActivities:   row.TotalActivities,
			TotalSeconds:      row.TotalSeconds,
			TotalHours:        activity.HoursOf(row.TotalSeconds),
			UniqueApps:        row.UniqueApps,
			AvgSessionSeconds: row.AvgSeconds,
			FirstActivity:     first,
			LastActivity:      last,
		})
	}
	return out, nil
}
