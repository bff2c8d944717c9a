package store

import (
	"context"
	"fmt"
	"time"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
)

// Computer is the read-side projection of a (hostname, username) pair seen
// in activity events. There is no computers table.
type Computer struct {
	Hostname        string          `json:"hostname"`
	Username        string          `json:"username"`
	LastActivity    time.Time       `json:"last_activity"`
	TotalActivities int64           `json:"total_activities"`
	LastInput       *time.Time      `json:"last_input"`
	SecondsSince    *int64          `json:"seconds_since_last"`
	Status          activity.Status `json:"status"`
}

type computerRow struct {
	Hostname        string
	Username        string
	LastActivity    string
	TotalActivities int64
}

// ListComputers groups activity events by key, most recently active first.
// hostnameLike filters by substring when non-empty.
func (s *Store) ListComputers(ctx context.Context, hostnameLike string) ([]Computer, error) {
	tx := s.db.WithContext(ctx).Model(&models.ActivityEvent{}).
		Select("hostname, username, MAX(start_time) AS last_activity, COUNT(*) AS total_activities")
	if hostnameLike != "" {
		tx = tx.Where(`hostname LIKE ? ESCAPE '\'`, containsPattern(hostnameLike))
	}

	var rows []computerRow
	if err := tx.Group("hostname, username").Order("last_activity DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list computers: %w", err)
	}

	presence, err := s.ListPresence(ctx)
	if err != nil {
		return nil, err
	}
	type key struct{ host, user string }
	seen := make(map[key]Presence, len(presence))
	for _, p := range presence {
		seen[key{p.Hostname, p.Username}] = p
	}

	now := s.now()
	out := make([]Computer, 0, len(rows))
	for _, row := range rows {
		last, err := s.parseAggregateTime(row.LastActivity)
		if err != nil {
			return nil, err
		}
		p := seen[key{row.Hostname, row.Username}]
		out = append(out, Computer{
			Hostname:        row.Hostname,
			Username:        row.Username,
			LastActivity:    last,
			TotalActivities: row.TotalActivities,
			LastInput:       p.LastInput,
			SecondsSince:    activity.SecondsSince(now, p.LastInput),
			Status:          p.Status(now),
		})
	}
	return out, nil
}

// CurrentActivity returns the latest event of the key started within the
// last five minutes, ErrNotFound when there is none.
func (s *Store) CurrentActivity(ctx context.Context, hostname, username string) (models.ActivityEvent, error) {
	var ev models.ActivityEvent
	err := s.db.WithContext(ctx).
		Where("hostname = ? AND username = ? AND start_time > ?", hostname, username, s.utc(s.now().Add(-5*time.Minute))).
		Order("start_time DESC").Order("id DESC").
		Take(&ev).Error
	return ev, translate(err)
}

// RecentEvents returns up to 50 events of the key started in the last
// minutes, newest first.
func (s *Store) RecentEvents(ctx context.Context, hostname, username string, minutes int) ([]models.ActivityEvent, error) {
	var events []models.ActivityEvent
	err := s.db.WithContext(ctx).
		Where("hostname = ? AND username = ? AND start_time > ?", hostname, username,
			s.utc(s.now().Add(-time.Duration(minutes)*time.Minute))).
		Order("start_time DESC").Order("id DESC").
		Limit(50).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent activities: %w", err)
	}
	return events, nil
}

// Now is the store's clock, shared with handlers so classification and
// queries agree on the current instant.
func (s *Store) Now() time.Time { return s.now() }
