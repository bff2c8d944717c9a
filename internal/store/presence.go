package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm/clause"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
)

// RecordInput upserts the latest mouse/keyboard input time for a key.
func (s *Store) RecordInput(ctx context.Context, hostname, username string, at time.Time) error {
	row := models.LastInputActivity{
		Hostname:     hostname,
		Username:     username,
		LastActivity: s.utc(at),
	}
	return withRetry(func() error {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hostname"}, {Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_activity", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to record input activity: %w", err)
		}
		return nil
	}, 3)
}

// Snapshot is a decoded open-windows snapshot.
type Snapshot struct {
	Hostname  string
	Username  string
	Timestamp time.Time
	Windows   []models.OpenWindow
}

// Active returns the foreground window, if one is flagged, and the rest.
func (s Snapshot) Active() (*models.OpenWindow, []models.OpenWindow) {
	var active *models.OpenWindow
	others := make([]models.OpenWindow, 0, len(s.Windows))
	for i := range s.Windows {
		if s.Windows[i].IsActive && active == nil {
			w := s.Windows[i]
			active = &w
			continue
		}
		others = append(others, s.Windows[i])
	}
	return active, others
}

// SaveSnapshot replaces the key's snapshot with windows taken at ts.
func (s *Store) SaveSnapshot(ctx context.Context, hostname, username string, ts time.Time, windows []models.OpenWindow) error {
	raw, err := json.Marshal(windows)
	if err != nil {
		return fmt.Errorf("failed to encode windows: %w", err)
	}
	row := models.WindowsSnapshot{
		Hostname:    hostname,
		Username:    username,
		Timestamp:   s.utc(ts),
		WindowsJSON: string(raw),
	}
	return withRetry(func() error {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "hostname"}, {Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"timestamp", "windows_json"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to save windows snapshot: %w", err)
		}
		return nil
	}, 3)
}

// RecentSnapshot returns the key's snapshot if it was taken within the
// snapshot relevance window, ErrNotFound otherwise.
func (s *Store) RecentSnapshot(ctx context.Context, hostname, username string) (Snapshot, error) {
	var row models.WindowsSnapshot
	err := s.db.WithContext(ctx).
		Where("hostname = ? AND username = ? AND timestamp > ?", hostname, username, s.utc(s.now().Add(-activity.SnapshotWindow))).
		Take(&row).Error
	if err != nil {
		return Snapshot{}, translate(err)
	}

	snap := Snapshot{Hostname: row.Hostname, Username: row.Username, Timestamp: row.Timestamp}
	if err := json.Unmarshal([]byte(row.WindowsJSON), &snap.Windows); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode windows snapshot: %w", err)
	}
	return snap, nil
}

// Presence is what the status classifier needs for one key.
type Presence struct {
	Hostname     string
	Username     string
	LastInput    *time.Time
	LastSnapshot *time.Time
}

// Status classifies the presence at now.
func (p Presence) Status(now time.Time) activity.Status {
	return activity.Classify(now, p.LastInput, p.LastSnapshot)
}

// ListPresence returns every key that has reported input or a snapshot,
// ordered by hostname then username.
func (s *Store) ListPresence(ctx context.Context) ([]Presence, error) {
	var inputs []models.LastInputActivity
	if err := s.db.WithContext(ctx).Find(&inputs).Error; err != nil {
		return nil, fmt.Errorf("failed to load input activity: %w", err)
	}
	var snaps []models.WindowsSnapshot
	if err := s.db.WithContext(ctx).Select("hostname", "username", "timestamp").Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}

	type key struct{ host, user string }
	byKey := map[key]*Presence{}
	get := func(host, user string) *Presence {
		k := key{host, user}
		p, ok := byKey[k]
		if !ok {
			p = &Presence{Hostname: host, Username: user}
			byKey[k] = p
		}
		return p
	}
	for i := range inputs {
		get(inputs[i].Hostname, inputs[i].Username).LastInput = &inputs[i].LastActivity
	}
	for i := range snaps {
		get(snaps[i].Hostname, snaps[i].Username).LastSnapshot = &snaps[i].Timestamp
	}

	out := make([]Presence, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// GetPresence returns the presence of one key, ErrNotFound when the key has
// never reported input or a snapshot.
func (s *Store) GetPresence(ctx context.Context, hostname, username string) (Presence, error) {
	p := Presence{Hostname: hostname, Username: username}

	var input models.LastInputActivity
	err := s.db.WithContext(ctx).Where("hostname = ? AND username = ?", hostname, username).Take(&input).Error
	switch err = translate(err); {
	case err == nil:
		p.LastInput = &input.LastActivity
	case err != models.ErrNotFound:
		return p, fmt.Errorf("failed to load input activity: %w", err)
	}

	var snap models.WindowsSnapshot
	err = s.db.WithContext(ctx).Select("hostname", "username", "timestamp").
		Where("hostname = ? AND username = ?", hostname, username).Take(&snap).Error
	switch err = translate(err); {
	case err == nil:
		p.LastSnapshot = &snap.Timestamp
	case err != models.ErrNotFound:
		return p, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if p.LastInput == nil && p.LastSnapshot == nil {
		return p, models.ErrNotFound
	}
	return p, nil
}
