package models

import (
	"time"
)

const (
	PeriodActive   = "active"
	PeriodInactive = "inactive"
)

// ValidPeriodType reports whether t is one of the two period classifications.
func ValidPeriodType(t string) bool {
	return t == PeriodActive || t == PeriodInactive
}

// ActivityEvent is one contiguous focus session of an application window.
// EndTime and DurationSeconds stay nil while the session is in progress.
type ActivityEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Hostname        string     `gorm:"not null;index:idx_events_host_user" json:"hostname"`
	Username        string     `gorm:"not null;index:idx_events_host_user;index:idx_events_user_start" json:"username"`
	Executable      string     `gorm:"not null;index" json:"executable"`
	PID             int        `gorm:"column:pid" json:"pid"`
	WindowTitle     *string    `json:"window_title"`
	StartTime       time.Time  `gorm:"not null;index:idx_events_user_start" json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationSeconds *int64     `json:"duration_seconds"`
	CreatedAt       time.Time  `json:"-"`
}

func (ActivityEvent) TableName() string { return "activity_events" }

// ActivityPeriod is a maximal span of one classification for a
// (hostname, username). Only the most recently started row is extended.
type ActivityPeriod struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Hostname        string    `gorm:"not null;index:idx_periods_composite,priority:1" json:"hostname"`
	Username        string    `gorm:"not null;index:idx_periods_composite,priority:2" json:"username"`
	PeriodType      string    `gorm:"not null;index;check:period_type IN ('active','inactive')" json:"period_type"`
	StartTime       time.Time `gorm:"not null;index:idx_periods_composite,priority:3" json:"start_time"`
	EndTime         time.Time `gorm:"not null" json:"end_time"`
	DurationSeconds int64     `gorm:"not null;default:0" json:"duration_seconds"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

func (ActivityPeriod) TableName() string { return "activity_periods" }

// DailyActivitySummary is the incremental rollup of periods per day.
type DailyActivitySummary struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	Hostname             string    `gorm:"not null;uniqueIndex:idx_daily_unique,priority:1" json:"hostname"`
	Username             string    `gorm:"not null;uniqueIndex:idx_daily_unique,priority:2" json:"username"`
	Date                 string    `gorm:"not null;size:10;uniqueIndex:idx_daily_unique,priority:3;index" json:"date"`
	TotalActiveSeconds   int64     `gorm:"not null;default:0" json:"total_active_seconds"`
	TotalInactiveSeconds int64     `gorm:"not null;default:0" json:"total_inactive_seconds"`
	FirstActivity        time.Time `json:"first_activity"`
	LastActivity         time.Time `json:"last_activity"`
	CreatedAt            time.Time `json:"-"`
	UpdatedAt            time.Time `json:"-"`
}

func (DailyActivitySummary) TableName() string { return "daily_activity_summary" }

// LastInputActivity holds the most recent mouse/keyboard input per key.
type LastInputActivity struct {
	Hostname     string    `gorm:"primaryKey" json:"hostname"`
	Username     string    `gorm:"primaryKey" json:"username"`
	LastActivity time.Time `gorm:"not null;index" json:"last_activity"`
	UpdatedAt    time.Time `json:"-"`
}

func (LastInputActivity) TableName() string { return "last_input_activity" }

// WindowsSnapshot is the latest list of open windows reported per key.
type WindowsSnapshot struct {
	Hostname    string    `gorm:"primaryKey" json:"hostname"`
	Username    string    `gorm:"primaryKey" json:"username"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	WindowsJSON string    `gorm:"column:windows_json;type:text;not null" json:"-"`
}

func (WindowsSnapshot) TableName() string { return "windows_snapshot" }

// OpenWindow is one entry of a snapshot.
type OpenWindow struct {
	Executable  string `json:"executable"`
	PID         int    `json:"pid"`
	WindowTitle string `json:"window_title"`
	IsActive    bool   `json:"is_active"`
}

// IgnoredExecutable is excluded from the analytics aggregates.
type IgnoredExecutable struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Executable  string    `gorm:"not null;uniqueIndex" json:"executable"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (IgnoredExecutable) TableName() string { return "ignored_executables" }

// All lists every persisted model, in the order they are migrated.
func All() []any {
	return []any{
		&ActivityEvent{},
		&ActivityPeriod{},
		&DailyActivitySummary{},
		&LastInputActivity{},
		&WindowsSnapshot{},
		&IgnoredExecutable{},
	}
}
