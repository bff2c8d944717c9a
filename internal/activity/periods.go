package activity

import (
	"math"
	"sort"
	"time"

	"activity-monitor/internal/models"
)

// PeriodStatistics totals stored periods by classification.
type PeriodStatistics struct {
	ActiveSeconds    int64   `json:"active_seconds"`
	InactiveSeconds  int64   `json:"inactive_seconds"`
	TotalSeconds     int64   `json:"total_seconds"`
	ActivePercentage float64 `json:"active_percentage"`
	ActivePeriods    int     `json:"active_periods"`
	InactivePeriods  int     `json:"inactive_periods"`
}

// GatePeriods keeps the periods whose start passes the start-time gate.
func GatePeriods(periods []models.ActivityPeriod, f Filters) []models.ActivityPeriod {
	if f.IsZero() {
		return periods
	}
	out := periods[:0:0]
	for _, p := range periods {
		if f.AdmitsStart(p.StartTime) {
			out = append(out, p)
		}
	}
	return out
}

// GateEvents keeps the events whose start passes the start-time gate.
func GateEvents(events []models.ActivityEvent, f Filters) []models.ActivityEvent {
	if f.IsZero() {
		return events
	}
	out := events[:0:0]
	for _, ev := range events {
		if f.AdmitsStart(ev.StartTime) {
			out = append(out, ev)
		}
	}
	return out
}

// SummarizePeriods sums the stored durations per period type.
func SummarizePeriods(periods []models.ActivityPeriod) PeriodStatistics {
	var s PeriodStatistics
	for _, p := range periods {
		switch p.PeriodType {
		case models.PeriodActive:
			s.ActiveSeconds += p.DurationSeconds
			s.ActivePeriods++
		case models.PeriodInactive:
			s.InactiveSeconds += p.DurationSeconds
			s.InactivePeriods++
		}
	}
	s.TotalSeconds = s.ActiveSeconds + s.InactiveSeconds
	s.ActivePercentage = percentage(s.ActiveSeconds, s.TotalSeconds)
	return s
}

func percentage(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}

// SummaryPercentage is the active share of a daily summary row, 2dp.
func SummaryPercentage(s models.DailyActivitySummary) float64 {
	return percentage(s.TotalActiveSeconds, s.TotalActiveSeconds+s.TotalInactiveSeconds)
}

// RecentApp is one entry of the recent-activity top list.
type RecentApp struct {
	Executable string `json:"executable"`
	Count      int    `json:"count"`
	TotalTime  int64  `json:"total_time"`
}

// RecentStats summarizes a window of recent events. Events still in
// progress count their elapsed time up to now.
type RecentStats struct {
	TotalActivities  int         `json:"total_activities"`
	TotalTimeSeconds int64       `json:"total_time_seconds"`
	TopApps          []RecentApp `json:"top_apps"`
	PeriodMinutes    int         `json:"period_minutes"`
}

func SummarizeRecent(now time.Time, events []models.ActivityEvent, minutes int) RecentStats {
	stats := RecentStats{TotalActivities: len(events), PeriodMinutes: minutes}
	apps := map[string]*RecentApp{}
	for _, ev := range events {
		d := CurrentDuration(now, ev)
		stats.TotalTimeSeconds += d
		a, ok := apps[ev.Executable]
		if !ok {
			a = &RecentApp{Executable: ev.Executable}
			apps[ev.Executable] = a
		}
		a.Count++
		a.TotalTime += d
	}
	stats.TopApps = make([]RecentApp, 0, len(apps))
	for _, a := range apps {
		stats.TopApps = append(stats.TopApps, *a)
	}
	sort.Slice(stats.TopApps, func(i, j int) bool {
		if stats.TopApps[i].TotalTime != stats.TopApps[j].TotalTime {
			return stats.TopApps[i].TotalTime > stats.TopApps[j].TotalTime
		}
		return stats.TopApps[i].Executable < stats.TopApps[j].Executable
	})
	if len(stats.TopApps) > 5 {
		stats.TopApps = stats.TopApps[:5]
	}
	return stats
}

// CurrentDuration is the reported duration, or the elapsed time for a
// session that has not ended yet.
func CurrentDuration(now time.Time, ev models.ActivityEvent) int64 {
	if ev.DurationSeconds != nil {
		return *ev.DurationSeconds
	}
	end := now
	if ev.EndTime != nil {
		end = *ev.EndTime
	}
	return int64(end.Sub(ev.StartTime) / time.Second)
}
