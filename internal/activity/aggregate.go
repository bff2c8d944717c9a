package activity

import (
	"math"
	"sort"
	"strings"
	"time"

	"activity-monitor/internal/models"
)

const (
	TopAppsLimit       = 10
	RecentLimit        = 20
	DefaultTopAppLimit = 5
)

var weekdayNames = [...]string{"", "Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

// General totals across every record that kept at least one valid second.
type General struct {
	TotalActivities   int     `json:"total_activities"`
	UniqueApps        int     `json:"unique_apps"`
	ActiveDays        int     `json:"active_days"`
	TotalTimeSeconds  int64   `json:"total_time_seconds"`
	AvgSessionSeconds float64 `json:"avg_session_seconds"`
	MaxSessionSeconds int64   `json:"max_session_seconds"`
}

type AppStat struct {
	Executable   string  `json:"executable"`
	TotalSeconds int64   `json:"total_seconds"`
	AccessCount  int     `json:"access_count"`
	MaxSeconds   int64   `json:"max_seconds"`
	AvgSeconds   float64 `json:"avg_seconds"`
	TotalHours   float64 `json:"total_hours"`
}

type WeekdayStat struct {
	DayNumber    int     `json:"day_number"`
	Weekday      string  `json:"weekday"`
	TotalSeconds int64   `json:"total_seconds"`
	Activities   int     `json:"activities"`
	TotalHours   float64 `json:"total_hours"`
}

type HourStat struct {
	Hour         int     `json:"hour"`
	TotalSeconds int64   `json:"total_seconds"`
	Activities   int     `json:"activities"`
	TotalHours   float64 `json:"total_hours"`
}

type TimelineEntry struct {
	Date         string  `json:"date"`
	Activities   int     `json:"activities"`
	TotalSeconds int64   `json:"total_seconds"`
	TotalHours   float64 `json:"total_hours"`
	UniqueApps   int     `json:"unique_apps"`
}

// ClippedEvent is an activity event together with its counted seconds.
type ClippedEvent struct {
	models.ActivityEvent
	ValidSeconds int64 `json:"valid_seconds"`
}

type UserStats struct {
	General          General         `json:"general"`
	TopApps          []AppStat       `json:"top_apps"`
	ByWeekday        []WeekdayStat   `json:"by_weekday"`
	ByHour           []HourStat      `json:"by_hour"`
	Timeline         []TimelineEntry `json:"timeline"`
	RecentActivities []ClippedEvent  `json:"recent_activities"`
}

// Clip computes the valid seconds of every event and keeps the ones with
// more than zero, ordered by start time. In-progress events without an end
// time never count.
func Clip(events []models.ActivityEvent, f Filters) []ClippedEvent {
	out := make([]ClippedEvent, 0, len(events))
	for _, ev := range events {
		if ev.EndTime == nil {
			continue
		}
		if f.WeekdaysOnly && isWeekend(ev.StartTime) {
			continue
		}
		valid := ValidSeconds(ev.StartTime, *ev.EndTime, f)
		if valid <= 0 {
			continue
		}
		out = append(out, ClippedEvent{ActivityEvent: ev, ValidSeconds: valid})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ComputeUserStats aggregates one user's events under f.
func ComputeUserStats(events []models.ActivityEvent, f Filters) UserStats {
	clipped := Clip(events, f)

	var general General
	apps := map[string]*AppStat{}
	weekdays := map[int]*WeekdayStat{}
	hours := map[int]*HourStat{}
	dates := map[string]*TimelineEntry{}
	dateApps := map[string]map[string]struct{}{}
	days := map[string]struct{}{}

	for _, ce := range clipped {
		secs := ce.ValidSeconds
		general.TotalActivities++
		general.TotalTimeSeconds += secs
		if secs > general.MaxSessionSeconds {
			general.MaxSessionSeconds = secs
		}

		app, ok := apps[ce.Executable]
		if !ok {
			app = &AppStat{Executable: ce.Executable}
			apps[ce.Executable] = app
		}
		app.TotalSeconds += secs
		app.AccessCount++
		if secs > app.MaxSeconds {
			app.MaxSeconds = secs
		}

		dayNum := int(ce.StartTime.Weekday()) + 1
		wd, ok := weekdays[dayNum]
		if !ok {
			wd = &WeekdayStat{DayNumber: dayNum, Weekday: weekdayNames[dayNum]}
			weekdays[dayNum] = wd
		}
		wd.TotalSeconds += secs
		wd.Activities++

		h, ok := hours[ce.StartTime.Hour()]
		if !ok {
			h = &HourStat{Hour: ce.StartTime.Hour()}
			hours[ce.StartTime.Hour()] = h
		}
		h.TotalSeconds += secs
		h.Activities++

		date := ce.StartTime.Format(DateLayout)
		days[date] = struct{}{}
		te, ok := dates[date]
		if !ok {
			te = &TimelineEntry{Date: date}
			dates[date] = te
			dateApps[date] = map[string]struct{}{}
		}
		te.TotalSeconds += secs
		te.Activities++
		dateApps[date][ce.Executable] = struct{}{}
	}

	general.UniqueApps = len(apps)
	general.ActiveDays = len(days)
	if general.TotalActivities > 0 {
		general.AvgSessionSeconds = float64(general.TotalTimeSeconds) / float64(general.TotalActivities)
	}

	stats := UserStats{
		General:          general,
		TopApps:          rankApps(apps, TopAppsLimit),
		ByWeekday:        make([]WeekdayStat, 0, len(weekdays)),
		ByHour:           make([]HourStat, 0, len(hours)),
		Timeline:         make([]TimelineEntry, 0, len(dates)),
		RecentActivities: make([]ClippedEvent, 0, RecentLimit),
	}

	for _, wd := range weekdays {
		wd.TotalHours = HoursOf(wd.TotalSeconds)
		stats.ByWeekday = append(stats.ByWeekday, *wd)
	}
	sort.Slice(stats.ByWeekday, func(i, j int) bool { return stats.ByWeekday[i].DayNumber < stats.ByWeekday[j].DayNumber })

	for _, h := range hours {
		h.TotalHours = HoursOf(h.TotalSeconds)
		stats.ByHour = append(stats.ByHour, *h)
	}
	sort.Slice(stats.ByHour, func(i, j int) bool { return stats.ByHour[i].Hour < stats.ByHour[j].Hour })

	for date, te := range dates {
		te.TotalHours = HoursOf(te.TotalSeconds)
		te.UniqueApps = len(dateApps[date])
		stats.Timeline = append(stats.Timeline, *te)
	}
	sort.Slice(stats.Timeline, func(i, j int) bool { return stats.Timeline[i].Date > stats.Timeline[j].Date })

	for i := len(clipped) - 1; i >= 0 && len(stats.RecentActivities) < RecentLimit; i-- {
		stats.RecentActivities = append(stats.RecentActivities, clipped[i])
	}

	return stats
}

// rankApps sorts descending by total seconds, ties by executable name, and
// keeps at most limit entries (limit <= 0 keeps all).
func rankApps(apps map[string]*AppStat, limit int) []AppStat {
	out := make([]AppStat, 0, len(apps))
	for _, a := range apps {
		a.TotalHours = HoursOf(a.TotalSeconds)
		if a.AccessCount > 0 {
			a.AvgSeconds = float64(a.TotalSeconds) / float64(a.AccessCount)
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSeconds != out[j].TotalSeconds {
			return out[i].TotalSeconds > out[j].TotalSeconds
		}
		return out[i].Executable < out[j].Executable
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AppTotal is one row of the cross-user top applications ranking.
type AppTotal struct {
	Executable    string `json:"executable"`
	TotalSeconds  int64  `json:"total_seconds"`
	ActivityCount int    `json:"activity_count"`
}

// TopApplications ranks executables across all given events. A limit <= 0
// falls back to DefaultTopAppLimit.
func TopApplications(events []models.ActivityEvent, f Filters, limit int) []AppTotal {
	if limit <= 0 {
		limit = DefaultTopAppLimit
	}
	totals := map[string]*AppTotal{}
	for _, ce := range Clip(events, f) {
		t, ok := totals[ce.Executable]
		if !ok {
			t = &AppTotal{Executable: ce.Executable}
			totals[ce.Executable] = t
		}
		t.TotalSeconds += ce.ValidSeconds
		t.ActivityCount++
	}

	out := make([]AppTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSeconds != out[j].TotalSeconds {
			return out[i].TotalSeconds > out[j].TotalSeconds
		}
		return out[i].Executable < out[j].Executable
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AppUsage is the per-application detail for one user.
type AppUsage struct {
	Executable   string    `json:"executable"`
	AccessCount  int       `json:"access_count"`
	TotalSeconds int64     `json:"total_seconds"`
	AvgSeconds   float64   `json:"avg_seconds"`
	MinSeconds   int64     `json:"min_seconds"`
	MaxSeconds   int64     `json:"max_seconds"`
	TotalHours   float64   `json:"total_hours"`
	FirstUse     time.Time `json:"first_use"`
	LastUse      time.Time `json:"last_use"`
	ActiveDays   int       `json:"active_days"`
}

// UserApplications breaks one user's clipped time down per executable.
// A non-empty match keeps only executables containing it, case-insensitively.
func UserApplications(events []models.ActivityEvent, f Filters, match string) []AppUsage {
	match = strings.ToLower(match)
	usage := map[string]*AppUsage{}
	days := map[string]map[string]struct{}{}

	for _, ce := range Clip(events, f) {
		if match != "" && !strings.Contains(strings.ToLower(ce.Executable), match) {
			continue
		}
		secs := ce.ValidSeconds
		u, ok := usage[ce.Executable]
		if !ok {
			u = &AppUsage{Executable: ce.Executable, MinSeconds: secs, FirstUse: ce.StartTime}
			usage[ce.Executable] = u
			days[ce.Executable] = map[string]struct{}{}
		}
		u.AccessCount++
		u.TotalSeconds += secs
		if secs < u.MinSeconds {
			u.MinSeconds = secs
		}
		if secs > u.MaxSeconds {
			u.MaxSeconds = secs
		}
		if ce.StartTime.Before(u.FirstUse) {
			u.FirstUse = ce.StartTime
		}
		if ce.EndTime.After(u.LastUse) {
			u.LastUse = *ce.EndTime
		}
		days[ce.Executable][ce.StartTime.Format(DateLayout)] = struct{}{}
	}

	out := make([]AppUsage, 0, len(usage))
	for exe, u := range usage {
		u.AvgSeconds = float64(u.TotalSeconds) / float64(u.AccessCount)
		u.TotalHours = HoursOf(u.TotalSeconds)
		u.ActiveDays = len(days[exe])
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSeconds != out[j].TotalSeconds {
			return out[i].TotalSeconds > out[j].TotalSeconds
		}
		return out[i].Executable < out[j].Executable
	})
	return out
}

// DailyStat is the unfiltered per-day rollup of raw event durations.
type DailyStat struct {
	Date                  string `json:"date"`
	Hostname              string `json:"hostname"`
	Username              string `json:"username"`
	TotalActiveTimeSecond int64  `json:"total_active_time_seconds"`
	TotalApplications     int    `json:"total_applications"`
	MostUsedApp           string `json:"most_used_app"`
}

// DailyBreakdown groups events by (date, hostname, username) using the
// client-reported durations. The most used app is the one with the most
// sessions that day, ties by name. Newest date first.
func DailyBreakdown(events []models.ActivityEvent) []DailyStat {
	type key struct{ date, host, user string }
	totals := map[key]*DailyStat{}
	counts := map[key]map[string]int{}

	for _, ev := range events {
		k := key{ev.StartTime.Format(DateLayout), ev.Hostname, ev.Username}
		d, ok := totals[k]
		if !ok {
			d = &DailyStat{Date: k.date, Hostname: k.host, Username: k.user}
			totals[k] = d
			counts[k] = map[string]int{}
		}
		if ev.DurationSeconds != nil {
			d.TotalActiveTimeSecond += *ev.DurationSeconds
		}
		counts[k][ev.Executable]++
	}

	out := make([]DailyStat, 0, len(totals))
	for k, d := range totals {
		d.TotalApplications = len(counts[k])
		best := -1
		for exe, n := range counts[k] {
			if n > best || (n == best && exe < d.MostUsedApp) {
				best, d.MostUsedApp = n, exe
			}
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].Username < out[j].Username
	})
	return out
}

// HoursOf converts seconds to hours rounded to two decimals.
func HoursOf(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}
