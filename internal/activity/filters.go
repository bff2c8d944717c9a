package activity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a time of day, in seconds since midnight.
type ClockTime int

var (
	BusinessStart = ClockTime(8 * 3600)
	BusinessEnd   = ClockTime(18 * 3600)
	endOfDay      = ClockTime(23*3600 + 59*60 + 59)
)

// ParseClock accepts "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	limits := []int{23, 59, 59}
	var vals [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return 0, fmt.Errorf("invalid time of day %q", s)
		}
		vals[i] = n
	}
	return ClockTime(vals[0]*3600 + vals[1]*60 + vals[2]), nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, int(c)%3600/60, int(c)%60)
}

// On returns the absolute instant of c on the calendar day of t, in t's location.
func (c ClockTime) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, int(c)/3600, int(c)%3600/60, int(c)%60, 0, t.Location())
}

func clockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// Filters are the time-of-day restrictions applied to activity intervals.
// Every field is optional and they combine independently.
type Filters struct {
	StartTime  *ClockTime
	EndTime    *ClockTime
	IgnoreFrom *ClockTime
	IgnoreTo   *ClockTime

	// WeekdaysOnly drops anything starting on Saturday or Sunday.
	WeekdaysOnly bool
}

// BusinessHours returns filters restricted to the 08:00-18:00 window.
func BusinessHours() Filters {
	start, end := BusinessStart, BusinessEnd
	return Filters{StartTime: &start, EndTime: &end}
}

func (f Filters) hasWindow() bool {
	return f.StartTime != nil || f.EndTime != nil
}

func (f Filters) hasIgnore() bool {
	return f.IgnoreFrom != nil && f.IgnoreTo != nil
}

// IsZero reports whether no restriction is set.
func (f Filters) IsZero() bool {
	return !f.hasWindow() && !f.hasIgnore() && !f.WeekdaysOnly
}

// AdmitsStart is the start-time gate used by the listing endpoints: it only
// looks at the clock time of start, never at the interval length.
func (f Filters) AdmitsStart(start time.Time) bool {
	if f.WeekdaysOnly && isWeekend(start) {
		return false
	}
	tod := clockOf(start)
	if f.StartTime != nil && tod < *f.StartTime {
		return false
	}
	if f.EndTime != nil && tod >= *f.EndTime {
		return false
	}
	if f.hasIgnore() && tod >= *f.IgnoreFrom && tod < *f.IgnoreTo {
		return false
	}
	return true
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
