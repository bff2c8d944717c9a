package activity

import (
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

var naiveLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
}

// ParseTimestamp reads the timestamps agents send. RFC 3339 values keep
// their offset; naive "YYYY-MM-DD HH:MM:SS[.ffffff]" values are taken in loc.
// Sub-second precision is dropped.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Truncate(time.Second), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Truncate(time.Second), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseDate parses YYYY-MM-DD as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DateRange is a half-open [From, To) instant range. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Days builds the range covering the calendar days from..to inclusive.
// Either side may be empty.
func Days(from, to string, loc *time.Location) (DateRange, error) {
	var r DateRange
	if from != "" {
		t, err := ParseDate(from, loc)
		if err != nil {
			return r, err
		}
		r.From = t
	}
	if to != "" {
		t, err := ParseDate(to, loc)
		if err != nil {
			return r, err
		}
		r.To = t.AddDate(0, 0, 1)
	}
	return r, nil
}

// LastDays is the range from midnight n days before now until the end of today.
func LastDays(now time.Time, n int, loc *time.Location) DateRange {
	today := StartOfDay(now, loc)
	return DateRange{From: today.AddDate(0, 0, -n), To: today.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}
