package activity

import "time"

// ValidSeconds returns how many seconds of [start, end] count under f.
//
// Windows are built on the calendar day of start. An interval crossing
// midnight is not split per day; the later part is measured against the
// start day's window.
func ValidSeconds(start, end time.Time, f Filters) int64 {
	if f.hasWindow() {
		from := ClockTime(0)
		if f.StartTime != nil {
			from = *f.StartTime
		}
		to := endOfDay
		if f.EndTime != nil {
			to = *f.EndTime
		}
		dayStart, dayEnd := from.On(start), to.On(start)

		if !end.After(dayStart) || !start.Before(dayEnd) {
			return 0
		}
		if start.Before(dayStart) {
			start = dayStart
		}
		if end.After(dayEnd) {
			end = dayEnd
		}
	}

	valid := int64(end.Sub(start) / time.Second)

	if f.hasIgnore() && valid > 0 {
		ignoreStart, ignoreEnd := f.IgnoreFrom.On(start), f.IgnoreTo.On(start)
		overlapStart := maxTime(start, ignoreStart)
		overlapEnd := minTime(end, ignoreEnd)
		if overlapStart.Before(overlapEnd) {
			valid -= int64(overlapEnd.Sub(overlapStart) / time.Second)
		}
	}

	if valid < 0 {
		return 0
	}
	return valid
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
