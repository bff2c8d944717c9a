package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"activity-monitor/internal/activity"
)

// query returns the first non-blank value among keys. Endpoints accept both
// the snake_case and camelCase spellings of a parameter.
func query(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			return v
		}
	}
	return ""
}

func queryBool(c *gin.Context, keys ...string) bool {
	return query(c, keys...) == "true"
}

func clockParam(c *gin.Context, keys ...string) (*activity.ClockTime, error) {
	raw := query(c, keys...)
	if raw == "" {
		return nil, nil
	}
	ct, err := activity.ParseClock(raw)
	if err != nil {
		return nil, invalid(keys[0], "expected HH:MM or HH:MM:SS")
	}
	return &ct, nil
}

// parseFilters reads the time-of-day filters. businessHours=true replaces any
// explicit startTime/endTime with 08:00-18:00. The ignore window only applies
// when both ends are given.
func parseFilters(c *gin.Context) (activity.Filters, error) {
	f, err := parseClockFilters(c)
	if err != nil {
		return f, err
	}
	if queryBool(c, "businessHours", "business_hours") {
		bh := activity.BusinessHours()
		f.StartTime, f.EndTime = bh.StartTime, bh.EndTime
	}
	return f, nil
}

// parseWeekdayFilters is parseFilters for the cross-user ranking, where
// businessHours=true means Monday to Friday and leaves the clock window alone.
func parseWeekdayFilters(c *gin.Context) (activity.Filters, error) {
	f, err := parseClockFilters(c)
	if err != nil {
		return f, err
	}
	f.WeekdaysOnly = queryBool(c, "businessHours", "business_hours")
	return f, nil
}

func parseClockFilters(c *gin.Context) (activity.Filters, error) {
	var f activity.Filters
	var err error

	if f.StartTime, err = clockParam(c, "startTime", "start_time"); err != nil {
		return f, err
	}
	if f.EndTime, err = clockParam(c, "endTime", "end_time"); err != nil {
		return f, err
	}

	from, err := clockParam(c, "ignoreTimeFrom", "ignore_time_from")
	if err != nil {
		return f, err
	}
	to, err := clockParam(c, "ignoreTimeTo", "ignore_time_to")
	if err != nil {
		return f, err
	}
	if from != nil && to != nil {
		f.IgnoreFrom, f.IgnoreTo = from, to
	}
	return f, nil
}

// dateRange reads date, or start_date/end_date (either bound optional). With
// none of them it returns def.
func (h *MonitorHandler) dateRange(c *gin.Context, def activity.DateRange) (activity.DateRange, error) {
	if day := query(c, "date"); day != "" {
		r, err := activity.Days(day, day, h.loc())
		if err != nil {
			return r, invalid("date", "expected YYYY-MM-DD")
		}
		return r, nil
	}

	from := query(c, "start_date", "startDate")
	to := query(c, "end_date", "endDate")
	if from == "" && to == "" {
		return def, nil
	}
	r, err := activity.Days(from, to, h.loc())
	if err != nil {
		return r, invalid("start_date", "expected YYYY-MM-DD")
	}
	return r, nil
}

// lastDays is the default range covering today and the n days before it.
func (h *MonitorHandler) lastDays(n int) activity.DateRange {
	return activity.LastDays(h.Store.Now(), n, h.loc())
}

func intParam(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(query(c, key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// pagination reads page (from 1) and limit.
func pagination(c *gin.Context, defLimit int) (page, limit int) {
	return intParam(c, "page", 1), intParam(c, "limit", defLimit)
}

// paginate slices items to the requested page. Pages past the end are empty.
func paginate[T any](items []T, page, limit int) []T {
	if page < 1 || limit < 1 || page-1 > len(items)/limit {
		return []T{}
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	if limit > len(items)-start {
		return items[start:]
	}
	return items[start : start+limit]
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}
