package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
	"activity-monitor/internal/store"
)

const periodListLimit = 1000

type periodRequest struct {
	Hostname        string `json:"hostname"`
	Username        string `json:"username"`
	PeriodType      string `json:"period_type"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// ReportPeriod reconciles one agent period report: 201 when it opened a new
// period, 200 when it extended the current one.
func (h *MonitorHandler) ReportPeriod(c *gin.Context) {
	var req periodRequest
	if err := bindJSON(c, &req, "hostname", "username", "period_type", "start_time", "end_time", "duration_seconds"); err != nil {
		respondError(c, err)
		return
	}
	if !models.ValidPeriodType(req.PeriodType) {
		respondError(c, invalid("period_type", "period_type must be active or inactive"))
		return
	}
	start, err := h.parseTime("start_time", req.StartTime)
	if err != nil {
		respondError(c, err)
		return
	}
	end, err := h.parseTime("end_time", req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.Store.ReportPeriod(c.Request.Context(), store.PeriodReport{
		Hostname:        req.Hostname,
		Username:        req.Username,
		PeriodType:      req.PeriodType,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if res.Updated {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "period extended", "id": res.ID, "updated": true})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "period created", "id": res.ID, "updated": false})
}

func (h *MonitorHandler) periodQuery(c *gin.Context) (store.PeriodQuery, error) {
	q := store.PeriodQuery{
		Hostname:   query(c, "hostname"),
		Username:   query(c, "username"),
		PeriodType: query(c, "period_type", "periodType"),
	}
	if q.PeriodType != "" && !models.ValidPeriodType(q.PeriodType) {
		return q, invalid("period_type", "period_type must be active or inactive")
	}
	var err error
	if q.Started, err = h.dateRange(c, activity.DateRange{}); err != nil {
		return q, err
	}
	if q.Gate, err = parseFilters(c); err != nil {
		return q, err
	}
	return q, nil
}

// ListPeriods returns up to 1000 periods, newest start first.
func (h *MonitorHandler) ListPeriods(c *gin.Context) {
	q, err := h.periodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	q.Limit = periodListLimit

	periods, err := h.Store.ListPeriods(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": periods, "total": len(periods)})
}

// PeriodStatistics totals the matching periods by type.
func (h *MonitorHandler) PeriodStatistics(c *gin.Context) {
	q, err := h.periodQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	periods, err := h.Store.ListPeriods(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": activity.SummarizePeriods(periods)})
}

type summaryRow struct {
	models.DailyActivitySummary
	TotalSeconds     int64   `json:"total_seconds"`
	ActivePercentage float64 `json:"active_percentage"`
}

// DailySummaries lists the daily rollup rows (today unless a date or range
// is given).
func (h *MonitorHandler) DailySummaries(c *gin.Context) {
	q := store.SummaryQuery{
		Hostname: query(c, "hostname"),
		Username: query(c, "username"),
	}
	if day := query(c, "date"); day != "" {
		q.From = day
	} else if from, to := query(c, "start_date", "startDate"), query(c, "end_date", "endDate"); from != "" && to != "" {
		q.From, q.To = from, to
	}
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := activity.ParseDate(d, h.loc()); err != nil {
			respondError(c, invalid("date", "expected YYYY-MM-DD"))
			return
		}
	}

	rows, err := h.Store.ListSummaries(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]summaryRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, summaryRow{
			DailyActivitySummary: r,
			TotalSeconds:         r.TotalActiveSeconds + r.TotalInactiveSeconds,
			ActivePercentage:     activity.SummaryPercentage(r),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}
