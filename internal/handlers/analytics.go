package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/store"
)

const (
	userStatsDefaultDays = 30
	recentDefaultDays    = 7
	compareLimit         = 20
)

// UserStats aggregates one user's clipped activity (last 30 days unless a
// date or range is given). Ignored executables are left out.
func (h *MonitorHandler) UserStats(c *gin.Context) {
	username := c.Param("username")
	r, err := h.dateRange(c, h.lastDays(userStatsDefaultDays))
	if err != nil {
		respondError(c, err)
		return
	}
	f, err := parseFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.Store.ListEvents(c.Request.Context(), store.EventQuery{
		Username:       username,
		Started:        r,
		ExcludeIgnored: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"username": username,
		"data":     activity.ComputeUserStats(events, f),
	})
}

// UserApplications breaks one user's clipped time down per executable.
func (h *MonitorHandler) UserApplications(c *gin.Context) {
	username := c.Param("username")
	r, err := h.dateRange(c, h.lastDays(userStatsDefaultDays))
	if err != nil {
		respondError(c, err)
		return
	}
	f, err := parseFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.Store.ListEvents(c.Request.Context(), store.EventQuery{
		Username:       username,
		ExecutableLike: query(c, "app"),
		Started:        r,
		ExcludeIgnored: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apps := activity.UserApplications(events, f, query(c, "app"))
	c.JSON(http.StatusOK, gin.H{"success": true, "username": username, "data": apps, "total": len(apps)})
}

// ApplicationActivities pages through one user's sessions of an executable,
// newest first. Time-of-day filters gate on the session start.
func (h *MonitorHandler) ApplicationActivities(c *gin.Context) {
	username, executable := c.Param("username"), c.Param("executable")
	r, err := h.dateRange(c, activity.DateRange{})
	if err != nil {
		respondError(c, err)
		return
	}
	gate, err := parseFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.Store.ListEvents(c.Request.Context(), store.EventQuery{
		Username:   username,
		Executable: executable,
		Started:    r,
		Newest:     true,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	events = activity.GateEvents(events, gate)

	page, limit := pagination(c, defaultPageSize)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"username":   username,
		"executable": executable,
		"data":       paginate(events, page, limit),
		"pagination": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       len(events),
			"total_pages": totalPages(len(events), limit),
		},
	})
}

// TopApplications ranks executables across every matching user by clipped
// time. businessHours=true restricts to weekdays here.
func (h *MonitorHandler) TopApplications(c *gin.Context) {
	r, err := h.dateRange(c, activity.DateRange{})
	if err != nil {
		respondError(c, err)
		return
	}
	f, err := parseWeekdayFilters(c)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.Store.ListEvents(c.Request.Context(), store.EventQuery{
		Hostname:       query(c, "hostname"),
		Username:       query(c, "username"),
		Started:        r,
		ExcludeIgnored: true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	apps := activity.TopApplications(events, f, intParam(c, "limit", activity.DefaultTopAppLimit))
	c.JSON(http.StatusOK, gin.H{"success": true, "data": apps})
}

// ListUsers totals activity per (username, hostname).
func (h *MonitorHandler) ListUsers(c *gin.Context) {
	r, err := h.dateRange(c, activity.DateRange{})
	if err != nil {
		respondError(c, err)
		return
	}
	users, err := h.Store.UserTotals(c.Request.Context(), r, 0)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": users, "total": len(users)})
}

// CompareUsers ranks the 20 busiest users (last 7 days by default).
func (h *MonitorHandler) CompareUsers(c *gin.Context) {
	r, err := h.dateRange(c, h.lastDays(recentDefaultDays))
	if err != nil {
		respondError(c, err)
		return
	}
	users, err := h.Store.UserTotals(c.Request.Context(), r, compareLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
}

// DailyStats rolls raw sessions up per date, hostname and username (last 7
// days by default).
func (h *MonitorHandler) DailyStats(c *gin.Context) {
	r, err := h.dateRange(c, h.lastDays(recentDefaultDays))
	if err != nil {
		respondError(c, err)
		return
	}
	events, err := h.Store.ListEvents(c.Request.Context(), store.EventQuery{
		Hostname: query(c, "hostname"),
		Username: query(c, "username"),
		Started:  r,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": activity.DailyBreakdown(events)})
}
