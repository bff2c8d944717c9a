package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
	"activity-monitor/internal/store"
)

type statusView struct {
	Hostname             string          `json:"hostname"`
	Username             string          `json:"username"`
	Status               activity.Status `json:"status"`
	LastActivity         *time.Time      `json:"last_activity"`
	SecondsSinceActivity *int64          `json:"seconds_since_activity"`
	LastSnapshot         *time.Time      `json:"last_snapshot"`
	SecondsSinceSnapshot *int64          `json:"seconds_since_snapshot"`
}

func (h *MonitorHandler) statusOf(now time.Time, p store.Presence) statusView {
	return statusView{
		Hostname:             p.Hostname,
		Username:             p.Username,
		Status:               p.Status(now),
		LastActivity:         p.LastInput,
		SecondsSinceActivity: activity.SecondsSince(now, p.LastInput),
		LastSnapshot:         p.LastSnapshot,
		SecondsSinceSnapshot: activity.SecondsSince(now, p.LastSnapshot),
	}
}

// ActivityStatuses classifies every known (hostname, username).
func (h *MonitorHandler) ActivityStatuses(c *gin.Context) {
	presence, err := h.Store.ListPresence(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	now := h.Store.Now()
	out := make([]statusView, 0, len(presence))
	for _, p := range presence {
		out = append(out, h.statusOf(now, p))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": out})
}

// ActivityStatus classifies one key. Unknown keys get 404 with status
// "unknown".
func (h *MonitorHandler) ActivityStatus(c *gin.Context) {
	host, user := c.Param("hostname"), c.Param("username")
	p, err := h.Store.GetPresence(c.Request.Context(), host, user)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "no activity found for this computer",
			"data": gin.H{
				"hostname":               host,
				"username":               user,
				"status":                 "unknown",
				"seconds_since_activity": nil,
			},
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.statusOf(h.Store.Now(), p)})
}

// GetSnapshot returns the key's open windows if reported in the last five
// minutes.
func (h *MonitorHandler) GetSnapshot(c *gin.Context) {
	snap, err := h.Store.RecentSnapshot(c.Request.Context(), c.Param("hostname"), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	active, others := snap.Active()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"hostname":      snap.Hostname,
			"username":      snap.Username,
			"timestamp":     snap.Timestamp,
			"seconds_ago":   activity.SecondsSince(h.Store.Now(), &snap.Timestamp),
			"active_window": active,
			"other_windows": others,
			"total_windows": len(snap.Windows),
		},
	})
}

// CurrentActivity returns the latest session started in the last five
// minutes.
func (h *MonitorHandler) CurrentActivity(c *gin.Context) {
	ev, err := h.Store.CurrentActivity(c.Request.Context(), c.Param("hostname"), c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": currentView(h.Store.Now(), ev)})
}

// RecentActivities lists the sessions of the last `minutes` (default 30)
// with a small summary.
func (h *MonitorHandler) RecentActivities(c *gin.Context) {
	minutes := intParam(c, "minutes", 30)
	events, err := h.Store.RecentEvents(c.Request.Context(), c.Param("hostname"), c.Param("username"), minutes)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.Store.Now()
	views := make([]sessionView, 0, len(events))
	for _, ev := range events {
		views = append(views, sessionView{ActivityEvent: ev, CurrentDuration: activity.CurrentDuration(now, ev)})
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"activities": views,
			"stats":      activity.SummarizeRecent(now, events, minutes),
		},
	})
}

// ListComputers is the projection of keys seen in activity events.
func (h *MonitorHandler) ListComputers(c *gin.Context) {
	computers, err := h.Store.ListComputers(c.Request.Context(), query(c, "hostname"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": computers, "total": len(computers)})
}

// RegisterComputer validates the payload only. Computers exist through the
// rows that reference them.
func (h *MonitorHandler) RegisterComputer(c *gin.Context) {
	var req struct {
		Hostname string `json:"hostname"`
	}
	if err := bindJSON(c, &req, "hostname"); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "computer registered",
		"data":    gin.H{"hostname": req.Hostname},
	})
}
