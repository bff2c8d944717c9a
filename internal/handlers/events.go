package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/models"
	"activity-monitor/internal/store"
)

const defaultPageSize = 50

type windowActivityRequest struct {
	Hostname        string  `json:"hostname"`
	Username        string  `json:"username"`
	Executable      string  `json:"executable"`
	PID             int     `json:"pid"`
	WindowTitle     *string `json:"window_title"`
	StartTime       *string `json:"start_time"`
	EndTime         *string `json:"end_time"`
	DurationSeconds *int64  `json:"duration_seconds"`
	// Older agents send the singular spelling.
	DurationSecond *int64 `json:"duration_second"`
}

func (r windowActivityRequest) duration() *int64 {
	if r.DurationSeconds != nil {
		return r.DurationSeconds
	}
	return r.DurationSecond
}

// CreateWindowActivity stores a focus session reported by an agent.
func (h *MonitorHandler) CreateWindowActivity(c *gin.Context) {
	var req windowActivityRequest
	if err := bindJSON(c, &req, "hostname", "username", "executable", "pid", "start_time"); err != nil {
		respondError(c, err)
		return
	}

	start, err := h.parseTime("start_time", *req.StartTime)
	if err != nil {
		respondError(c, err)
		return
	}
	ev := models.ActivityEvent{
		Hostname:        req.Hostname,
		Username:        req.Username,
		Executable:      req.Executable,
		PID:             req.PID,
		WindowTitle:     req.WindowTitle,
		StartTime:       start,
		DurationSeconds: req.duration(),
	}
	if req.EndTime != nil && *req.EndTime != "" {
		end, err := h.parseTime("end_time", *req.EndTime)
		if err != nil {
			respondError(c, err)
			return
		}
		ev.EndTime = &end
	}

	if err := h.Store.CreateEvent(c.Request.Context(), &ev); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "activity recorded",
		"data":    gin.H{"id": ev.ID, "hostname": ev.Hostname, "username": ev.Username},
	})
}

// UpdateWindowActivity closes or checkpoints a session.
func (h *MonitorHandler) UpdateWindowActivity(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var req windowActivityRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	var upd store.EventUpdate
	if req.StartTime != nil {
		t, err := h.parseTime("start_time", *req.StartTime)
		if err != nil {
			respondError(c, err)
			return
		}
		upd.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := h.parseTime("end_time", *req.EndTime)
		if err != nil {
			respondError(c, err)
			return
		}
		upd.EndTime = &t
	}
	upd.DurationSeconds = req.duration()

	if err := h.Store.UpdateEvent(c.Request.Context(), id, upd); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "activity updated"})
}

// GetWindowActivity returns one session.
func (h *MonitorHandler) GetWindowActivity(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	ev, err := h.Store.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": ev})
}

// ListWindowActivities pages through sessions, newest first, with totals for
// the whole filtered set.
func (h *MonitorHandler) ListWindowActivities(c *gin.Context) {
	started, err := h.dateRange(c, activity.DateRange{})
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
		Hostname:       query(c, "hostname"),
		Username:       query(c, "username"),
		ExecutableLike: query(c, "executable"),
		Started:        started,
		Newest:         true,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	events = activity.GateEvents(events, gate)

	var totalSeconds int64
	for _, ev := range events {
		if ev.DurationSeconds != nil {
			totalSeconds += *ev.DurationSeconds
		}
	}

	page, limit := pagination(c, defaultPageSize)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    paginate(events, page, limit),
		"statistics": gin.H{
			"total_active_seconds": totalSeconds,
			"total_activities":     len(events),
		},
		"pagination": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       len(events),
			"total_pages": totalPages(len(events), limit),
		},
	})
}

// RecordInput upserts the last input time of a key.
func (h *MonitorHandler) RecordInput(c *gin.Context) {
	var req struct {
		Hostname     string `json:"hostname"`
		Username     string `json:"username"`
		LastActivity string `json:"last_activity"`
	}
	if err := bindJSON(c, &req, "hostname", "username", "last_activity"); err != nil {
		respondError(c, err)
		return
	}
	at, err := h.parseTime("last_activity", req.LastActivity)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Store.RecordInput(c.Request.Context(), req.Hostname, req.Username, at); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "input activity recorded"})
}

// SaveSnapshot replaces the open-windows snapshot of a key.
func (h *MonitorHandler) SaveSnapshot(c *gin.Context) {
	var req struct {
		Hostname  string              `json:"hostname"`
		Username  string              `json:"username"`
		Timestamp string              `json:"timestamp"`
		Windows   []models.OpenWindow `json:"windows"`
	}
	if err := bindJSON(c, &req, "hostname", "username", "timestamp", "windows"); err != nil {
		respondError(c, err)
		return
	}
	ts, err := h.parseTime("timestamp", req.Timestamp)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Store.SaveSnapshot(c.Request.Context(), req.Hostname, req.Username, ts, req.Windows); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "snapshot saved",
		"data":    gin.H{"windows_count": len(req.Windows)},
	})
}

type sessionView struct {
	models.ActivityEvent
	CurrentDuration int64  `json:"current_duration"`
	ActivityStatus  string `json:"activity_status,omitempty"`
}

func currentView(now time.Time, ev models.ActivityEvent) sessionView {
	v := sessionView{ActivityEvent: ev, CurrentDuration: activity.CurrentDuration(now, ev)}
	if now.Sub(ev.StartTime) < 2*time.Minute {
		v.ActivityStatus = "active"
	} else {
		v.ActivityStatus = "recent"
	}
	return v
}
