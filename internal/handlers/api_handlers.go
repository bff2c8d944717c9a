package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"activity-monitor/internal/activity"
	"activity-monitor/internal/logging"
	"activity-monitor/internal/models"
	"activity-monitor/internal/store"
)

type MonitorHandler struct {
	Store         *store.Store
	RetentionDays int
}

func NewMonitorHandler(st *store.Store, retentionDays int) *MonitorHandler {
	return &MonitorHandler{
		Store:         st,
		RetentionDays: retentionDays,
	}
}

// Register mounts every endpoint on rg.
func (h *MonitorHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.Index)
	rg.GET("/", h.Index)
	rg.GET("/health", h.Health)

	rg.POST("/activity-periods", h.ReportPeriod)
	rg.GET("/activity-periods", h.ListPeriods)
	rg.GET("/activity-period-statistics", h.PeriodStatistics)
	rg.GET("/activity-statistics", h.DailySummaries)

	rg.POST("/window-activity", h.CreateWindowActivity)
	rg.PUT("/window-activity/:id", h.UpdateWindowActivity)
	rg.GET("/window-activities", h.ListWindowActivities)
	rg.GET("/window-activities/:id", h.GetWindowActivity)

	rg.POST("/mouse-activity", h.RecordInput)
	rg.POST("/windows-snapshot", h.SaveSnapshot)

	rg.POST("/computer/register", h.RegisterComputer)
	rg.GET("/computers", h.ListComputers)
	rg.GET("/computers/activity-status", h.ActivityStatuses)
	rg.GET("/computers/:hostname/:username/activity-status", h.ActivityStatus)
	rg.GET("/computers/:hostname/:username/windows-snapshot", h.GetSnapshot)
	rg.GET("/computers/:hostname/:username/current-activity", h.CurrentActivity)
	rg.GET("/computers/:hostname/:username/recent-activities", h.RecentActivities)
	rg.DELETE("/computers/:hostname/:username/records", h.PurgeComputer)

	rg.GET("/stats/daily", h.DailyStats)
	rg.GET("/top-applications", h.TopApplications)

	rg.GET("/users", h.ListUsers)
	rg.GET("/users/compare", h.CompareUsers)
	rg.GET("/users/:username/stats", h.UserStats)
	rg.GET("/users/:username/applications", h.UserApplications)
	rg.GET("/users/:username/applications/:executable/activities", h.ApplicationActivities)
	rg.DELETE("/users/:username/records", h.PurgeUser)

	rg.GET("/ignored-executables", h.ListIgnored)
	rg.POST("/ignored-executables", h.AddIgnored)
	rg.DELETE("/ignored-executables/:id", h.RemoveIgnored)

	rg.DELETE("/cleanup/all", h.CleanupAll)
	rg.DELETE("/cleanup/old", h.CleanupOld)
}

func (h *MonitorHandler) loc() *time.Location { return h.Store.Location() }

// respondError maps err onto the status taxonomy. Storage failures are
// logged with the request id.
func respondError(c *gin.Context, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		body := gin.H{"success": false, "message": ve.Error()}
		if len(ve.Fields) > 0 {
			body["missing_fields"] = ve.Fields
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "not found"})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
	default:
		logging.Logger.Error("request failed",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error", "error": err.Error()})
	}
}

func invalid(field, reason string) error {
	return &models.ValidationError{Fields: []string{field}, Reason: reason}
}

// bindJSON decodes the body into dst after checking that every required
// field is present and not blank. Empty strings and empty lists count as
// missing; zero numbers do not.
func bindJSON(c *gin.Context, dst any, required ...string) error {
	body, err := c.GetRawData()
	if err != nil {
		return invalid("body", "unreadable request body")
	}
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return &models.ValidationError{Reason: "request body must be a JSON object"}
	}

	var missing []string
	for _, field := range required {
		if isBlank(raw[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &models.ValidationError{Fields: missing}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &models.ValidationError{Reason: "invalid field type: " + err.Error()}
	}
	return nil
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

func (h *MonitorHandler) parseTime(field, value string) (time.Time, error) {
	t, err := activity.ParseTimestamp(value, h.loc())
	if err != nil {
		return time.Time{}, invalid(field, "invalid timestamp")
	}
	return t, nil
}

func pathID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, invalid("id", "id must be a positive integer")
	}
	return uint(id), nil
}

// Index lists the available endpoints.
func (h *MonitorHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Activity monitor API",
		"endpoints": []string{
			"POST /api/activity-periods",
			"GET /api/activity-periods",
			"GET /api/activity-period-statistics",
			"GET /api/activity-statistics",
			"POST /api/window-activity",
			"PUT /api/window-activity/{id}",
			"GET /api/window-activities",
			"POST /api/mouse-activity",
			"POST /api/windows-snapshot",
			"GET /api/computers",
			"GET /api/computers/activity-status",
			"GET /api/users/{username}/stats",
			"GET /api/top-applications",
			"GET /api/ignored-executables",
			"DELETE /api/cleanup/old",
			"GET /metrics",
		},
	})
}

// Health pings the database.
func (h *MonitorHandler) Health(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "healthy", "timestamp": h.Store.Now().In(h.loc())})
}
