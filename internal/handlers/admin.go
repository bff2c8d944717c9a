package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"activity-monitor/internal/logging"
	"activity-monitor/internal/store"
)

// ListIgnored returns the ignore list.
func (h *MonitorHandler) ListIgnored(c *gin.Context) {
	rows, err := h.Store.ListIgnored(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rows, "total": len(rows)})
}

// AddIgnored puts an executable on the ignore list; 409 if already there.
func (h *MonitorHandler) AddIgnored(c *gin.Context) {
	var req struct {
		Executable  string  `json:"executable"`
		Description *string `json:"description"`
	}
	if err := bindJSON(c, &req, "executable"); err != nil {
		respondError(c, err)
		return
	}
	row, err := h.Store.AddIgnored(c.Request.Context(), req.Executable, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "executable ignored",
		"data":    gin.H{"id": row.ID, "executable": row.Executable},
	})
}

// RemoveIgnored deletes an ignore-list entry.
func (h *MonitorHandler) RemoveIgnored(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Store.RemoveIgnored(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "executable removed from ignore list"})
}

func (h *MonitorHandler) respondDeleted(c *gin.Context, what string, deleted store.Deleted, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	logging.Logger.Warn("records deleted",
		"scope", what,
		"total", deleted.Total(),
		"request_id", c.GetString(requestIDKey),
	)
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          what,
		"deleted_by_table": deleted,
		"total_deleted":    deleted.Total(),
	})
}

// CleanupAll empties every activity table.
func (h *MonitorHandler) CleanupAll(c *gin.Context) {
	deleted, err := h.Store.CleanupAll(c.Request.Context())
	h.respondDeleted(c, "all activity data removed", deleted, err)
}

// CleanupOld removes rows older than the retention horizon.
func (h *MonitorHandler) CleanupOld(c *gin.Context) {
	days := intParam(c, "days", h.RetentionDays)
	deleted, err := h.Store.CleanupOlderThan(c.Request.Context(), days)
	h.respondDeleted(c, "old activity data removed", deleted, err)
}

// PurgeUser removes every row of a username across hosts.
func (h *MonitorHandler) PurgeUser(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if username == "" {
		respondError(c, invalid("username", "username is required"))
		return
	}
	deleted, err := h.Store.PurgeUser(c.Request.Context(), username)
	h.respondDeleted(c, "user records removed", deleted, err)
}

// PurgeComputer removes every row of one (hostname, username).
func (h *MonitorHandler) PurgeComputer(c *gin.Context) {
	deleted, err := h.Store.PurgeComputer(c.Request.Context(), c.Param("hostname"), c.Param("username"))
	h.respondDeleted(c, "computer records removed", deleted, err)
}
