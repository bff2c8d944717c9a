package handlers

import (
	"github.com/gin-gonic/gin"

	"activity-monitor/internal/metrics"
)

// NewRouter builds the engine with middleware, the API under /api and the
// Prometheus endpoint.
func NewRouter(h *MonitorHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(), metrics.Middleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/health", h.Health)
	h.Register(r.Group("/api"))
	return r
}
