// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "activity_monitor"

var registry = prometheus.NewRegistry()

var (
	// PeriodReports counts reconciled period reports by outcome
	// ("created" or "extended").
	PeriodReports = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "period_reports_total",
		Help:      "Period reports reconciled, by outcome.",
	}, []string{"outcome"})

	// SummaryFailures counts daily summary updates that failed after the
	// period write itself succeeded.
	SummaryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summary_failures_total",
		Help:      "Daily summary updates that failed.",
	})

	// RetentionDeleted counts rows removed by scheduled retention runs.
	RetentionDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retention_deleted_rows_total",
		Help:      "Rows deleted by retention runs, by table.",
	}, []string{"table"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		PeriodReports,
		SummaryFailures,
		RetentionDeleted,
		requestDuration,
	)
}

// Registry exposes the collectors for tests.
func Registry() *prometheus.Registry { return registry }

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Middleware observes request latency labelled by route template, so path
// parameters do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
