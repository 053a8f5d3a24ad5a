package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 领域指标

	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_sessions_started_total",
			Help: "Study sessions started, labelled by dominant selection tier",
		},
		[]string{"priority"},
	)

	SessionItemsSelected = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "study_session_items_selected",
			Help:    "Number of items selected per session",
			Buckets: []float64{1, 5, 10, 20, 50, 100},
		},
	)

	AdaptiveAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adaptive_config_adjustments_total",
			Help: "Adaptive config rule applications by rule name",
		},
		[]string{"rule"},
	)

	ConfigConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_config_conflicts_total",
			Help: "Configuration save conflicts (including retried ones)",
		},
	)

	ScheduleUpdateFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedule_update_failures_total",
			Help: "Per-item scheduling updates that failed inside a batch",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(SessionsStarted)
	prometheus.MustRegister(SessionItemsSelected)
	prometheus.MustRegister(AdaptiveAdjustments)
	prometheus.MustRegister(ConfigConflicts)
	prometheus.MustRegister(ScheduleUpdateFailures)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
