package monitoring

import (
	"strconv"
	"sync"
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

	ProgressUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_updates_total",
			Help: "Content progress mutations by result",
		},
		[]string{"result"},
	)

	ContentCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_completions_total",
			Help: "Progress records transitioned into completed, by content type",
		},
		[]string{"type"},
	)

	PointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "points_awarded_total",
			Help: "Points credited to users, by content type",
		},
		[]string{"type"},
	)

	EnrollmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_transitions_total",
			Help: "Enrollment lifecycle transitions",
		},
		[]string{"from", "to"},
	)

	StreakUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_updates_total",
			Help: "Streak state machine evaluations by action",
		},
		[]string{"action"},
	)

	AggregationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregation_conflicts_total",
			Help: "Enrollment compare-and-set misses during aggregation",
		},
	)

	AggregationRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregation_retries_total",
			Help: "Aggregation attempts retried after a concurrency conflict",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ProgressUpdates,
			ContentCompletions,
			PointsAwarded,
			EnrollmentTransitions,
			StreakUpdates,
			AggregationConflicts,
			AggregationRetries,
		)
	})
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
