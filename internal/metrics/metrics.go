// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream providers.
const (
	ProviderForecast  = "open_meteo_forecast"
	ProviderGeocoding = "open_meteo_geocoding"
	ProviderAI        = "ai_completion"
)

// Upstream outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeRateLimited = "rate_limited"
)

const unmatchedPath = "unmatched"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherfav_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherfav_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherfav_http_active_requests",
			Help: "Number of in-flight HTTP requests",
		},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherfav_upstream_requests_total",
			Help: "Outbound calls to weather and AI providers",
		},
		[]string{"provider", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherfav_upstream_duration_seconds",
			Help:    "Outbound call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	ForecastStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherfav_forecast_streams_active",
			Help: "Open websocket forecast streams",
		},
	)
)

// ObserveUpstream records one outbound call that started at start.
func ObserveUpstream(provider, outcome string, start time.Time) {
	UpstreamRequestsTotal.WithLabelValues(provider, outcome).Inc()
	UpstreamDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// Middleware records request count and latency keyed by the route template,
// so path parameters do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		HTTPActiveRequests.Inc()
		defer HTTPActiveRequests.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		status := strconv.Itoa(c.Writer.Status())
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
