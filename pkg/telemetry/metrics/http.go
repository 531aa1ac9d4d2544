package metrics

import (
	"strconv"
	"time"

	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks requests served by the HTTP surface.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"path", "status"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"path"},
		),
	}

	registry.MustRegister(hm.requests, hm.duration)
	return hm
}

// RecordRequest records one served request.
func (hm *HTTPMetrics) RecordRequest(path string, status int, d time.Duration) {
	hm.requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	hm.duration.WithLabelValues(path).Observe(d.Seconds())
}
