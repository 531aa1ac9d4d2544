package metrics

import (
	"time"

	"mercator-hq/relay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics tracks orchestration outcomes and dispatcher occupancy.
type GatewayMetrics struct {
	orchestrations *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

// NewGatewayMetrics creates and registers gateway metrics.
func NewGatewayMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *GatewayMetrics {
	gm := &GatewayMetrics{
		orchestrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "orchestrations_total",
				Help:      "Completed fallback orchestrations by outcome and serving phase",
			},
			[]string{"outcome", "phase"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "orchestration_duration_seconds",
				Help:      "Wall time of fallback orchestrations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"outcome"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "dispatcher_in_flight",
				Help:      "Orchestrations currently holding a dispatcher worker",
			},
		),
	}

	registry.MustRegister(gm.orchestrations, gm.duration, gm.inFlight)
	return gm
}

// RecordOrchestration records one orchestration. phase is the pool that
// served it, or "none" when every provider failed.
func (gm *GatewayMetrics) RecordOrchestration(outcome, phase string, duration time.Duration) {
	gm.orchestrations.WithLabelValues(outcome, phase).Inc()
	gm.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetInFlight sets the dispatcher occupancy gauge.
func (gm *GatewayMetrics) SetInFlight(n int64) {
	gm.inFlight.Set(float64(n))
}
