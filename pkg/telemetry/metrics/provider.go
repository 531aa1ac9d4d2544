package metrics

import (
	"context"
	"errors"
	"time"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics tracks per-provider attempt results and health.
//
// Metrics:
//   - relay_gateway_attempts_total: attempts by provider, pool and outcome
//   - relay_gateway_provider_latency_seconds: attempt latency
//   - relay_gateway_provider_errors_total: failed attempts by error class
//   - relay_gateway_provider_health: 1=healthy, 0=unhealthy
type ProviderMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	health   *prometheus.GaugeVec
}

// NewProviderMetrics creates and registers provider metrics.
func NewProviderMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "attempts_total",
				Help:      "Provider attempts by provider, pool and outcome",
			},
			[]string{"provider", "pool", "outcome"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Provider attempt latency in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"provider"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Failed provider attempts by error class",
			},
			[]string{"provider", "error_type"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(pm.attempts, pm.latency, pm.errors, pm.health)
	return pm
}

// RecordAttempt records one attempt and its latency.
func (pm *ProviderMetrics) RecordAttempt(provider, pool, outcome string, d time.Duration) {
	pm.attempts.WithLabelValues(provider, pool, outcome).Inc()
	pm.latency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordError records a failed attempt of class errorType.
func (pm *ProviderMetrics) RecordError(provider, errorType string) {
	pm.errors.WithLabelValues(provider, errorType).Inc()
}

// UpdateHealth sets the health gauge of a provider.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}

// Error classes used as the error_type label.
const (
	ErrorTypeRateLimit     = "rate_limit"
	ErrorTypeTimeout       = "timeout"
	ErrorTypeAuth          = "auth"
	ErrorTypeServerError   = "server_error"
	ErrorTypeClientError   = "client_error"
	ErrorTypeNetwork       = "network"
	ErrorTypeParse         = "parse"
	ErrorTypeEmptyResponse = "empty_response"
	ErrorTypeNotFound      = "not_found"
	ErrorTypeCanceled      = "canceled"
	ErrorTypeOther         = "other"
)

// ClassifyError maps an attempt failure to an error class.
func ClassifyError(err error) string {
	var (
		rateLimit *providers.RateLimitError
		timeout   *providers.TimeoutError
		auth      *providers.AuthError
		parse     *providers.ParseError
		upstream  *providers.ProviderError
	)

	switch {
	case err == nil:
		return ErrorTypeOther
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.As(err, &rateLimit):
		return ErrorTypeRateLimit
	case errors.As(err, &auth):
		return ErrorTypeAuth
	case errors.As(err, &parse):
		return ErrorTypeParse
	case errors.Is(err, routing.ErrEmptyResponse):
		return ErrorTypeEmptyResponse
	case errors.Is(err, providerfactory.ErrProviderNotFound):
		return ErrorTypeNotFound
	case errors.As(err, &upstream):
		switch {
		case upstream.StatusCode >= 500:
			return ErrorTypeServerError
		case upstream.StatusCode >= 400:
			return ErrorTypeClientError
		default:
			return ErrorTypeNetwork
		}
	default:
		return ErrorTypeOther
	}
}
