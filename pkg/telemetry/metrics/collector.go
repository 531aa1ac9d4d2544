package metrics

import (
	"context"
	"sync"
	"time"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/routing"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamespace = "relay"
	defaultSubsystem = "gateway"

	// maxLabelValues bounds the distinct provider and path label values.
	maxLabelValues = 1000

	// overflowLabel replaces label values past the cardinality limit.
	overflowLabel = "other"
)

// DefaultDurationBuckets suit LLM completion latencies (100ms to 60s).
var DefaultDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Collector records gateway metrics into its own Prometheus registry.
// A disabled collector accepts every call and records nothing.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	gateway  *GatewayMetrics
	provider *ProviderMetrics
	http     *HTTPMetrics

	providers *CardinalityLimiter
	paths     *CardinalityLimiter
}

var _ routing.Observer = (*Collector)(nil)

// NewCollector creates a collector and registers its metrics with registry.
// If registry is nil a fresh one is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = defaultNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = defaultSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultDurationBuckets
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		gateway:   NewGatewayMetrics(cfg, registry),
		provider:  NewProviderMetrics(cfg, registry),
		http:      NewHTTPMetrics(cfg, registry),
		providers: NewCardinalityLimiter(maxLabelValues),
		paths:     NewCardinalityLimiter(maxLabelValues),
	}
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// ObserveAttempt records one provider attempt.
func (c *Collector) ObserveAttempt(_ context.Context, a routing.Attempt) {
	if !c.config.Enabled {
		return
	}

	provider := c.providerLabel(a.Provider)
	c.provider.RecordAttempt(provider, string(a.Pool), string(a.Outcome), a.Duration)
	if a.Outcome == routing.OutcomeFailure {
		c.provider.RecordError(provider, ClassifyError(a.Err))
	}
}

// ObserveOrchestration records one completed orchestration.
func (c *Collector) ObserveOrchestration(_ context.Context, r routing.Report) {
	if !c.config.Enabled {
		return
	}

	phase := string(r.Pool)
	if r.Outcome != routing.OutcomeSuccess {
		phase = "none"
	}
	c.gateway.RecordOrchestration(string(r.Outcome), phase, r.Duration)
}

// UpdateProviderHealth sets the health gauge of a provider. Its signature
// matches providers.HealthObserver.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	c.provider.UpdateHealth(c.providerLabel(provider), healthy)
}

// SetInFlight sets the number of orchestrations holding a dispatcher
// worker. Its signature matches the dispatcher's in-flight gauge callback.
func (c *Collector) SetInFlight(n int64) {
	if !c.config.Enabled {
		return
	}
	c.gateway.SetInFlight(n)
}

// RecordHTTPRequest records a served HTTP request. path should be the
// route pattern rather than the raw URL.
func (c *Collector) RecordHTTPRequest(path string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	if !c.paths.Allow(path) {
		path = overflowLabel
	}
	c.http.RecordRequest(path, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) providerLabel(name string) string {
	if !c.providers.Allow(name) {
		return overflowLabel
	}
	return name
}

// CardinalityLimiter caps the number of distinct values admitted for a
// label.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality
// distinct values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already known or still fits under the
// limit, admitting it in the latter case.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
