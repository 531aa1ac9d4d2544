package providerfactory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/providers"
)

// ErrProviderNotFound is returned by GetProvider for unknown names.
var ErrProviderNotFound = errors.New("provider not found")

// Manager owns the live provider instances, keyed by identifier. It is safe
// for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	providers map[string]providers.Provider
	observer  providers.HealthObserver
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithHealthObserver forwards provider health transitions to fn.
func WithHealthObserver(fn providers.HealthObserver) Option {
	return func(m *Manager) { m.observer = fn }
}

// NewManager creates an empty manager.
func NewManager(opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		providers: make(map[string]providers.Provider),
		logger:    slog.Default().With("component", "providerfactory"),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddProvider builds a provider from cfg and registers it, replacing and
// closing any provider already registered under the same name.
func (m *Manager) AddProvider(cfg providers.ProviderConfig) error {
	p, err := NewProviderWithHealthCheck(m.ctx, cfg)
	if err != nil {
		return err
	}
	m.Register(p)
	return nil
}

// Register adds an already constructed provider.
func (m *Manager) Register(p providers.Provider) {
	if m.observer != nil {
		if ho, ok := p.(providers.HealthObservable); ok {
			ho.SetHealthObserver(m.observer)
		}
		m.observer(p.GetName(), p.IsHealthy())
	}

	m.mu.Lock()
	old, replaced := m.providers[p.GetName()]
	m.providers[p.GetName()] = p
	total := len(m.providers)
	m.mu.Unlock()

	if replaced && old != p {
		m.logger.Warn("replacing existing provider", "name", p.GetName())
		_ = old.Close()
	}
	m.logger.Info("provider registered", "name", p.GetName(), "type", p.GetType(), "total_providers", total)
}

// GetProvider returns the provider registered under name.
func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return p, nil
}

// Names returns the registered identifiers in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the number of registered providers.
func (m *Manager) ProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.providers)
}

// HealthyProviderCount returns the number of providers reporting healthy.
func (m *Manager) HealthyProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, p := range m.providers {
		if p.IsHealthy() {
			n++
		}
	}
	return n
}

// LoadFromConfig registers every provider referenced by the routing pools.
// Providers defined but not pooled are skipped. All construction errors are
// returned together.
func (m *Manager) LoadFromConfig(cfg *config.Config) error {
	var errs []error
	for _, name := range cfg.Routing.PoolMembers() {
		pc, ok := cfg.Providers[name]
		if !ok {
			errs = append(errs, fmt.Errorf("provider %q is pooled but not defined", name))
			continue
		}
		if err := m.AddProvider(FromConfig(name, pc)); err != nil {
			m.logger.Error("failed to load provider", "name", name, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to load %d provider(s): %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Close stops health checkers and closes every provider.
func (m *Manager) Close() error {
	m.cancel()

	m.mu.Lock()
	ps := m.providers
	m.providers = make(map[string]providers.Provider)
	m.mu.Unlock()

	var errs []error
	for name, p := range ps {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// HealthSummary is an overview of provider health.
type HealthSummary struct {
	Total     int
	Healthy   int
	Unhealthy int
	Details   map[string]providers.ProviderHealth
}

// GetHealthSummary returns the health of every registered provider.
func (m *Manager) GetHealthSummary() HealthSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := HealthSummary{Total: len(m.providers), Details: make(map[string]providers.ProviderHealth, len(m.providers))}
	for name, p := range m.providers {
		h := p.GetHealth()
		s.Details[name] = h
		if h.IsHealthy {
			s.Healthy++
		}
	}
	s.Unhealthy = s.Total - s.Healthy
	return s
}
