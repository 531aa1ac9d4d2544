package providertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mercator-hq/relay/pkg/providers"
)

// Outcome is one scripted response of a Scripted provider.
type Outcome struct {
	Content string
	Err     error
	Delay   time.Duration
	Panic   bool
}

// Succeed returns an outcome that completes with content.
func Succeed(content string) Outcome { return Outcome{Content: content} }

// Fail returns an outcome that fails with msg.
func Fail(msg string) Outcome { return Outcome{Err: errors.New(msg)} }

// Scripted is an in-memory provider whose responses are scripted. Once the
// script is exhausted the last outcome repeats.
type Scripted struct {
	name string

	mu       sync.Mutex
	script   []Outcome
	calls    int
	requests []*providers.CompletionRequest
	healthy  bool
	closed   bool
}

// NewScripted creates a provider that plays outcomes in order. With no
// outcomes it always succeeds with "ok from <name>".
func NewScripted(name string, outcomes ...Outcome) *Scripted {
	if len(outcomes) == 0 {
		outcomes = []Outcome{Succeed("ok from " + name)}
	}
	return &Scripted{name: name, script: outcomes, healthy: true}
}

// Failing creates a provider that always fails.
func Failing(name string) *Scripted {
	return NewScripted(name, Fail(name+": failed"))
}

// SendCompletion plays the next scripted outcome.
func (s *Scripted) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	s.mu.Lock()
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	out := s.script[idx]
	s.calls++
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if out.Delay > 0 {
		select {
		case <-time.After(out.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if out.Panic {
		panic(fmt.Sprintf("scripted panic in %s", s.name))
	}
	if out.Err != nil {
		return nil, out.Err
	}
	return &providers.CompletionResponse{
		ID:           "scripted-" + s.name,
		Model:        req.Model,
		Content:      out.Content,
		FinishReason: providers.FinishReasonStop,
	}, nil
}

// Calls returns how many completions were requested.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// LastRequest returns the most recent request, or nil.
func (s *Scripted) LastRequest() *providers.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

// SetHealthy sets the reported health.
func (s *Scripted) SetHealthy(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = ok
}

func (s *Scripted) HealthCheck(ctx context.Context) error {
	if !s.IsHealthy() {
		return fmt.Errorf("provider %s is unhealthy", s.name)
	}
	return nil
}

func (s *Scripted) GetName() string { return s.name }

func (s *Scripted) GetType() string { return "scripted" }

func (s *Scripted) GetConfig() providers.ProviderConfig {
	return providers.ProviderConfig{Name: s.name, Type: "scripted"}
}

func (s *Scripted) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy
}

func (s *Scripted) GetHealth() providers.ProviderHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return providers.ProviderHealth{IsHealthy: s.healthy, TotalRequests: int64(s.calls)}
}

// Close marks the provider closed.
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Resolver maps names to providers for orchestrator tests.
type Resolver map[string]providers.Provider

// GetProvider implements the orchestrator's provider lookup.
func (r Resolver) GetProvider(name string) (providers.Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not found", name)
	}
	return p, nil
}

// NewResolver builds a Resolver from scripted providers.
func NewResolver(ps ...*Scripted) Resolver {
	r := make(Resolver, len(ps))
	for _, p := range ps {
		r[p.GetName()] = p
	}
	return r
}
