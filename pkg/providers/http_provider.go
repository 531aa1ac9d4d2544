package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/relay/pkg/telemetry/tracing"
)

// unhealthyThreshold is the number of consecutive failures after which a
// provider is reported unhealthy.
const unhealthyThreshold = 3

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 512

// HTTPProvider carries the transport, retry and health bookkeeping shared by
// the HTTP adapters. Adapters embed it and add SendCompletion.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client
	logger *slog.Logger

	// retryBase is the first backoff delay between transport retries.
	retryBase time.Duration

	mu       sync.RWMutex
	health   ProviderHealth
	observer HealthObserver
	probe    func(ctx context.Context) error

	closed      atomic.Bool
	closeOnce   sync.Once
	stop        chan struct{}
	checkerUp   atomic.Bool
	checkerDone chan struct{}
}

// NewHTTPProvider builds the shared transport for an adapter.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}

	now := time.Now()
	p := &HTTPProvider{
		config:    config,
		client:    &http.Client{Transport: transport, Timeout: config.Timeout},
		logger:    slog.Default().With("component", "providers", "provider", config.Name),
		retryBase: time.Second,
		health: ProviderHealth{
			IsHealthy:             true,
			LastCheck:             now,
			LastSuccessfulRequest: now,
		},
		stop:        make(chan struct{}),
		checkerDone: make(chan struct{}),
	}
	p.probe = p.defaultProbe
	return p
}

// GetName returns the provider identifier.
func (p *HTTPProvider) GetName() string { return p.config.Name }

// GetType returns the adapter type.
func (p *HTTPProvider) GetType() string { return p.config.Type }

// GetConfig returns the provider configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig { return p.config }

// Logger returns the provider-scoped logger.
func (p *HTTPProvider) Logger() *slog.Logger { return p.logger }

// IsHealthy reports the current health status.
func (p *HTTPProvider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns a copy of the health record.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

// SetHealthObserver registers fn to be called on health transitions.
func (p *HTTPProvider) SetHealthObserver(fn HealthObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observer = fn
}

// SetProbe replaces the request used by HealthCheck.
func (p *HTTPProvider) SetProbe(fn func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probe = fn
}

// SetRetryBackoff changes the first retry delay. Used by tests.
func (p *HTTPProvider) SetRetryBackoff(d time.Duration) {
	p.retryBase = d
}

// RecordSuccess marks a successful exchange.
func (p *HTTPProvider) RecordSuccess() {
	p.setHealth(true, nil)
}

// RecordFailure marks a failed exchange. The provider turns unhealthy after
// unhealthyThreshold consecutive failures.
func (p *HTTPProvider) RecordFailure(err error) {
	p.setHealth(false, err)
}

func (p *HTTPProvider) setHealth(ok bool, err error) {
	p.mu.Lock()
	was := p.health.IsHealthy
	now := time.Now()
	p.health.LastCheck = now
	if ok {
		p.health.IsHealthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = nil
		p.health.LastSuccessfulRequest = now
	} else {
		p.health.ConsecutiveFailures++
		p.health.LastError = err
		if p.health.ConsecutiveFailures >= unhealthyThreshold {
			p.health.IsHealthy = false
		}
	}
	is := p.health.IsHealthy
	failures := p.health.ConsecutiveFailures
	observer := p.observer
	p.mu.Unlock()

	if was == is {
		return
	}
	if is {
		p.logger.Info("provider recovered")
	} else {
		p.logger.Warn("provider marked unhealthy", "consecutive_failures", failures, "error", err)
	}
	if observer != nil {
		observer(p.config.Name, is)
	}
}

func (p *HTTPProvider) countRequest(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health.TotalRequests++
	if !ok {
		p.health.FailedRequests++
	}
}

// DoRequest sends an HTTP request, retrying network errors and 5xx responses
// up to MaxRetries times with exponential backoff. Authentication, rate
// limit and other 4xx responses are returned immediately. The caller owns
// the response body on success.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	return p.do(ctx, method, url, body, headers, true)
}

func (p *HTTPProvider) do(ctx context.Context, method, url string, body []byte, headers map[string]string, track bool) (*http.Response, error) {
	if p.closed.Load() {
		return nil, ErrProviderClosed
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryBase << (attempt - 1)
			p.logger.Debug("retrying upstream request",
				"attempt", attempt,
				"max_retries", p.config.MaxRetries,
				"backoff", delay,
			)
			select {
			case <-ctx.Done():
				return nil, p.timeoutError(ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := p.send(ctx, method, url, body, headers)
		if err != nil {
			if track {
				p.countRequest(false)
			}
			if ctx.Err() != nil {
				return nil, p.timeoutError(ctx.Err())
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				lastErr = p.timeoutError(err)
			} else {
				lastErr = &ProviderError{Provider: p.config.Name, Message: err.Error(), Cause: err}
			}
			p.logger.Warn("upstream request failed", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if track {
				p.countRequest(true)
				p.RecordSuccess()
			}
			return resp, nil
		}

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody+1))
		resp.Body.Close()
		msg := truncate(string(raw), maxErrorBody)
		if track {
			p.countRequest(false)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			authErr := &AuthError{Provider: p.config.Name, Message: msg}
			if track {
				p.RecordFailure(authErr)
			}
			return nil, authErr

		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   p.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    msg,
			}

		case resp.StatusCode < 500:
			return nil, &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: msg}

		default:
			lastErr = &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: msg}
			p.logger.Warn("upstream returned server error", "status", resp.StatusCode, "attempt", attempt+1)
		}
	}

	if track {
		p.RecordFailure(lastErr)
	}
	return nil, lastErr
}

func (p *HTTPProvider) send(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	tracing.Inject(ctx, req.Header)

	p.logger.Debug("sending upstream request", "method", method, "url", url)
	return p.client.Do(req)
}

func (p *HTTPProvider) timeoutError(cause error) error {
	return &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: cause}
}

// DoJSONRequest marshals reqBody, sends it with DoRequest and decodes the
// response into respBody.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, payload, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Provider: p.config.Name, Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	if respBody == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return &ParseError{
			Provider:    p.config.Name,
			RawResponse: truncate(string(raw), maxErrorBody),
			Cause:       err,
		}
	}
	return nil
}

// Probe issues an untracked GET used for health checks. The outcome is
// applied to the health record by the caller, not by the request itself.
func (p *HTTPProvider) Probe(ctx context.Context, url string, headers map[string]string) error {
	resp, err := p.do(ctx, http.MethodGet, url, nil, headers, false)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (p *HTTPProvider) defaultProbe(ctx context.Context) error {
	headers := map[string]string{}
	if p.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.config.APIKey
	}
	return p.Probe(ctx, p.config.BaseURL, headers)
}

// Close stops the health checker and releases idle connections.
func (p *HTTPProvider) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.stop)

		if p.checkerUp.Load() {
			select {
			case <-p.checkerDone:
			case <-time.After(5 * time.Second):
				p.logger.Warn("health checker did not stop in time")
			}
		}

		p.client.CloseIdleConnections()
		p.logger.Debug("provider closed")
	})
	return nil
}

// parseRetryAfter understands both delay-seconds and HTTP-date values.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
