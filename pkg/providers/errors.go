package providers

import (
	"errors"
	"fmt"
	"time"
)

// ErrProviderClosed is returned by requests made after Close.
var ErrProviderClosed = errors.New("provider closed")

// ProviderError is an upstream failure that carries an HTTP status.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q returned status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q failed: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the status is worth a transport retry.
func (e *ProviderError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// AuthError is a 401 or 403 from the upstream.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q rejected credentials: %s", e.Provider, e.Message)
}

// RateLimitError is a 429 from the upstream.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limited (retry after %s): %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limited: %s", e.Provider, e.Message)
}

// TimeoutError is returned when the request deadline passes before the
// upstream answers.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
	Cause    error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("provider %q timed out after %s", e.Provider, e.Timeout)
	}
	return fmt.Sprintf("provider %q timed out", e.Provider)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ParseError is a response the adapter could not decode.
type ParseError struct {
	Provider    string
	RawResponse string
	Cause       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q sent an unreadable response: %v", e.Provider, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ValidationError rejects a request before it is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request field %q: %s", e.Field, e.Message)
}

// ConfigError rejects a provider configuration at construction.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q misconfigured (%s): %s", e.Provider, e.Field, e.Message)
}

// truncate bounds upstream error bodies kept in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
