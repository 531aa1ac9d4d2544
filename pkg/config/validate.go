package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "routing.primary").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// HasField reports whether any collected error is about field.
func (e ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

var (
	validProviderTypes = map[string]bool{"openai": true, "anthropic": true}
	validAuditBackends = map[string]bool{"sqlite": true, "memory": true}
	validSQLiteDrivers = map[string]bool{"sqlite": true, "sqlite3": true}
	validLogLevels     = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats    = map[string]bool{"json": true, "text": true}
	validSamplers      = map[string]bool{"always": true, "never": true, "ratio": true}
)

// Validate validates the entire configuration and returns a ValidationError
// if any rule fails. All problems are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateRouting(&cfg.Routing, cfg.Providers)...)
	errs = append(errs, validateGateway(&cfg.Gateway)...)
	errs = append(errs, validateGeneration(&cfg.Generation)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 || cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be between 0 and 10MB"})
	}

	return errs
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if len(providers) == 0 {
		return append(errs, FieldError{Field: "providers", Message: "at least one provider must be configured"})
	}

	for name, p := range providers {
		prefix := fmt.Sprintf("providers.%s", name)

		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{Field: "providers", Message: "provider identifiers must not be blank"})
		}
		if !validProviderTypes[p.Type] {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("unsupported provider type %q (supported: openai, anthropic)", p.Type),
			})
		}
		if p.BaseURL == "" {
			if p.Type != "anthropic" {
				errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "base URL is required"})
			}
		} else if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{Field: prefix + ".base_url", Message: fmt.Sprintf("invalid URL %q", p.BaseURL)})
		}
		if p.Type == "anthropic" && p.APIKey == "" {
			errs = append(errs, FieldError{Field: prefix + ".api_key", Message: "API key is required for anthropic providers"})
		}
		if p.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be positive"})
		}
		if p.MaxRetries < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_retries", Message: "max retries must be non-negative"})
		}
		if p.HealthCheckInterval < 0 {
			errs = append(errs, FieldError{Field: prefix + ".health_check_interval", Message: "health check interval must be non-negative"})
		}
	}

	return errs
}

func validateRouting(cfg *RoutingConfig, providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Primary) == 0 {
		errs = append(errs, FieldError{Field: "routing.primary", Message: "primary pool must contain at least one provider"})
	}

	for _, pl := range []struct {
		name    string
		members []string
	}{{"primary", cfg.Primary}, {"fallback", cfg.Fallback}} {
		pool := pl.name
		seen := make(map[string]bool, len(pl.members))
		for i, name := range pl.members {
			field := fmt.Sprintf("routing.%s[%d]", pool, i)
			if name == "" {
				errs = append(errs, FieldError{Field: field, Message: "provider identifier must not be empty"})
				continue
			}
			if seen[name] {
				errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("provider %q listed twice in the %s pool", name, pool)})
			}
			seen[name] = true
			if _, ok := providers[name]; !ok {
				errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("provider %q is not defined under providers", name)})
			}
		}
	}

	if cfg.TargetModel == "" {
		errs = append(errs, FieldError{Field: "routing.target_model", Message: "target model is required"})
	}

	return errs
}

func validateGateway(cfg *GatewayConfig) []FieldError {
	var errs []FieldError

	if cfg.Workers < 1 {
		errs = append(errs, FieldError{Field: "gateway.workers", Message: "worker pool size must be at least 1"})
	}
	if cfg.MaxBodyBytes < 1 {
		errs = append(errs, FieldError{Field: "gateway.max_body_bytes", Message: "max body bytes must be positive"})
	}

	return errs
}

func validateGeneration(cfg *GenerationConfig) []FieldError {
	var errs []FieldError

	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		errs = append(errs, FieldError{Field: "generation.temperature", Message: "temperature must be between 0 and 2"})
	}
	if cfg.MaxTokens < 1 {
		errs = append(errs, FieldError{Field: "generation.max_tokens", Message: "max tokens must be positive"})
	}
	if cfg.TopP != nil && (*cfg.TopP < 0 || *cfg.TopP > 1) {
		errs = append(errs, FieldError{Field: "generation.top_p", Message: "top_p must be between 0 and 1"})
	}
	if cfg.FrequencyPenalty < -2 || cfg.FrequencyPenalty > 2 {
		errs = append(errs, FieldError{Field: "generation.frequency_penalty", Message: "frequency penalty must be between -2 and 2"})
	}
	if cfg.PresencePenalty < -2 || cfg.PresencePenalty > 2 {
		errs = append(errs, FieldError{Field: "generation.presence_penalty", Message: "presence penalty must be between -2 and 2"})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return errs
	}

	if !validAuditBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("unsupported backend %q (supported: sqlite, memory)", cfg.Backend),
		})
	}
	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "audit.sqlite.path", Message: "database path is required"})
		}
		if !validSQLiteDrivers[cfg.SQLite.Driver] {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.driver",
				Message: fmt.Sprintf("unsupported driver %q (supported: sqlite, sqlite3)", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "audit.sqlite.max_idle_conns", Message: "max idle connections cannot exceed max open connections"})
		}
	}
	if cfg.BufferSize < 1 {
		errs = append(errs, FieldError{Field: "audit.buffer_size", Message: "buffer size must be positive"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "audit.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.Schedule, err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", cfg.Logging.Level),
		})
	}
	if !validLogFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (valid: json, text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "buckets must be strictly increasing"})
			break
		}
	}

	if cfg.Tracing.Enabled {
		if !validSamplers[cfg.Tracing.Sampler] {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (valid: always, never, ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0 and 1"})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
	}

	if cfg.Health.MinHealthyProviders < 0 {
		errs = append(errs, FieldError{Field: "telemetry.health.min_healthy_providers", Message: "must be non-negative"})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.cert_file", Message: "certificate file is required when TLS is enabled"})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{Field: "security.tls.key_file", Message: "key file is required when TLS is enabled"})
		}
	}

	return errs
}
