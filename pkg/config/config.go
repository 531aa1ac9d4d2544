package config

import "time"

// Config is the root configuration structure for the relay gateway.
// It contains the HTTP server settings, the upstream provider definitions,
// the primary and fallback pools, generation defaults, the attempt audit log,
// telemetry and security settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS.
	Server ServerConfig `yaml:"server"`

	// Providers contains the definition of every upstream provider.
	// Keys are provider identifiers referenced by the routing pools.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Routing contains the primary and fallback pools and the model
	// override policy.
	Routing RoutingConfig `yaml:"routing"`

	// Gateway contains request handling limits such as the worker pool size
	// and per-attempt timeout.
	Gateway GatewayConfig `yaml:"gateway"`

	// Generation contains the default generation parameters merged under
	// every request's config.
	Generation GenerationConfig `yaml:"generation"`

	// Models is the model catalog served by GET /api/models.
	// Keys are aliases, values are upstream model identifiers.
	Models map[string]string `yaml:"models"`

	// Audit contains configuration for the orchestration attempt log.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for logging, metrics, tracing and
	// health endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS configuration.
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:5000", "0.0.0.0:5000").
	// Default: "127.0.0.1:5000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A full fallback pass can take several upstream round trips,
	// so this should exceed the sum of attempt timeouts you expect to allow.
	// Default: 300s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. ["*"] allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Content-Type", "X-Request-ID", "traceparent"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// ProviderConfig contains configuration for a single upstream provider.
type ProviderConfig struct {
	// Type selects the adapter: "openai" (any OpenAI-compatible chat
	// completions API) or "anthropic".
	// Default: "openai"
	Type string `yaml:"type"`

	// BaseURL is the base URL of the provider's API.
	// Example: "https://text.pollinations.ai/openai"
	BaseURL string `yaml:"base_url"`

	// APIKey is the credential sent to the provider. Optional for keyless
	// OpenAI-compatible backends.
	APIKey string `yaml:"api_key"`

	// Timeout is the HTTP client timeout for this provider.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of transport-level retries for transient
	// upstream errors inside a single attempt. The orchestrator never retries
	// a provider itself.
	// Default: 0
	MaxRetries int `yaml:"max_retries"`

	// HealthCheckInterval is how often the background health checker probes
	// this provider. Zero disables background checks.
	// Default: 0
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// RoutingConfig contains the provider pools and the model override policy.
type RoutingConfig struct {
	// Primary is the primary pool, drawn in round-robin order.
	// Must contain at least one provider.
	Primary []string `yaml:"primary"`

	// Fallback is the fallback pool, tried in fixed order after every
	// primary provider failed. May be empty.
	Fallback []string `yaml:"fallback"`

	// TargetModel is the model identifier sent upstream on every attempt.
	// Default: "gpt-4o"
	TargetModel string `yaml:"target_model"`

	// HonorRequestModel forwards the request's config.model instead of
	// TargetModel when set.
	// Default: false
	HonorRequestModel bool `yaml:"honor_request_model"`
}

// GatewayConfig contains request handling limits.
type GatewayConfig struct {
	// Workers is the number of orchestration calls that may run at once.
	// Default: 4
	Workers int `yaml:"workers"`

	// AttemptTimeout bounds a single provider attempt. A negative value
	// disables the per-attempt deadline.
	// Default: 60s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// RequestTimeout bounds the handling of one HTTP request, including
	// the wait for a worker and every attempt. A negative value disables
	// it.
	// Default: 240s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxBodyBytes limits the size of a chat request body.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// DefaultSystemPrompt is prepended when the request carries neither a
	// system message nor a system_prompt. Empty disables it.
	// Default: ""
	DefaultSystemPrompt string `yaml:"default_system_prompt"`
}

// GenerationConfig contains the default generation parameters.
// Temperature and TopP are pointers so an explicit 0 is distinguishable from
// an unset value.
type GenerationConfig struct {
	// Temperature default: 0.7
	Temperature *float64 `yaml:"temperature"`

	// MaxTokens default: 1000
	MaxTokens int `yaml:"max_tokens"`

	// TopP default: 1.0
	TopP *float64 `yaml:"top_p"`

	FrequencyPenalty float64  `yaml:"frequency_penalty"`
	PresencePenalty  float64  `yaml:"presence_penalty"`
	Stop             []string `yaml:"stop"`

	// Model default: "gpt-4o"
	Model string `yaml:"model"`
}

// AuditConfig contains configuration for the orchestration attempt log.
type AuditConfig struct {
	// Enabled controls whether orchestration records are persisted.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// BufferSize is the capacity of the asynchronous recorder queue.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// Retention contains pruning configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/attempts.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver: "sqlite3" (mattn/go-sqlite3,
	// requires cgo) or "sqlite" (modernc.org/sqlite, pure Go).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains audit retention configuration.
type RetentionConfig struct {
	// Days is how long records are kept. Zero keeps records forever.
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is the cron expression for pruning runs.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys and bearer tokens in log attributes.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled default: true
	Enabled bool `yaml:"enabled"`

	// Path default: "/metrics"
	Path string `yaml:"path"`

	// Namespace default: "relay"
	Namespace string `yaml:"namespace"`

	// Subsystem default: "gateway"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets are histogram buckets in seconds.
	// Default: [0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName default: "relay"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the export timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// CheckTimeout is the timeout for individual readiness checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// MinHealthyProviders is the number of healthy providers required for
	// readiness.
	// Default: 1
	MinHealthyProviders int `yaml:"min_healthy_providers"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS configuration for the HTTP server.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// PoolMembers returns every provider identifier referenced by the primary or
// fallback pool, in first-seen order and without duplicates.
func (r RoutingConfig) PoolMembers() []string {
	seen := make(map[string]struct{}, len(r.Primary)+len(r.Fallback))
	members := make([]string, 0, len(r.Primary)+len(r.Fallback))
	for _, pool := range [][]string{r.Primary, r.Fallback} {
		for _, name := range pool {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			members = append(members, name)
		}
	}
	return members
}
