package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:5000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 300 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSMaxAge = 3600

	// Provider defaults
	DefaultProviderType    = "openai"
	DefaultProviderTimeout = 60 * time.Second

	// Routing defaults
	DefaultTargetModel = "gpt-4o"

	// Gateway defaults
	DefaultWorkers        = 4
	DefaultAttemptTimeout = 60 * time.Second
	DefaultRequestTimeout = 240 * time.Second
	DefaultMaxBodyBytes   = int64(10 * 1024 * 1024)

	// Generation defaults
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	DefaultTopP        = 1.0
	DefaultModel       = "gpt-4o"

	// Audit defaults
	DefaultAuditBackend      = "sqlite"
	DefaultAuditSQLitePath   = "data/attempts.db"
	DefaultAuditSQLiteDriver = "sqlite"
	DefaultAuditMaxOpenConns = 10
	DefaultAuditMaxIdleConns = 5
	DefaultAuditBusyTimeout  = 5 * time.Second
	DefaultAuditBufferSize   = 1000
	DefaultRetentionDays     = 30
	DefaultRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsPath         = "/metrics"
	DefaultMetricsNamespace    = "relay"
	DefaultMetricsSubsystem    = "gateway"
	DefaultTracingSampler      = "always"
	DefaultTracingSampleRatio  = 1.0
	DefaultTracingEndpoint     = "localhost:4317"
	DefaultTracingServiceName  = "relay"
	DefaultTracingTimeout      = 10 * time.Second
	DefaultHealthCheckTimeout  = 5 * time.Second
	DefaultMinHealthyProviders = 1
)

// DefaultModels is the model catalog used when the configuration file does
// not define one.
var DefaultModels = map[string]string{
	"gpt-4":   "gpt-4o",
	"gpt-3.5": "gpt-3.5-turbo",
	"claude":  "claude-v2",
	"gemini":  "google/gemini-pro",
}

// DefaultDurationBuckets are histogram buckets sized for upstream LLM latency.
var DefaultDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// Default returns a Config with every boolean that defaults to true already
// set. LoadConfig decodes YAML on top of it so an explicit false survives.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			CORS: CORSConfig{Enabled: true},
		},
		Audit: AuditConfig{
			Enabled: true,
			SQLite:  SQLiteConfig{WALMode: true},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactSecrets: true},
			Metrics: MetricsConfig{Enabled: true},
			Tracing: TracingConfig{Insecure: true},
		},
	}
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	for name, provider := range cfg.Providers {
		if provider.Type == "" {
			provider.Type = DefaultProviderType
		}
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
		}
		cfg.Providers[name] = provider
	}

	if cfg.Routing.TargetModel == "" {
		cfg.Routing.TargetModel = DefaultTargetModel
	}

	if cfg.Gateway.Workers == 0 {
		cfg.Gateway.Workers = DefaultWorkers
	}
	if cfg.Gateway.AttemptTimeout == 0 {
		cfg.Gateway.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Gateway.RequestTimeout == 0 {
		cfg.Gateway.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Gateway.MaxBodyBytes == 0 {
		cfg.Gateway.MaxBodyBytes = DefaultMaxBodyBytes
	}

	applyGenerationDefaults(&cfg.Generation)

	if len(cfg.Models) == 0 {
		cfg.Models = make(map[string]string, len(DefaultModels))
		for alias, model := range DefaultModels {
			cfg.Models[alias] = model
		}
	}

	applyAuditDefaults(&cfg.Audit)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	cors := &s.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "X-Request-ID", "traceparent"}
	}
	if len(cors.ExposedHeaders) == 0 {
		cors.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyGenerationDefaults(g *GenerationConfig) {
	if g.Temperature == nil {
		t := DefaultTemperature
		g.Temperature = &t
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = DefaultMaxTokens
	}
	if g.TopP == nil {
		p := DefaultTopP
		g.TopP = &p
	}
	if g.Model == "" {
		g.Model = DefaultModel
	}
}

func applyAuditDefaults(a *AuditConfig) {
	if a.Backend == "" {
		a.Backend = DefaultAuditBackend
	}
	if a.SQLite.Path == "" {
		a.SQLite.Path = DefaultAuditSQLitePath
	}
	if a.SQLite.Driver == "" {
		a.SQLite.Driver = DefaultAuditSQLiteDriver
	}
	if a.SQLite.MaxOpenConns == 0 {
		a.SQLite.MaxOpenConns = DefaultAuditMaxOpenConns
	}
	if a.SQLite.MaxIdleConns == 0 {
		a.SQLite.MaxIdleConns = DefaultAuditMaxIdleConns
	}
	if a.SQLite.BusyTimeout == 0 {
		a.SQLite.BusyTimeout = DefaultAuditBusyTimeout
	}
	if a.BufferSize == 0 {
		a.BufferSize = DefaultAuditBufferSize
	}
	if a.Retention.Days == 0 {
		a.Retention.Days = DefaultRetentionDays
	}
	if a.Retention.Schedule == "" {
		a.Retention.Schedule = DefaultRetentionSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}

	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
	if t.Health.MinHealthyProviders == 0 {
		t.Health.MinHealthyProviders = DefaultMinHealthyProviders
	}
}
