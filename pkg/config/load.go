package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "RELAY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of Default and applies zero-value defaults.
// It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// RELAY_SECTION_FIELD (e.g., RELAY_SERVER_LISTEN_ADDRESS) and always take
// precedence over the file.
//
// Provider credentials can be supplied per provider as
// RELAY_PROVIDER_<NAME>_API_KEY and RELAY_PROVIDER_<NAME>_BASE_URL, where
// NAME is the provider identifier upper-cased with dashes replaced by
// underscores.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored and the file value is kept.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("RELAY_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if d, ok := envDuration("RELAY_SERVER_READ_TIMEOUT"); ok {
		cfg.Server.ReadTimeout = d
	}
	if d, ok := envDuration("RELAY_SERVER_WRITE_TIMEOUT"); ok {
		cfg.Server.WriteTimeout = d
	}
	if d, ok := envDuration("RELAY_SERVER_SHUTDOWN_TIMEOUT"); ok {
		cfg.Server.ShutdownTimeout = d
	}

	if val := os.Getenv("RELAY_ROUTING_PRIMARY"); val != "" {
		cfg.Routing.Primary = splitList(val)
	}
	if val, ok := os.LookupEnv("RELAY_ROUTING_FALLBACK"); ok {
		cfg.Routing.Fallback = splitList(val)
	}
	if val := os.Getenv("RELAY_ROUTING_TARGET_MODEL"); val != "" {
		cfg.Routing.TargetModel = val
	}
	if b, ok := envBool("RELAY_ROUTING_HONOR_REQUEST_MODEL"); ok {
		cfg.Routing.HonorRequestModel = b
	}

	if i, ok := envInt("RELAY_GATEWAY_WORKERS"); ok {
		cfg.Gateway.Workers = i
	}
	if d, ok := envDuration("RELAY_GATEWAY_ATTEMPT_TIMEOUT"); ok {
		cfg.Gateway.AttemptTimeout = d
	}
	if d, ok := envDuration("RELAY_GATEWAY_REQUEST_TIMEOUT"); ok {
		cfg.Gateway.RequestTimeout = d
	}

	if b, ok := envBool("RELAY_AUDIT_ENABLED"); ok {
		cfg.Audit.Enabled = b
	}
	if val := os.Getenv("RELAY_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("RELAY_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}
	if val := os.Getenv("RELAY_AUDIT_SQLITE_DRIVER"); val != "" {
		cfg.Audit.SQLite.Driver = val
	}

	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("RELAY_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if b, ok := envBool("RELAY_TELEMETRY_METRICS_ENABLED"); ok {
		cfg.Telemetry.Metrics.Enabled = b
	}
	if b, ok := envBool("RELAY_TELEMETRY_TRACING_ENABLED"); ok {
		cfg.Telemetry.Tracing.Enabled = b
	}
	if val := os.Getenv("RELAY_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}

	for name, provider := range cfg.Providers {
		key := providerEnvKey(name)
		if val := os.Getenv(EnvPrefix + "PROVIDER_" + key + "_API_KEY"); val != "" {
			provider.APIKey = val
		}
		if val := os.Getenv(EnvPrefix + "PROVIDER_" + key + "_BASE_URL"); val != "" {
			provider.BaseURL = val
		}
		cfg.Providers[name] = provider
	}
}

// providerEnvKey converts a provider identifier into its environment form.
func providerEnvKey(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDuration(name string) (time.Duration, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envInt(name string) (int, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return i, true
}

func envBool(name string) (bool, bool) {
	val := os.Getenv(name)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}
