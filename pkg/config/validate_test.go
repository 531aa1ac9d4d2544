package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a configuration that passes validation.
func validConfig() *Config {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"a": {BaseURL: "https://a.example.com/v1"},
		"b": {BaseURL: "https://b.example.com/v1"},
		"c": {BaseURL: "https://c.example.com/v1"},
	}
	cfg.Routing.Primary = []string{"a", "b"}
	cfg.Routing.Fallback = []string{"c"}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate_EmptyFallbackAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Routing.Fallback = nil
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected empty fallback pool to be valid, got %v", err)
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "empty primary pool",
			mutate: func(c *Config) { c.Routing.Primary = nil },
			field:  "routing.primary",
		},
		{
			name:   "undefined primary member",
			mutate: func(c *Config) { c.Routing.Primary = []string{"a", "ghost"} },
			field:  "routing.primary[1]",
		},
		{
			name:   "undefined fallback member",
			mutate: func(c *Config) { c.Routing.Fallback = []string{"ghost"} },
			field:  "routing.fallback[0]",
		},
		{
			name:   "duplicate in pool",
			mutate: func(c *Config) { c.Routing.Primary = []string{"a", "a"} },
			field:  "routing.primary[1]",
		},
		{
			name:   "empty identifier",
			mutate: func(c *Config) { c.Routing.Primary = []string{""} },
			field:  "routing.primary[0]",
		},
		{
			name:   "no providers",
			mutate: func(c *Config) { c.Providers = nil },
			field:  "providers",
		},
		{
			name: "unsupported provider type",
			mutate: func(c *Config) {
				p := c.Providers["a"]
				p.Type = "carrier-pigeon"
				c.Providers["a"] = p
			},
			field: "providers.a.type",
		},
		{
			name: "relative base url",
			mutate: func(c *Config) {
				p := c.Providers["a"]
				p.BaseURL = "/v1"
				c.Providers["a"] = p
			},
			field: "providers.a.base_url",
		},
		{
			name: "anthropic without key",
			mutate: func(c *Config) {
				c.Providers["claude"] = ProviderConfig{Type: "anthropic"}
			},
			field: "providers.claude.api_key",
		},
		{
			name:   "zero workers",
			mutate: func(c *Config) { c.Gateway.Workers = 0 },
			field:  "gateway.workers",
		},
		{
			name: "temperature out of range",
			mutate: func(c *Config) {
				temp := 3.5
				c.Generation.Temperature = &temp
			},
			field: "generation.temperature",
		},
		{
			name:   "bad cron schedule",
			mutate: func(c *Config) { c.Audit.Retention.Schedule = "every tuesday" },
			field:  "audit.retention.schedule",
		},
		{
			name:   "unknown sqlite driver",
			mutate: func(c *Config) { c.Audit.SQLite.Driver = "postgres" },
			field:  "audit.sqlite.driver",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			field:  "telemetry.logging.level",
		},
		{
			name:   "non-increasing buckets",
			mutate: func(c *Config) { c.Telemetry.Metrics.DurationBuckets = []float64{1, 1, 2} },
			field:  "telemetry.metrics.duration_buckets",
		},
		{
			name: "tracing sampler",
			mutate: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.Sampler = "sometimes"
			},
			field: "telemetry.tracing.sampler",
		},
		{
			name:   "tls without cert",
			mutate: func(c *Config) { c.Security.TLS = TLSConfig{Enabled: true, KeyFile: "key.pem"} },
			field:  "security.tls.cert_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !verr.HasField(tt.field) {
				t.Errorf("expected error for %s, got %v", tt.field, verr)
			}
		})
	}
}

func TestValidate_AuditDisabledSkipsAuditRules(t *testing.T) {
	cfg := validConfig()
	cfg.Audit.Enabled = false
	cfg.Audit.Backend = "tape"

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected disabled audit section to be ignored, got %v", err)
	}
}

func TestValidationError_CollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Routing.Primary = nil
	cfg.Gateway.Workers = -1
	cfg.Telemetry.Logging.Format = "xml"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(verr.Error(), "3 errors") {
		t.Errorf("expected summary to mention error count, got %q", verr.Error())
	}
}

func TestValidate_PoolErrorsInPoolOrder(t *testing.T) {
	cfg := validConfig()
	cfg.Routing.Primary = []string{"a", ""}
	cfg.Routing.Fallback = []string{""}

	for i := 0; i < 20; i++ {
		var verr ValidationError
		if !errors.As(Validate(cfg), &verr) {
			t.Fatal("expected ValidationError")
		}
		var fields []string
		for _, fe := range verr.Errors {
			if strings.HasPrefix(fe.Field, "routing.") {
				fields = append(fields, fe.Field)
			}
		}
		if len(fields) != 2 || fields[0] != "routing.primary[1]" || fields[1] != "routing.fallback[0]" {
			t.Fatalf("routing errors = %v, want [routing.primary[1] routing.fallback[0]]", fields)
		}
	}
}
