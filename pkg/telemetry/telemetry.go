package telemetry

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/telemetry/health"
	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/metrics"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

// Telemetry bundles the observability components built from one
// configuration.
type Telemetry struct {
	Logger  *logging.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
	Health  *health.Checker
	Version health.VersionInfo
}

// New builds every component from cfg. Logs go to w, or stdout when w is
// nil.
func New(cfg config.TelemetryConfig, info health.VersionInfo, w io.Writer) (*Telemetry, error) {
	logger, err := logging.New(logging.Config{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		AddSource:     cfg.Logging.AddSource,
		RedactSecrets: cfg.Logging.RedactSecrets,
		Writer:        w,
	})
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	tracer, err := tracing.New(cfg.Tracing, info.Version)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics.NewCollector(cfg.Metrics, nil),
		Tracer:  tracer,
		Health:  health.New(cfg.Health.CheckTimeout),
		Version: info,
	}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.Tracer == nil {
		return nil
	}
	if err := t.Tracer.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracing shutdown: %w", err)
	}
	return nil
}
