// Package telemetry assembles the gateway's observability stack.
//
// # Components
//
//   - logging: slog logger with context fields and secret redaction
//   - metrics: Prometheus collector, also a routing.Observer
//   - tracing: OpenTelemetry tracer provider with OTLP gRPC export
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	tel, err := telemetry.New(cfg.Telemetry, health.VersionInfo{Version: "1.0.0"}, os.Stdout)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	slog.SetDefault(tel.Logger.Logger)
//	orch, _ := routing.NewOrchestrator(rotator, manager, routing.WithObserver(tel.Metrics))
package telemetry
