// Package tracing wires OpenTelemetry tracing for the relay gateway.
//
// # Overview
//
// New builds a Tracer from config.TracingConfig. When tracing is enabled it
// installs a global TracerProvider that batches spans to an OTLP gRPC
// collector and a W3C Trace Context plus Baggage propagator. When disabled
// it returns a no-op tracer and leaves the globals alone.
//
// Packages that emit spans ask the global provider for a named tracer
// (otel.Tracer), so enabling tracing needs no further wiring:
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, version.Version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// # Spans
//
//	HTTP POST /api/chat            server span, one per request
//	└── routing.CompleteWithFallback
//	    ├── routing.attempt        relay.provider=a relay.pool=primary
//	    └── routing.attempt        relay.provider=b relay.pool=primary
//
// # Sampling
//
// Samplers are "always", "never" and "ratio" (TraceIDRatioBased with
// sample_ratio), each wrapped in ParentBased so an upstream decision
// carried in traceparent wins.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    endpoint: otel-collector:4317
//	    insecure: true
package tracing
