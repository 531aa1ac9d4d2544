// Package metrics provides Prometheus metrics for the relay gateway.
//
// # Overview
//
// The Collector owns a private registry and three metric groups:
//
//   - Gateway metrics: orchestrations by outcome and serving phase,
//     orchestration duration, dispatcher occupancy
//   - Provider metrics: attempts by provider, pool and outcome, attempt
//     latency, failure classes and health
//   - HTTP metrics: requests by route and status, request duration
//
// The Collector implements routing.Observer, so attaching it to the
// orchestrator is enough to populate the gateway and provider groups. Its
// UpdateProviderHealth method has the providers.HealthObserver signature
// and can be handed to the provider manager directly.
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	orch, _ := routing.NewOrchestrator(rotator, manager,
//	    routing.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Metric names
//
// With the default namespace "relay" and subsystem "gateway":
//
//	relay_gateway_orchestrations_total{outcome,phase}
//	relay_gateway_orchestration_duration_seconds{outcome}
//	relay_gateway_dispatcher_in_flight
//	relay_gateway_attempts_total{provider,pool,outcome}
//	relay_gateway_provider_latency_seconds{provider}
//	relay_gateway_provider_errors_total{provider,error_type}
//	relay_gateway_provider_health{provider}
//	relay_gateway_http_requests_total{path,status}
//	relay_gateway_http_request_duration_seconds{path}
//
// Label values for provider and path pass through a cardinality limiter;
// anything beyond the limit is folded into "other".
package metrics
