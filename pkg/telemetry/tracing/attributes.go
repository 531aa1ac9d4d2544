package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on gateway spans.
const (
	AttrProvider     = "relay.provider"
	AttrPool         = "relay.pool"
	AttrOutcome      = "relay.outcome"
	AttrModel        = "relay.model"
	AttrRequestID    = "relay.request_id"
	AttrAttempts     = "relay.attempts"
	AttrPrimarySize  = "relay.primary_pool_size"
	AttrFallbackSize = "relay.fallback_pool_size"
	AttrErrorCode    = "relay.error_code"
)

// SetAttemptAttributes tags span with the provider and pool of an attempt.
func SetAttemptAttributes(span trace.Span, provider, pool string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrPool, pool),
	)
}

// SetRequestID tags span with the gateway request ID.
func SetRequestID(span trace.Span, requestID string) {
	if requestID == "" {
		return
	}
	span.SetAttributes(attribute.String(AttrRequestID, requestID))
}
