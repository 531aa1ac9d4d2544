package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/relay/pkg/telemetry/logging"
	"mercator-hq/relay/pkg/telemetry/tracing"
)

// TracingMiddleware starts a server span per request, continuing any trace
// propagated in the request headers. The trace and span IDs are stored in
// the logging context so log lines can be correlated with traces.
//
// Example usage:
//
//	handler = TracingMiddleware(tracer.Tracer())(handler)
func TracingMiddleware(tracer trace.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := tracing.Extract(r.Context(), r.Header)
			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPMethod(r.Method),
					semconv.HTTPRoute(r.URL.Path),
				),
			)
			defer span.End()

			tracing.SetRequestID(span, logging.GetRequestID(ctx))
			if id := tracing.TraceID(ctx); id != "" {
				ctx = logging.WithTraceID(ctx, id)
				ctx = logging.WithSpanID(ctx, tracing.SpanID(ctx))
			}

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			span.SetAttributes(semconv.HTTPStatusCode(rw.statusCode))
			if rw.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rw.statusCode))
			}
		})
	}
}
