// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// This package implements middleware functions for request ID assignment,
// tracing, logging, metrics, CORS, panic recovery and deadline enforcement.
//
// # Middleware Chain
//
// The server composes the chain with Chain, first listed outermost:
//
//	handler = Chain(mux,
//	    RequestIDMiddleware,
//	    TracingMiddleware(tracer),
//	    LoggingMiddleware,
//	    MetricsMiddleware(collector),
//	    RecoveryMiddleware,
//	    CORSMiddleware(cfg.Server.CORS),
//	    TimeoutMiddleware(cfg.Gateway.RequestTimeout),
//	)
//
// The request ID is assigned first so every later log line and span carries
// it. Recovery sits inside logging and metrics so a recovered panic is
// recorded as a 500.
//
// # Request ID
//
// RequestIDMiddleware keeps a well-formed client X-Request-ID and otherwise
// generates a UUID v4:
//
//	X-Request-ID: 550e8400-e29b-41d4-a716-446655440000
//
// The ID is stored with logging.WithRequestID, echoed in the response
// header and copied into error bodies and audit records.
//
// # Logging
//
// LoggingMiddleware uses structured logging (log/slog) to record request details:
//
//	{
//	  "time": "2025-11-16T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/api/chat",
//	  "status": 200,
//	  "bytes": 512,
//	  "latency_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// # CORS
//
// CORSMiddleware reads config.CORSConfig:
//
//	server:
//	  cors:
//	    enabled: true
//	    allowed_origins: ["https://example.com", "https://app.example.com"]
//	    allowed_methods: ["GET", "POST", "OPTIONS"]
//	    allowed_headers: ["Content-Type", "X-Request-ID"]
//	    max_age: 3600
//
// # Timeout
//
// TimeoutMiddleware buffers the handler's response and answers 504 with a
// JSON error when the deadline passes first. Writes made by the handler
// after that return http.ErrHandlerTimeout.
package middleware
