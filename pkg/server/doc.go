// Package server assembles the gateway's HTTP server: routes, middleware
// chain, TLS and graceful shutdown.
//
// Routes:
//
//	POST /api/chat
//	GET  /api/models
//	GET  /api/providers/status
//	GET  /api/attempts
//	GET  /api/attempts/summary
//	GET  /health, /ready, /version
//	GET  /metrics (path configurable)
//
// Start blocks until its context is cancelled; signal handling is left to
// the caller.
package server
