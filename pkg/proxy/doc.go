// Package proxy is the HTTP surface of the gateway.
//
// The root package holds the helpers shared by every endpoint: request
// parsing, error mapping and JSON response writing. Endpoints live in
// handlers, cross-cutting concerns in middleware and the wire types in
// types.
//
// # Endpoints
//
//   - POST /api/chat: run a conversation through the provider pools
//   - GET /api/models: model catalog, generation defaults and target model
//   - GET /api/providers/status: pool membership, rotation and health
//   - GET /api/attempts, /api/attempts/summary: recorded orchestrations
//
// # Request Flow
//
//  1. Middleware assigns a request ID, starts a span and applies the deadline
//  2. ParseChatRequest decodes the body
//  3. The processor validates messages and merges generation config
//  4. The dispatcher admits the request to a worker
//  5. The orchestrator walks the primary provider, then the fallback pool
//  6. The processor shapes the reply and the handler writes it
//
// # Error Handling
//
// Every failure is written as a types.ErrorResponse:
//
//	{
//	  "success": false,
//	  "error": "All providers failed: a: timeout; c: HTTP 500",
//	  "code": "all_providers_failed",
//	  "attempts": [...],
//	  "request_id": "...",
//	  "timestamp": "2025-01-01T00:00:00Z"
//	}
//
// HandleError maps errors to status codes. Internal errors never leak
// their text to clients.
package proxy
