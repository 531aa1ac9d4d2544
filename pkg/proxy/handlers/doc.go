// Package handlers implements the gateway's HTTP endpoints.
//
//   - ChatHandler: POST /api/chat
//   - ModelsHandler: GET /api/models
//   - StatusHandler: GET /api/providers/status
//   - AttemptsHandler: GET /api/attempts and GET /api/attempts/summary
//
// Handlers depend on small interfaces (Completer, Admitter, HealthReporter,
// AttemptReader) so tests can substitute fakes. Errors are written with
// proxy.WriteError.
//
// # Chat Flow
//
//  1. Parse the body with proxy.ParseChatRequest
//  2. Validate and merge config with the processor
//  3. Reply directly when a function call was requested
//  4. Admit the request to a worker and run the fallback orchestration
//  5. Shape the reply, validating structured output when requested
//
// Every response carries the request ID assigned by middleware.
package handlers
