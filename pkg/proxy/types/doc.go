// Package types defines the JSON bodies of the gateway's HTTP API.
//
// Request types:
//   - ChatRequest: body of POST /api/chat
//   - ResponseFormat, JSONSchemaFormat: structured output request
//
// Response types:
//   - ChatResponse, Choice, ReplyMessage: successful chat replies
//   - AttemptInfo: per-provider attempt log entry
//   - ModelsResponse: body of GET /api/models
//   - StatusResponse, ProviderHealth: body of GET /api/providers/status
//   - ErrorResponse: failure body of every endpoint
//
// Every body carries a "success" flag and field names use snake_case.
// Messages reuse providers.Message, whose content is either a string or a
// list of text and image_url parts.
package types
