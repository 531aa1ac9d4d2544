package proxy

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// Timestamp is the current time in the format used by every response body.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// ChatResponse builds the success body for a completed orchestration.
func ChatResponse(result *routing.Result, reply *processing.Reply) *types.ChatResponse {
	usage := reply.Usage
	return &types.ChatResponse{
		Success: true,
		Choices: []types.Choice{{
			Message:      types.ReplyMessage{Role: providers.RoleAssistant, Content: reply.Content},
			FinishReason: reply.FinishReason,
		}},
		Provider:        result.Provider,
		Pool:            string(result.Pool),
		Model:           result.Model,
		Attempts:        types.AttemptInfos(result.Attempts),
		SchemaValidated: reply.SchemaValidated,
		Usage:           &usage,
		UsageEstimated:  reply.UsageEstimated,
		Timestamp:       Timestamp(),
	}
}

// FunctionCallResponse builds the reply for a request that asked for a
// function call. No provider is involved.
func FunctionCallResponse(call *providers.FunctionCall) *types.ChatResponse {
	return &types.ChatResponse{
		Success: true,
		Choices: []types.Choice{{
			Message:      types.ReplyMessage{Role: providers.RoleAssistant, Content: nil, FunctionCall: call},
			FinishReason: "function_call",
		}},
		Timestamp: Timestamp(),
	}
}

// WriteJSONResponse writes v as JSON with the given status code.
func WriteJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteErrorResponse writes body with the request ID of r attached.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, body *types.ErrorResponse) {
	if body.RequestID == "" {
		body.RequestID = logging.GetRequestID(r.Context())
	}
	WriteJSONResponse(w, status, body)
}

// WriteError maps err with HandleError and writes the result.
func WriteError(w http.ResponseWriter, r *http.Request, err error) int {
	status, body := HandleError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "status", status, "code", body.Code, "error", err)
	}
	WriteErrorResponse(w, r, status, body)
	return status
}

// MethodNotAllowed writes a JSON 405 listing the allowed methods.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	WriteErrorResponse(w, r, http.StatusMethodNotAllowed,
		NewErrorResponse("Method "+r.Method+" not allowed", types.CodeMethodNotAllowed))
}
