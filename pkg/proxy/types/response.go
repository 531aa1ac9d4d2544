package types

import (
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/routing"
)

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Success bool     `json:"success"`
	Choices []Choice `json:"choices"`

	// Provider and Model are empty for function call replies, which never
	// reach a provider.
	Provider string `json:"provider,omitempty"`
	Pool     string `json:"pool,omitempty"`
	Model    string `json:"model,omitempty"`

	Attempts []AttemptInfo `json:"attempts,omitempty"`

	SchemaValidated bool `json:"schema_validated"`

	Usage          *providers.TokenUsage `json:"usage,omitempty"`
	UsageEstimated bool                  `json:"usage_estimated,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Choice is a single reply. The gateway always returns exactly one.
type Choice struct {
	Message      ReplyMessage `json:"message"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// ReplyMessage is the assistant message of a choice. Content is a string,
// a decoded JSON value when schema validation succeeded, or null for a
// function call.
type ReplyMessage struct {
	Role         string                  `json:"role"`
	Content      any                     `json:"content"`
	FunctionCall *providers.FunctionCall `json:"function_call,omitempty"`
}

// AttemptInfo is one provider attempt as reported to clients.
type AttemptInfo struct {
	Provider   string `json:"provider"`
	Pool       string `json:"pool"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// AttemptInfos converts orchestrator attempts for a response body.
func AttemptInfos(attempts []routing.Attempt) []AttemptInfo {
	if len(attempts) == 0 {
		return nil
	}
	out := make([]AttemptInfo, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptInfo{
			Provider:   a.Provider,
			Pool:       string(a.Pool),
			Outcome:    string(a.Outcome),
			Reason:     a.Reason,
			DurationMS: a.Duration.Milliseconds(),
		}
	}
	return out
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Success       bool                     `json:"success"`
	Models        map[string]string        `json:"models"`
	DefaultConfig routing.GenerationConfig `json:"default_config"`
	TargetModel   string                   `json:"target_model"`
}

// ProviderHealth is the health of one provider in a status response.
type ProviderHealth struct {
	Healthy             bool   `json:"healthy"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
}

// StatusResponse is the body of GET /api/providers/status.
type StatusResponse struct {
	Primary  []string `json:"primary"`
	Fallback []string `json:"fallback"`

	// Current is the provider the next request will try first. Reading it
	// does not advance the rotation.
	Current string `json:"current"`

	Health map[string]ProviderHealth `json:"health"`
	Stats  routing.StatsSnapshot     `json:"stats"`

	InFlight int64 `json:"in_flight"`
	Workers  int   `json:"workers"`
}
