package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/telemetry/logging"
)

func TestChatResponse(t *testing.T) {
	result := &routing.Result{
		Response: &providers.CompletionResponse{Content: "hi"},
		Provider: "c",
		Pool:     routing.PoolFallback,
		Model:    "gpt-4o",
		Attempts: []routing.Attempt{
			{Provider: "a", Pool: routing.PoolPrimary, Outcome: routing.OutcomeFailure, Reason: "timeout", Duration: 1500 * time.Millisecond},
			{Provider: "c", Pool: routing.PoolFallback, Outcome: routing.OutcomeSuccess},
		},
	}
	reply := &processing.Reply{
		Content:        "hi",
		FinishReason:   "stop",
		Usage:          providers.TokenUsage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
		UsageEstimated: true,
	}

	resp := ChatResponse(result, reply)

	if !resp.Success || len(resp.Choices) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if msg := resp.Choices[0].Message; msg.Role != "assistant" || msg.Content != "hi" {
		t.Errorf("message = %+v", msg)
	}
	if resp.Provider != "c" || resp.Pool != "fallback" || resp.Model != "gpt-4o" {
		t.Errorf("served by = (%q, %q, %q)", resp.Provider, resp.Pool, resp.Model)
	}
	if len(resp.Attempts) != 2 || resp.Attempts[0].DurationMS != 1500 {
		t.Errorf("attempts = %+v", resp.Attempts)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 4 || !resp.UsageEstimated {
		t.Errorf("usage = %+v, estimated %v", resp.Usage, resp.UsageEstimated)
	}
}

func TestFunctionCallResponse(t *testing.T) {
	resp := FunctionCallResponse(&providers.FunctionCall{Name: "lookup", Arguments: `{"id":7}`})

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Choices []struct {
			Message struct {
				Content      any `json:"content"`
				FunctionCall struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function_call"`
			} `json:"message"`
		} `json:"choices"`
		Provider string `json:"provider"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	msg := decoded.Choices[0].Message
	if msg.Content != nil {
		t.Errorf("content = %v, want null", msg.Content)
	}
	if msg.FunctionCall.Name != "lookup" || msg.FunctionCall.Arguments != `{"id":7}` {
		t.Errorf("function_call = %+v", msg.FunctionCall)
	}
	if decoded.Provider != "" {
		t.Errorf("provider = %q, want empty", decoded.Provider)
	}
}

func TestWriteError(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	r = r.WithContext(logging.WithRequestID(r.Context(), "req-42"))
	w := httptest.NewRecorder()

	status := WriteError(w, r, errors.New("boom"))

	if status != http.StatusInternalServerError || w.Code != status {
		t.Fatalf("status = %d, recorded %d", status, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body types.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.RequestID != "req-42" || body.Error != internalErrorMessage {
		t.Errorf("body = %+v", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	w := httptest.NewRecorder()

	MethodNotAllowed(w, r, http.MethodPost)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
	if got := w.Header().Get("Allow"); got != http.MethodPost {
		t.Errorf("Allow = %q", got)
	}

	var body types.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Code != types.CodeMethodNotAllowed {
		t.Errorf("code = %q", body.Code)
	}
}

func TestTimestamp(t *testing.T) {
	ts, err := time.Parse(time.RFC3339Nano, Timestamp())
	if err != nil {
		t.Fatalf("Timestamp() not RFC3339: %v", err)
	}
	if ts.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", ts.Location())
	}
}
