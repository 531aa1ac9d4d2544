package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/relay/internal/providertest"
	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/telemetry/logging"
)

type testGateway struct {
	orchestrator *routing.Orchestrator
	dispatcher   *routing.Dispatcher
	processor    *processing.Processor
}

func newTestGateway(t *testing.T, primary, fallback []string, ps ...*providertest.Scripted) *testGateway {
	t.Helper()
	rot, err := routing.NewRotator(primary, fallback)
	if err != nil {
		t.Fatal(err)
	}
	orch, err := routing.NewOrchestrator(rot, providertest.NewResolver(ps...))
	if err != nil {
		t.Fatal(err)
	}
	return &testGateway{
		orchestrator: orch,
		dispatcher:   routing.NewDispatcher(4),
		processor:    processing.NewProcessor(routing.GenerationConfig{Temperature: 0.7, MaxTokens: 500}),
	}
}

func (g *testGateway) chat() *ChatHandler {
	return NewChatHandler(g.orchestrator, g.dispatcher, g.processor, 0)
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r = r.WithContext(logging.WithRequestID(r.Context(), "req-1"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

const helloBody = `{"message":[{"role":"user","content":"Hello"}]}`

func TestChatHandler_Routing(t *testing.T) {
	tests := []struct {
		name         string
		primary      []string
		fallback     []string
		failing      []string
		wantStatus   int
		wantProvider string
		wantPool     string
		wantAttempts []string
	}{
		{
			name:         "primary serves",
			primary:      []string{"a", "b"},
			fallback:     []string{"c"},
			wantStatus:   http.StatusOK,
			wantProvider: "a",
			wantPool:     "primary",
			wantAttempts: []string{"a"},
		},
		{
			name:         "fallback after primary failure",
			primary:      []string{"a", "b"},
			fallback:     []string{"c", "d"},
			failing:      []string{"a"},
			wantStatus:   http.StatusOK,
			wantProvider: "c",
			wantPool:     "fallback",
			wantAttempts: []string{"a", "c"},
		},
		{
			name:         "all providers fail",
			primary:      []string{"a"},
			fallback:     []string{"c", "d"},
			failing:      []string{"a", "c", "d"},
			wantStatus:   http.StatusInternalServerError,
			wantAttempts: []string{"a", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := map[string]bool{}
			for _, id := range tt.failing {
				failing[id] = true
			}
			var ps []*providertest.Scripted
			for _, id := range append(append([]string{}, tt.primary...), tt.fallback...) {
				if failing[id] {
					ps = append(ps, providertest.Failing(id))
				} else {
					ps = append(ps, providertest.NewScripted(id))
				}
			}
			g := newTestGateway(t, tt.primary, tt.fallback, ps...)

			w := postChat(t, g.chat(), helloBody)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var attempts []types.AttemptInfo
			if tt.wantStatus == http.StatusOK {
				resp := decode[types.ChatResponse](t, w)
				if resp.Provider != tt.wantProvider || resp.Pool != tt.wantPool {
					t.Errorf("served by (%q, %q), want (%q, %q)", resp.Provider, resp.Pool, tt.wantProvider, tt.wantPool)
				}
				if got := resp.Choices[0].Message.Content; got != "ok from "+tt.wantProvider {
					t.Errorf("content = %v", got)
				}
				if resp.RequestID != "req-1" {
					t.Errorf("request_id = %q", resp.RequestID)
				}
				attempts = resp.Attempts
			} else {
				resp := decode[types.ErrorResponse](t, w)
				if resp.Code != types.CodeAllProvidersFailed {
					t.Errorf("code = %q", resp.Code)
				}
				attempts = resp.Attempts
			}

			got := make([]string, len(attempts))
			for i, a := range attempts {
				got[i] = a.Provider
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.wantAttempts) {
				t.Errorf("attempts = %v, want %v", got, tt.wantAttempts)
			}
		})
	}
}

func TestChatHandler_RotatesAcrossRequests(t *testing.T) {
	g := newTestGateway(t, []string{"a", "b", "c"}, nil,
		providertest.NewScripted("a"), providertest.NewScripted("b"), providertest.NewScripted("c"))
	h := g.chat()

	var served []string
	for i := 0; i < 4; i++ {
		w := postChat(t, h, helloBody)
		served = append(served, decode[types.ChatResponse](t, w).Provider)
	}
	if want := "[a b c a]"; fmt.Sprint(served) != want {
		t.Errorf("served = %v, want %s", served, want)
	}
}

func TestChatHandler_ClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "missing message", body: `{}`, wantCode: types.CodeMissingField},
		{name: "message not array", body: `{"message":"hi"}`, wantCode: types.CodeInvalidValue},
		{name: "malformed JSON", body: `{"message":`, wantCode: types.CodeInvalidJSON},
		{
			name:     "base64 image",
			body:     `{"message":[{"role":"user","content":[{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}}]}]}`,
			wantCode: types.CodeInvalidImage,
		},
		{
			name:     "bad schema",
			body:     `{"message":[{"role":"user","content":"hi"}],"response_format":{"type":"json_schema","json_schema":{"schema":{"type":12}}}}`,
			wantCode: types.CodeInvalidSchema,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := providertest.NewScripted("a")
			g := newTestGateway(t, []string{"a"}, nil, a)

			w := postChat(t, g.chat(), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			if resp := decode[types.ErrorResponse](t, w); resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if a.Calls() != 0 {
				t.Errorf("provider called %d times for a rejected request", a.Calls())
			}
		})
	}
}

func TestChatHandler_MethodNotAllowed(t *testing.T) {
	g := newTestGateway(t, []string{"a"}, nil, providertest.NewScripted("a"))

	w := httptest.NewRecorder()
	g.chat().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
}

func TestChatHandler_FunctionCall(t *testing.T) {
	a := providertest.NewScripted("a")
	g := newTestGateway(t, []string{"a"}, nil, a)

	w := postChat(t, g.chat(), `{"message":[{"role":"user","content":"hi"}],"function_name":"lookup","args":{"id": 7}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	resp := decode[types.ChatResponse](t, w)
	fc := resp.Choices[0].Message.FunctionCall
	if fc == nil || fc.Name != "lookup" || fc.Arguments != `{"id":7}` {
		t.Errorf("function_call = %+v", fc)
	}
	if a.Calls() != 0 {
		t.Errorf("provider called %d times for a function call", a.Calls())
	}
}

func TestChatHandler_StructuredOutput(t *testing.T) {
	const format = `"response_format":{"type":"json_schema","json_schema":{"name":"person","strict":%t,"schema":{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}}}`

	tests := []struct {
		name          string
		reply         string
		strict        bool
		wantStatus    int
		wantValidated bool
	}{
		{name: "valid reply", reply: "```json\n{\"name\":\"Ada\"}\n```", strict: true, wantStatus: http.StatusOK, wantValidated: true},
		{name: "invalid reply lenient", reply: `{"age":3}`, strict: false, wantStatus: http.StatusOK},
		{name: "invalid reply strict", reply: `{"age":3}`, strict: true, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := providertest.NewScripted("a", providertest.Succeed(tt.reply))
			g := newTestGateway(t, []string{"a"}, nil, a)

			body := `{"message":[{"role":"user","content":"who?"}],` + fmt.Sprintf(format, tt.strict) + `}`
			w := postChat(t, g.chat(), body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus != http.StatusOK {
				if resp := decode[types.ErrorResponse](t, w); resp.Code != types.CodeSchemaValidation {
					t.Errorf("code = %q", resp.Code)
				}
				return
			}

			resp := decode[types.ChatResponse](t, w)
			if resp.SchemaValidated != tt.wantValidated {
				t.Errorf("schema_validated = %v, want %v", resp.SchemaValidated, tt.wantValidated)
			}
			if tt.wantValidated {
				obj, ok := resp.Choices[0].Message.Content.(map[string]any)
				if !ok || obj["name"] != "Ada" {
					t.Errorf("content = %#v, want decoded object", resp.Choices[0].Message.Content)
				}
			}

			req := a.LastRequest()
			if req == nil || req.Messages[0].Role != "system" {
				t.Error("schema instruction was not prepended as a system message")
			}
		})
	}
}

type busyAdmitter struct{}

func (busyAdmitter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fmt.Errorf("%w: %w", routing.ErrDispatcherBusy, context.DeadlineExceeded)
}

func TestChatHandler_Overloaded(t *testing.T) {
	a := providertest.NewScripted("a")
	g := newTestGateway(t, []string{"a"}, nil, a)
	h := NewChatHandler(g.orchestrator, busyAdmitter{}, g.processor, 0)

	w := postChat(t, h, helloBody)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decode[types.ErrorResponse](t, w); resp.Code != types.CodeOverloaded || resp.RequestID != "req-1" {
		t.Errorf("body = %+v", resp)
	}
	if a.Calls() != 0 {
		t.Error("provider called while overloaded")
	}
}

func TestChatHandler_BodyLimit(t *testing.T) {
	g := newTestGateway(t, []string{"a"}, nil, providertest.NewScripted("a"))
	h := NewChatHandler(g.orchestrator, g.dispatcher, g.processor, 16)

	w := postChat(t, h, helloBody)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", w.Code)
	}
}
