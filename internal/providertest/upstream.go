// Package providertest provides fake providers and a fake upstream server for
// tests of the provider layer, the orchestrator and the HTTP handlers.
package providertest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Reply describes what the fake upstream sends back for one path.
type Reply struct {
	Status  int
	Body    any
	Delay   time.Duration
	Headers map[string]string
}

// Upstream is an httptest server speaking enough of the chat-completions
// and messages APIs to exercise the adapters.
type Upstream struct {
	server *httptest.Server

	mu       sync.Mutex
	replies  map[string]Reply
	requests []Captured
}

// Captured is a request seen by the Upstream.
type Captured struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

// NewUpstream starts a fake upstream. Close it when done.
func NewUpstream() *Upstream {
	u := &Upstream{replies: make(map[string]Reply)}
	u.server = httptest.NewServer(http.HandlerFunc(u.serve))
	return u
}

// URL returns the server base URL.
func (u *Upstream) URL() string { return u.server.URL }

// Close stops the server.
func (u *Upstream) Close() { u.server.Close() }

// On sets the reply for path.
func (u *Upstream) On(path string, r Reply) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.replies[path] = r
}

// Requests returns the captured requests in arrival order.
func (u *Upstream) Requests() []Captured {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Captured(nil), u.requests...)
}

// Count returns the number of requests received.
func (u *Upstream) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	c := Captured{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
	if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &c.Body)
	}

	u.mu.Lock()
	u.requests = append(u.requests, c)
	reply, ok := u.replies[r.URL.Path]
	u.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for k, v := range reply.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json")
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	switch b := reply.Body.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, b)
	case []byte:
		_, _ = w.Write(b)
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}

// ChatCompletion builds a chat-completions response body.
func ChatCompletion(content, model string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// AnthropicMessage builds a messages API response body.
func AnthropicMessage(content, model string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": content}},
		"model":       model,
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

// ErrorReply builds an upstream error reply.
func ErrorReply(status int, message string) Reply {
	return Reply{
		Status: status,
		Body: map[string]any{
			"error": map[string]any{"message": message, "code": status},
		},
	}
}

// RateLimited builds a 429 reply with a Retry-After header.
func RateLimited(retryAfter int) Reply {
	r := ErrorReply(http.StatusTooManyRequests, "rate limit exceeded")
	r.Headers = map[string]string{"Retry-After": fmt.Sprint(retryAfter)}
	return r
}
