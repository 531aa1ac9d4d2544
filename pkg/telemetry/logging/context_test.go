package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	ctx = WithProvider(ctx, "pollinations")
	if got := GetProvider(ctx); got != "pollinations" {
		t.Errorf("GetProvider() = %q, want %q", got, "pollinations")
	}

	ctx = WithTraceID(ctx, "trace-abc")
	if got := GetTraceID(ctx); got != "trace-abc" {
		t.Errorf("GetTraceID() = %q, want %q", got, "trace-abc")
	}

	ctx = WithSpanID(ctx, "span-def")
	if got := GetSpanID(ctx); got != "span-def" {
		t.Errorf("GetSpanID() = %q, want %q", got, "span-def")
	}
}

func TestContextKeys_Missing(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
	if got := GetProvider(ctx); got != "" {
		t.Errorf("GetProvider() = %q, want empty", got)
	}
	//nolint:staticcheck // nil context is handled explicitly
	if got := GetRequestID(nil); got != "" {
		t.Errorf("GetRequestID(nil) = %q, want empty", got)
	}
}

func TestContextHandler_AddsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(&contextHandler{next: slog.NewJSONHandler(buf, nil)})

	ctx := WithProvider(WithRequestID(context.Background(), "req-1"), "groq")
	logger.InfoContext(ctx, "attempt failed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry["request_id"])
	}
	if entry["provider"] != "groq" {
		t.Errorf("provider = %v, want groq", entry["provider"])
	}
}

func TestContextHandler_ExplicitAttrWins(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(&contextHandler{next: slog.NewJSONHandler(buf, nil)})

	ctx := WithProvider(context.Background(), "from-context")
	logger.InfoContext(ctx, "attempt", "provider", "explicit")

	if n := strings.Count(buf.String(), `"provider"`); n != 1 {
		t.Errorf("provider appears %d times in %s", n, buf.String())
	}
	if !strings.Contains(buf.String(), `"provider":"explicit"`) {
		t.Errorf("explicit provider lost: %s", buf.String())
	}
}

func TestContextHandler_NoContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(&contextHandler{next: slog.NewJSONHandler(buf, nil)})

	logger.With("component", "test").Info("plain")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id in %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"component":"test"`) {
		t.Errorf("WithAttrs lost component: %s", buf.String())
	}
}
