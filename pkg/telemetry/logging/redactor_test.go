package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name     string
		input    string
		want     string
		mustHide string
	}{
		{
			name:     "openai key",
			input:    "using sk-abcdefghijklmnop",
			want:     "using sk-***",
			mustHide: "abcdefghijklmnop",
		},
		{
			name:     "anthropic key",
			input:    "key sk-ant-api03-xyzxyzxyz",
			want:     "key sk-***",
			mustHide: "xyzxyzxyz",
		},
		{
			name:     "bearer token",
			input:    "Authorization: Bearer abc.def.ghi",
			want:     "Authorization: Bearer ***",
			mustHide: "abc.def.ghi",
		},
		{
			name:     "query key",
			input:    "GET /v1beta/models?key=AIzaSecret&alt=json",
			want:     "GET /v1beta/models?key=***&alt=json",
			mustHide: "AIzaSecret",
		},
		{
			name:     "password",
			input:    "password=hunter2",
			want:     "password: ***",
			mustHide: "hunter2",
		},
		{
			name:  "nothing to redact",
			input: "provider a failed: HTTP 500",
			want:  "provider a failed: HTTP 500",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactString(tt.input)
			if got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if tt.mustHide != "" && strings.Contains(got, tt.mustHide) {
				t.Errorf("RedactString(%q) leaked %q", tt.input, tt.mustHide)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor()

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive string key", slog.String("api_key", "gsk_1234567890"), "gsk_***"},
		{"sensitive short value", slog.String("token", "abc"), "***"},
		{"sensitive non-string", slog.Int("secret", 42), "***"},
		{"plain string scanned", slog.String("url", "https://x?key=s3cr3t"), "https://x?key=***"},
		{"error value scanned", slog.Any("error", errors.New("auth failed for sk-abcdefghijkl")), "auth failed for sk-***"},
		{"other values untouched", slog.Int("attempts", 3), "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Key != tt.attr.Key {
				t.Errorf("key = %q, want %q", got.Key, tt.attr.Key)
			}
			if got.Value.String() != tt.want {
				t.Errorf("value = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttrGroup(t *testing.T) {
	r := NewRedactor()

	got := r.RedactAttr(slog.Group("provider", slog.String("name", "groq"), slog.String("api_key", "gsk_verysecret")))

	group := got.Value.Group()
	if len(group) != 2 {
		t.Fatalf("group has %d attrs", len(group))
	}
	if group[0].Value.String() != "groq" {
		t.Errorf("name = %q", group[0].Value.String())
	}
	if group[1].Value.String() != "gsk_***" {
		t.Errorf("api_key = %q", group[1].Value.String())
	}
}

func TestRedactingHandler_WithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(&redactingHandler{next: slog.NewJSONHandler(buf, nil), redactor: NewRedactor()})

	logger.With("authorization", "Bearer topsecretvalue").WithGroup("g").Info("ok", "password", "pw")

	if strings.Contains(buf.String(), "topsecretvalue") || strings.Contains(buf.String(), `"pw"`) {
		t.Errorf("secret leaked: %s", buf.String())
	}
}

func TestRedactAPIKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"short", "***"},
		{"12345678", "***"},
		{"sk-1234567890", "sk-1***"},
	}
	for _, tt := range tests {
		if got := RedactAPIKey(tt.input); got != tt.want {
			t.Errorf("RedactAPIKey(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
