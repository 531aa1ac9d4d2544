package providers

import (
	"encoding/json"
	"testing"
)

func TestContent_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantText  string
		wantParts int
		wantNull  bool
		wantErr   bool
	}{
		{name: "string", input: `"hello"`, wantText: "hello"},
		{name: "null", input: `null`, wantNull: true},
		{name: "empty array", input: `[]`},
		{name: "parts", input: `[{"type":"text","text":"a"},{"type":"image_url","image_url":{"url":"https://x/y.png"}}]`, wantText: "a", wantParts: 2},
		{name: "number", input: `42`, wantErr: true},
		{name: "object", input: `{"text":"a"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Content
			err := json.Unmarshal([]byte(tt.input), &c)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.String() != tt.wantText {
				t.Errorf("String() = %q, want %q", c.String(), tt.wantText)
			}
			if len(c.Parts) != tt.wantParts {
				t.Errorf("parts = %d, want %d", len(c.Parts), tt.wantParts)
			}
			if c.Null != tt.wantNull {
				t.Errorf("Null = %v, want %v", c.Null, tt.wantNull)
			}
		})
	}
}

func TestContent_EmptyArrayStaysMultipart(t *testing.T) {
	var c Content
	if err := json.Unmarshal([]byte(`[]`), &c); err != nil {
		t.Fatal(err)
	}
	if !c.IsMultipart() {
		t.Error("expected [] to decode as multipart content")
	}
	out, _ := json.Marshal(c)
	if string(out) != "[]" {
		t.Errorf("expected [] to round trip, got %s", out)
	}
}

func TestMessage_MarshalFunctionCall(t *testing.T) {
	m := Message{
		Role:         RoleAssistant,
		Content:      Content{Null: true},
		FunctionCall: &FunctionCall{Name: "get_weather", Arguments: `{"city":"Paris"}`},
	}
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"role":"assistant","content":null,"function_call":{"name":"get_weather","arguments":"{\"city\":\"Paris\"}"}}`
	if string(out) != want {
		t.Errorf("got %s\nwant %s", out, want)
	}
}

func TestContent_ImageURLs(t *testing.T) {
	c := PartsContent(
		ContentPart{Type: PartText, Text: "look"},
		ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: "https://a/1.png"}},
		ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: "https://a/2.png"}},
	)
	urls := c.ImageURLs()
	if len(urls) != 2 || urls[0] != "https://a/1.png" || urls[1] != "https://a/2.png" {
		t.Errorf("unexpected urls %v", urls)
	}
	if TextContent("x").ImageURLs() != nil {
		t.Error("text content has no images")
	}
}
