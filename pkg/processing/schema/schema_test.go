package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const personSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"age": {"type": "integer", "minimum": 0}
	},
	"required": ["name"]
}`

func TestCompile(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantName string
		wantErr  bool
	}{
		{name: "valid schema", raw: personSchema, wantName: DefaultName},
		{name: "empty document", raw: "", wantName: DefaultName},
		{name: "null document", raw: "null", wantName: DefaultName},
		{name: "malformed json", raw: `{"type": `, wantErr: true},
		{name: "bad keyword value", raw: `{"type": 12}`, wantErr: true},
		{name: "bad minimum", raw: `{"minimum": "zero"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile("", json.RawMessage(tt.raw), false)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSchema) {
					t.Fatalf("Compile() error = %v, want ErrInvalidSchema", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compile() unexpected error: %v", err)
			}
			if s.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", s.Name, tt.wantName)
			}
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	s, err := Compile("person", json.RawMessage(personSchema), true)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "valid object", content: `{"name": "Ada", "age": 36}`},
		{name: "valid object in fence", content: "```json\n{\"name\": \"Ada\"}\n```"},
		{name: "missing required", content: `{"age": 3}`, wantErr: true},
		{name: "wrong type", content: `{"name": "Ada", "age": "old"}`, wantErr: true},
		{name: "negative age", content: `{"name": "Ada", "age": -1}`, wantErr: true},
		{name: "not json", content: "I cannot do that.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.Validate(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrValidationFailed) {
					t.Fatalf("Validate() error = %v, want ErrValidationFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			obj, ok := v.(map[string]any)
			if !ok || obj["name"] != "Ada" {
				t.Errorf("Validate() value = %#v", v)
			}
		})
	}
}

func TestSchema_Instruction(t *testing.T) {
	s, err := Compile("person", json.RawMessage(`{"type":"object"}`), false)
	if err != nil {
		t.Fatal(err)
	}

	got := s.Instruction()
	if !strings.HasPrefix(got, "You must respond with a valid JSON object that follows this schema:\n") {
		t.Errorf("Instruction() prefix wrong: %q", got)
	}
	if !strings.Contains(got, "{\n  \"type\": \"object\"\n}") {
		t.Errorf("Instruction() does not embed the indented schema: %q", got)
	}
	if !strings.HasSuffix(got, "no additional text or markdown.") {
		t.Errorf("Instruction() suffix wrong: %q", got)
	}
}
