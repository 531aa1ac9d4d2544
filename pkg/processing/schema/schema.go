// Package schema compiles client-supplied JSON schemas and validates model
// output against them.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"mercator-hq/relay/pkg/processing/extract"
)

// resourceURL names the in-memory schema document inside the compiler.
const resourceURL = "relay://response-format/schema.json"

// DefaultName is used when a response format does not name its schema.
const DefaultName = "response"

var (
	// ErrInvalidSchema is returned when a schema document cannot be
	// compiled.
	ErrInvalidSchema = errors.New("invalid JSON schema")

	// ErrValidationFailed is returned when content does not satisfy the
	// schema.
	ErrValidationFailed = errors.New("response failed schema validation")
)

// Schema is a compiled response schema.
type Schema struct {
	Name   string
	Strict bool

	doc      any
	compiled *jsonschema.Schema
}

// Compile compiles raw into a Schema. An empty document is treated as the
// permissive schema {}.
func Compile(name string, raw json.RawMessage, strict bool) (*Schema, error) {
	if name == "" {
		name = DefaultName
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		raw = json.RawMessage("{}")
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	return &Schema{Name: name, Strict: strict, doc: doc, compiled: compiled}, nil
}

// Instruction returns the system message text that asks the model for JSON
// matching the schema. The schema is embedded indented by two spaces.
func (s *Schema) Instruction() string {
	pretty, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		pretty = []byte("{}")
	}

	var b strings.Builder
	b.WriteString("You must respond with a valid JSON object that follows this schema:\n")
	b.Write(pretty)
	b.WriteString("\nThe response must be strictly valid JSON with no additional text or markdown.")
	return b.String()
}

// Validate extracts a JSON value from content and checks it against the
// schema. On success the decoded value is returned. Errors wrap
// ErrValidationFailed.
func (s *Schema) Validate(content string) (any, error) {
	v, _, err := extract.JSON(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return v, nil
}
