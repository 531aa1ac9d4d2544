package types

import (
	"encoding/json"

	"mercator-hq/relay/pkg/providers"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	// Message is the conversation. It must be a JSON array of messages;
	// it is kept raw so a missing field and a non-array value can be told
	// apart.
	Message json.RawMessage `json:"message"`

	// Config overrides generation defaults key by key. Unknown keys are
	// ignored.
	Config map[string]json.RawMessage `json:"config,omitempty"`

	// SystemPrompt is prepended as a system message when the conversation
	// has none.
	SystemPrompt *string `json:"system_prompt,omitempty"`

	// Conversation is prior history spliced in after the first message.
	Conversation []providers.Message `json:"conversation,omitempty"`

	// FunctionName and Args request a function call reply instead of a
	// completion. Both must be set.
	FunctionName string          `json:"function_name,omitempty"`
	Args         json.RawMessage `json:"args,omitempty"`

	// ResponseFormat requests structured output.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat specifies the format of the model's output.
type ResponseFormat struct {
	// Type is "json_schema" for schema-validated output. Other values are
	// accepted and ignored.
	Type string `json:"type"`

	JSONSchema *JSONSchemaFormat `json:"json_schema,omitempty"`
}

// JSONSchemaFormat carries the schema of a json_schema response format.
type JSONSchemaFormat struct {
	// Name defaults to "response".
	Name string `json:"name,omitempty"`

	// Schema is a JSON Schema document.
	Schema json.RawMessage `json:"schema,omitempty"`

	// Strict turns a validation failure into an error response.
	Strict bool `json:"strict,omitempty"`
}

// ResponseFormatJSONSchema is the response format type that enables schema
// validation.
const ResponseFormatJSONSchema = "json_schema"
