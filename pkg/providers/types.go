package providers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
)

// Content part types
const (
	PartText     = "text"
	PartImageURL = "image_url"
)

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonFunctionCall  = "function_call"
	FinishReasonContentFilter = "content_filter"
)

// Message is a single conversation message in the chat-completions shape
// accepted by the gateway.
type Message struct {
	Role         string        `json:"role"`
	Content      Content       `json:"content"`
	Name         string        `json:"name,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// FunctionCall is an assistant request to invoke a named function.
// Arguments holds a JSON-encoded object.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ContentPart is one element of a multi-part message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image by URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Content is message content. On the wire it is a string, an array of
// content parts, or null.
type Content struct {
	Text  string
	Parts []ContentPart
	Null  bool
}

// TextContent returns string content.
func TextContent(s string) Content {
	return Content{Text: s}
}

// PartsContent returns multi-part content.
func PartsContent(parts ...ContentPart) Content {
	return Content{Parts: parts}
}

// IsMultipart reports whether the content was supplied as parts.
func (c Content) IsMultipart() bool {
	return c.Parts != nil
}

// String flattens the content to text. Text parts are joined by newlines;
// image parts are skipped.
func (c Content) String() string {
	if !c.IsMultipart() {
		return c.Text
	}
	var texts []string
	for _, p := range c.Parts {
		if p.Type == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// ImageURLs returns the URLs of all image parts in order.
func (c Content) ImageURLs() []string {
	var urls []string
	for _, p := range c.Parts {
		if p.Type == PartImageURL && p.ImageURL != nil {
			urls = append(urls, p.ImageURL.URL)
		}
	}
	return urls
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case c.Null:
		return []byte("null"), nil
	case c.IsMultipart():
		return json.Marshal(c.Parts)
	default:
		return json.Marshal(c.Text)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Content{}

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		c.Null = true
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &c.Text)
	case data[0] == '[':
		parts := []ContentPart{}
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		c.Parts = parts
		return nil
	default:
		return fmt.Errorf("message content must be a string, an array of parts or null")
	}
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is the provider-agnostic request every adapter accepts.
// Every sampling field is sent as given, including zero values.
type CompletionRequest struct {
	Model            string
	Messages         []Message
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             []string
	Stream           bool
}

// CompletionResponse is the normalized upstream response.
type CompletionResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	Usage        TokenUsage
	Created      int64
}

// ProviderHealth is a snapshot of a provider's health record.
type ProviderHealth struct {
	IsHealthy             bool
	LastCheck             time.Time
	LastError             error
	ConsecutiveFailures   int
	LastSuccessfulRequest time.Time
	TotalRequests         int64
	FailedRequests        int64
}

// ProviderConfig holds the settings an adapter needs.
type ProviderConfig struct {
	// Name is the provider identifier used in pools and logs.
	Name string

	// Type selects the adapter: "openai" or "anthropic".
	Type string

	BaseURL string
	APIKey  string

	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration

	// MaxRetries is the number of transport-level retries on 5xx and
	// network errors. Zero means one upstream call per completion.
	MaxRetries int

	// HealthCheckInterval enables periodic health checks when positive.
	HealthCheckInterval time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}
