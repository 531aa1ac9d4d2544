package processing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"mercator-hq/relay/pkg/processing/schema"
	"mercator-hq/relay/pkg/processing/tokens"
	"mercator-hq/relay/pkg/providers"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing"
)

// Prepared is a chat request ready for the orchestrator.
type Prepared struct {
	// Messages is the full conversation to send upstream.
	Messages []providers.Message

	// Generation is the request's config merged over the defaults.
	Generation routing.GenerationConfig

	// FunctionCall is set when the request asked for a function call
	// reply. No provider should be contacted.
	FunctionCall *providers.FunctionCall

	// Schema is set when the request asked for schema-validated output.
	Schema *schema.Schema
}

// Reply is a provider response shaped for the client.
type Reply struct {
	// Content is the reply text, or the decoded JSON value when schema
	// validation succeeded.
	Content any

	SchemaValidated bool
	FinishReason    string

	Usage          providers.TokenUsage
	UsageEstimated bool
}

// Processor prepares chat requests and shapes replies. It is safe for
// concurrent use.
type Processor struct {
	defaults            atomic.Pointer[routing.GenerationConfig]
	defaultSystemPrompt string
	estimator           tokens.Estimator
	logger              *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithDefaultSystemPrompt sets the system prompt used when a request
// carries neither a system message nor a system_prompt.
func WithDefaultSystemPrompt(prompt string) Option {
	return func(p *Processor) { p.defaultSystemPrompt = prompt }
}

// WithEstimator replaces the token estimator used to fill missing usage.
func WithEstimator(e tokens.Estimator) Option {
	return func(p *Processor) { p.estimator = e }
}

// NewProcessor creates a processor that merges request configs over
// defaults.
func NewProcessor(defaults routing.GenerationConfig, opts ...Option) *Processor {
	p := &Processor{
		estimator: tokens.NewSimpleEstimator(nil),
		logger:    slog.Default().With("component", "processing"),
	}
	p.SetDefaults(defaults)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Defaults returns the current generation defaults.
func (p *Processor) Defaults() routing.GenerationConfig {
	return *p.defaults.Load()
}

// SetDefaults replaces the generation defaults for subsequent requests.
func (p *Processor) SetDefaults(g routing.GenerationConfig) {
	p.defaults.Store(&g)
}

// PrepareRequest validates req and builds the conversation and generation
// config for the orchestrator. Client errors are returned as *RequestError.
func (p *Processor) PrepareRequest(req *types.ChatRequest) (*Prepared, error) {
	messages, err := decodeMessages(req.Message)
	if err != nil {
		return nil, err
	}

	gen, err := mergeGeneration(p.Defaults(), req.Config)
	if err != nil {
		return nil, err
	}

	if len(req.Conversation) > 0 {
		spliced := make([]providers.Message, 0, len(messages)+len(req.Conversation))
		spliced = append(spliced, messages[0])
		spliced = append(spliced, req.Conversation...)
		messages = append(spliced, messages[1:]...)
	}

	for i, msg := range messages {
		if problem := roleProblem(msg.Role); problem != "" {
			return nil, &RequestError{
				Field:   fmt.Sprintf("message[%d].role", i),
				Code:    types.CodeInvalidValue,
				Message: problem,
				Err:     ErrInvalidMessage,
			}
		}
		for _, u := range imageURLs(msg.Content) {
			if err := ValidateImageURL(u); err != nil {
				return nil, err
			}
		}
	}

	prepared := &Prepared{Generation: gen}

	if req.FunctionName != "" && truthy(req.Args) {
		var compact bytes.Buffer
		if err := json.Compact(&compact, req.Args); err != nil {
			return nil, &RequestError{Field: "args", Code: types.CodeInvalidValue, Message: "args must be valid JSON", Err: err}
		}
		prepared.Messages = messages
		prepared.FunctionCall = &providers.FunctionCall{Name: req.FunctionName, Arguments: compact.String()}
		return prepared, nil
	}

	prompt := p.defaultSystemPrompt
	if req.SystemPrompt != nil {
		prompt = *req.SystemPrompt
	}
	if prompt != "" && !hasSystemMessage(messages) {
		messages = append([]providers.Message{systemMessage(prompt)}, messages...)
	}

	if rf := req.ResponseFormat; rf != nil && rf.Type == types.ResponseFormatJSONSchema {
		var name string
		var doc json.RawMessage
		var strict bool
		if js := rf.JSONSchema; js != nil {
			name, doc, strict = js.Name, js.Schema, js.Strict
		}

		s, err := schema.Compile(name, doc, strict)
		if err != nil {
			return nil, &RequestError{
				Field:   "response_format.json_schema.schema",
				Code:    types.CodeInvalidSchema,
				Message: "Invalid JSON schema format",
				Err:     err,
			}
		}
		prepared.Schema = s
		messages = append([]providers.Message{systemMessage(s.Instruction())}, messages...)
	}

	prepared.Messages = messages
	return prepared, nil
}

// ProcessResponse shapes resp for the client. With a strict schema a reply
// that fails validation returns an error wrapping
// schema.ErrValidationFailed; without strict the raw text is returned
// unvalidated.
func (p *Processor) ProcessResponse(prep *Prepared, resp *providers.CompletionResponse, model string) (*Reply, error) {
	reply := &Reply{
		Content:      resp.Content,
		FinishReason: resp.FinishReason,
		Usage:        resp.Usage,
	}

	if prep.Schema != nil {
		v, err := prep.Schema.Validate(resp.Content)
		switch {
		case err == nil:
			reply.Content = v
			reply.SchemaValidated = true
		case prep.Schema.Strict:
			p.logger.Warn("reply rejected by strict schema", "schema", prep.Schema.Name, "error", err)
			return nil, err
		default:
			p.logger.Debug("reply did not match schema", "schema", prep.Schema.Name, "error", err)
		}
	}

	if reply.Usage == (providers.TokenUsage{}) {
		reply.Usage = tokens.Usage(p.estimator, prep.Messages, resp.Content, model)
		reply.UsageEstimated = true
	}
	return reply, nil
}

// ValidateImageURL rejects data: URLs and URLs without a scheme or host.
func ValidateImageURL(raw string) error {
	if strings.HasPrefix(raw, "data:") {
		return &RequestError{
			Field:   "image_url",
			Code:    types.CodeInvalidImage,
			Message: "Direct base64 images are not supported",
			Err:     ErrBase64Image,
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &RequestError{
			Field:   "image_url",
			Code:    types.CodeInvalidImage,
			Message: "Invalid image URL",
			Err:     ErrInvalidImageURL,
		}
	}
	return nil
}

func decodeMessages(raw json.RawMessage) ([]providers.Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &RequestError{
			Field:   "message",
			Code:    types.CodeMissingField,
			Message: "Message field is required",
			Err:     ErrMissingMessage,
		}
	}
	if trimmed[0] != '[' {
		return nil, &RequestError{
			Field:   "message",
			Code:    types.CodeInvalidValue,
			Message: "Messages must be an array",
			Err:     ErrMessageNotArray,
		}
	}

	var messages []providers.Message
	if err := json.Unmarshal(trimmed, &messages); err != nil {
		return nil, &RequestError{
			Field:   "message",
			Code:    types.CodeInvalidValue,
			Message: "Invalid message: " + err.Error(),
			Err:     errors.Join(ErrInvalidMessage, err),
		}
	}
	if len(messages) == 0 {
		return nil, &RequestError{
			Field:   "message",
			Code:    types.CodeInvalidValue,
			Message: "Message must contain at least one message",
			Err:     ErrInvalidMessage,
		}
	}
	return messages, nil
}

// roleProblem describes what is wrong with role, or returns "".
func roleProblem(role string) string {
	switch role {
	case providers.RoleSystem, providers.RoleUser, providers.RoleAssistant, providers.RoleFunction:
		return ""
	case "":
		return "Message role is required"
	default:
		return fmt.Sprintf("Unsupported message role %q", role)
	}
}

// imageURLs returns the URL of every image part, including parts whose URL
// is missing, which are reported as "".
func imageURLs(c providers.Content) []string {
	var urls []string
	for _, part := range c.Parts {
		if part.Type != providers.PartImageURL {
			continue
		}
		if part.ImageURL == nil {
			urls = append(urls, "")
			continue
		}
		urls = append(urls, part.ImageURL.URL)
	}
	return urls
}

func hasSystemMessage(messages []providers.Message) bool {
	for _, m := range messages {
		if m.Role == providers.RoleSystem {
			return true
		}
	}
	return false
}

func systemMessage(text string) providers.Message {
	return providers.Message{Role: providers.RoleSystem, Content: providers.TextContent(text)}
}

// truthy reports whether raw holds a value other than null, false, zero,
// an empty string, an empty array or an empty object.
func truthy(raw json.RawMessage) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}

	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		return err != nil || f != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}
