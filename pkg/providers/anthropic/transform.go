package anthropic

import (
	"strings"

	"mercator-hq/relay/pkg/providers"
)

// defaultMaxTokens is sent when the request leaves max_tokens unset; the
// Messages API requires the field.
const defaultMaxTokens = 4096

type messagesRequest struct {
	Model         string    `json:"model"`
	Messages      []message `json:"messages"`
	System        string    `json:"system,omitempty"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   float64   `json:"temperature"`
	TopP          float64   `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

type message struct {
	Role    string  `json:"role"`
	Content []block `json:"content"`
}

type block struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type messagesResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Role       string  `json:"role"`
	Content    []block `json:"content"`
	Model      string  `json:"model"`
	StopReason string  `json:"stop_reason"`
	Usage      usage   `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func toMessagesRequest(req *providers.CompletionRequest) (*messagesRequest, error) {
	out := &messagesRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		Temperature:   clampTemperature(req.Temperature),
		StopSequences: req.Stop,
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = defaultMaxTokens
	}
	// top_p 1.0 is the upstream default; omit it so it does not conflict
	// with temperature on models that reject both.
	if req.TopP > 0 && req.TopP < 1 {
		out.TopP = req.TopP
	}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case providers.RoleSystem:
			if s := m.Content.String(); s != "" {
				system = append(system, s)
			}
			continue
		case providers.RoleFunction:
			m.Role = providers.RoleUser
		}

		blocks := toBlocks(m)
		if len(blocks) == 0 {
			continue
		}
		if n := len(out.Messages); n > 0 && out.Messages[n-1].Role == m.Role {
			out.Messages[n-1].Content = append(out.Messages[n-1].Content, blocks...)
			continue
		}
		out.Messages = append(out.Messages, message{Role: m.Role, Content: blocks})
	}
	out.System = strings.Join(system, "\n\n")

	if len(out.Messages) == 0 {
		return nil, &providers.ValidationError{Field: "messages", Message: "at least one non-system message is required"}
	}
	if out.Messages[0].Role != providers.RoleUser {
		return nil, &providers.ValidationError{Field: "messages", Message: "first non-system message must come from the user"}
	}
	return out, nil
}

func toBlocks(m providers.Message) []block {
	if !m.Content.IsMultipart() {
		text := m.Content.String()
		if m.FunctionCall != nil && text == "" {
			text = m.FunctionCall.Name + "(" + m.FunctionCall.Arguments + ")"
		}
		if text == "" {
			return nil
		}
		return []block{{Type: "text", Text: text}}
	}

	var blocks []block
	for _, p := range m.Content.Parts {
		switch p.Type {
		case providers.PartText:
			if p.Text != "" {
				blocks = append(blocks, block{Type: "text", Text: p.Text})
			}
		case providers.PartImageURL:
			if p.ImageURL != nil {
				blocks = append(blocks, block{Type: "image", Source: &imageSource{Type: "url", URL: p.ImageURL.URL}})
			}
		}
	}
	return blocks
}

// clampTemperature maps the 0..2 range used by the gateway onto the 0..1
// range the Messages API accepts.
func clampTemperature(t float64) float64 {
	if t > 1 {
		return 1
	}
	if t < 0 {
		return 0
	}
	return t
}

func fromMessagesResponse(resp *messagesResponse) *providers.CompletionResponse {
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      sb.String(),
		FinishReason: stopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
}

func stopReason(r string) string {
	switch r {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "tool_use":
		return providers.FinishReasonFunctionCall
	default:
		return r
	}
}
