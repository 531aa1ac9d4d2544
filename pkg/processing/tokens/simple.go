package tokens

import (
	"strings"

	"mercator-hq/relay/pkg/providers"
)

// Estimator estimates token counts for text and messages.
type Estimator interface {
	// EstimateText estimates tokens for a single text string.
	EstimateText(text string, model string) int

	// EstimateMessages estimates prompt tokens for a conversation,
	// including per-message formatting overhead.
	EstimateMessages(messages []providers.Message, model string) int
}

// imageTokens is the flat estimate charged for each image part.
const imageTokens = 1000

// DefaultRatios are the characters-per-token ratios used when none are
// configured. Keys are model prefixes; "default" applies to everything else.
var DefaultRatios = map[string]float64{
	"gpt":     4.0,
	"claude":  3.5,
	"default": 4.0,
}

// SimpleEstimator implements character-based token estimation using
// model-specific characters-per-token ratios. It is safe for concurrent use;
// the ratio table is never modified after construction.
type SimpleEstimator struct {
	ratios map[string]float64
}

// NewSimpleEstimator creates an estimator. A nil or empty ratio table uses
// DefaultRatios.
func NewSimpleEstimator(ratios map[string]float64) *SimpleEstimator {
	if len(ratios) == 0 {
		ratios = DefaultRatios
	}
	copied := make(map[string]float64, len(ratios))
	for k, v := range ratios {
		if v > 0 {
			copied[k] = v
		}
	}
	return &SimpleEstimator{ratios: copied}
}

// EstimateText estimates tokens for a single text string. Non-empty text is
// at least one token.
func (e *SimpleEstimator) EstimateText(text string, model string) int {
	if text == "" {
		return 0
	}

	tokens := float64(len(text)) / e.charsPerToken(model)
	if tokens < 1.0 {
		return 1
	}
	return int(tokens + 0.5)
}

// EstimateMessages estimates tokens for a list of messages: about one token
// for the role, the content, the name, any function call, three tokens of
// formatting per message and three for the conversation.
func (e *SimpleEstimator) EstimateMessages(messages []providers.Message, model string) int {
	if len(messages) == 0 {
		return 0
	}

	total := 3
	for _, msg := range messages {
		total += 1 + 3
		total += e.EstimateText(msg.Content.String(), model)
		total += imageTokens * len(msg.Content.ImageURLs())

		if msg.Name != "" {
			total += e.EstimateText(msg.Name, model)
		}
		if fc := msg.FunctionCall; fc != nil {
			total += e.EstimateText(fc.Name, model) + e.EstimateText(fc.Arguments, model) + 5
		}
	}
	return total
}

// Usage builds a TokenUsage from a prompt and its completion.
func Usage(e Estimator, messages []providers.Message, completion, model string) providers.TokenUsage {
	prompt := e.EstimateMessages(messages, model)
	reply := e.EstimateText(completion, model)
	return providers.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: reply,
		TotalTokens:      prompt + reply,
	}
}

// charsPerToken returns the ratio for model: an exact key, then the longest
// matching prefix, then "default", then 4.
func (e *SimpleEstimator) charsPerToken(model string) float64 {
	if ratio, ok := e.ratios[model]; ok {
		return ratio
	}

	best, bestLen := 0.0, 0
	for prefix, ratio := range e.ratios {
		if prefix != "default" && len(prefix) > bestLen && strings.HasPrefix(model, prefix) {
			best, bestLen = ratio, len(prefix)
		}
	}
	if bestLen > 0 {
		return best
	}

	if ratio, ok := e.ratios["default"]; ok {
		return ratio
	}
	return 4.0
}
