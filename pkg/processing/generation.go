package processing

import (
	"encoding/json"
	"fmt"
	"slices"

	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing"
)

// maxStopSequences bounds the stop list.
const maxStopSequences = 4

// mergeGeneration overlays the request's config on defaults. Only known keys
// are read; a null value keeps the default.
func mergeGeneration(defaults routing.GenerationConfig, overrides map[string]json.RawMessage) (routing.GenerationConfig, error) {
	gen := defaults
	gen.Stop = slices.Clone(defaults.Stop)

	fields := []struct {
		key string
		dst any
	}{
		{"temperature", &gen.Temperature},
		{"max_tokens", &gen.MaxTokens},
		{"top_p", &gen.TopP},
		{"frequency_penalty", &gen.FrequencyPenalty},
		{"presence_penalty", &gen.PresencePenalty},
		{"stop", &gen.Stop},
		{"model", &gen.Model},
		{"stream", &gen.Stream},
	}

	for _, f := range fields {
		raw, ok := overrides[f.key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return gen, configError(f.key, fmt.Sprintf("config.%s has the wrong type", f.key))
		}
	}

	if err := validateGeneration(gen); err != nil {
		return gen, err
	}
	return gen, nil
}

func validateGeneration(g routing.GenerationConfig) error {
	switch {
	case g.Temperature < 0 || g.Temperature > 2:
		return configError("temperature", "config.temperature must be between 0.0 and 2.0")
	case g.TopP < 0 || g.TopP > 1:
		return configError("top_p", "config.top_p must be between 0.0 and 1.0")
	case g.MaxTokens < 1:
		return configError("max_tokens", "config.max_tokens must be greater than 0")
	case g.FrequencyPenalty < -2 || g.FrequencyPenalty > 2:
		return configError("frequency_penalty", "config.frequency_penalty must be between -2.0 and 2.0")
	case g.PresencePenalty < -2 || g.PresencePenalty > 2:
		return configError("presence_penalty", "config.presence_penalty must be between -2.0 and 2.0")
	case len(g.Stop) > maxStopSequences:
		return configError("stop", fmt.Sprintf("config.stop must not exceed %d sequences", maxStopSequences))
	}
	return nil
}

func configError(key, msg string) *RequestError {
	return &RequestError{
		Field:   "config." + key,
		Code:    types.CodeInvalidValue,
		Message: msg,
		Err:     ErrInvalidConfig,
	}
}
