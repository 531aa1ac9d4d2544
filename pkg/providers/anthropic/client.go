package anthropic

import (
	"context"
	"net/http"
	"strings"

	"mercator-hq/relay/pkg/providers"
)

const (
	// DefaultBaseURL is used when the configuration leaves base_url empty.
	DefaultBaseURL = "https://api.anthropic.com"

	// APIVersion is the anthropic-version header value.
	APIVersion = "2023-06-01"
)

// Provider is the Anthropic Messages API adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider validates config and builds the adapter.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "anthropic", Field: "name", Message: "provider name is required"}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "api_key", Message: "API key is required"}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	config.Type = "anthropic"

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.SetProbe(p.probe)

	p.Logger().Debug("anthropic provider initialized", "base_url", config.BaseURL)
	return p, nil
}

// SendCompletion posts a Messages API request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if req == nil {
		return nil, &providers.ValidationError{Field: "request", Message: "request is nil"}
	}
	if req.Model == "" {
		return nil, &providers.ValidationError{Field: "model", Message: "model is required"}
	}

	body, err := toMessagesRequest(req)
	if err != nil {
		return nil, err
	}

	var out messagesResponse
	url := p.GetConfig().BaseURL + "/v1/messages"
	if err := p.DoJSONRequest(ctx, http.MethodPost, url, body, &out, p.headers()); err != nil {
		return nil, err
	}

	resp := fromMessagesResponse(&out)
	p.Logger().Debug("completion succeeded", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return resp, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.GetConfig().APIKey,
		"anthropic-version": APIVersion,
		"Content-Type":      "application/json",
	}
}

func (p *Provider) probe(ctx context.Context) error {
	return p.Probe(ctx, p.GetConfig().BaseURL+"/v1/models", p.headers())
}
