package openai

import (
	"context"
	"net/http"
	"strings"

	"mercator-hq/relay/pkg/providers"
)

// Provider is the OpenAI-compatible adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider validates config and builds the adapter. The API key is
// optional: several compatible backends accept anonymous requests.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{Provider: "openai", Field: "name", Message: "provider name is required"}
	}
	if config.BaseURL == "" {
		return nil, &providers.ConfigError{Provider: config.Name, Field: "base_url", Message: "base URL is required"}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Type == "" {
		config.Type = "openai"
	}

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.SetProbe(p.probe)

	p.Logger().Debug("openai-compatible provider initialized", "base_url", config.BaseURL)
	return p, nil
}

// SendCompletion posts a chat-completions request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var out chatResponse
	url := p.GetConfig().BaseURL + "/chat/completions"
	if err := p.DoJSONRequest(ctx, http.MethodPost, url, toChatRequest(req), &out, p.headers()); err != nil {
		return nil, err
	}

	resp, err := fromChatResponse(&out)
	if err != nil {
		return nil, &providers.ParseError{Provider: p.GetName(), Cause: err}
	}

	p.Logger().Debug("completion succeeded", "model", resp.Model, "tokens", resp.Usage.TotalTokens)
	return resp, nil
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if key := p.GetConfig().APIKey; key != "" {
		h["Authorization"] = "Bearer " + key
	}
	return h
}

// probe lists models, the cheapest authenticated call the API offers.
func (p *Provider) probe(ctx context.Context) error {
	return p.Probe(ctx, p.GetConfig().BaseURL+"/models", p.headers())
}

func validateRequest(req *providers.CompletionRequest) error {
	if req == nil {
		return &providers.ValidationError{Field: "request", Message: "request is nil"}
	}
	if req.Model == "" {
		return &providers.ValidationError{Field: "model", Message: "model is required"}
	}
	if len(req.Messages) == 0 {
		return &providers.ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	return nil
}
