// Package openai adapts OpenAI-compatible chat-completions backends.
//
// Most hosted and self-hosted text-generation services expose the
// POST {base_url}/chat/completions shape, so one adapter covers them. The
// adapter always requests a single non-streamed choice; message content is
// forwarded as given, including multi-part content with image references.
//
// Basic usage:
//
//	p, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:    "blackbox",
//	    Type:    "openai",
//	    BaseURL: "https://api.example.com/v1",
//	})
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	resp, err := p.SendCompletion(ctx, &providers.CompletionRequest{
//	    Model:    "gpt-4o",
//	    Messages: []providers.Message{{Role: "user", Content: providers.TextContent("Hi")}},
//	})
package openai
