// Package tokens estimates token counts for conversations and completions.
//
// Many OpenAI-compatible backends answer without a usage block. The gateway
// fills the gap with a character-based estimate so every response reports
// usage. Each model family has its own characters-per-token ratio:
//
//   - gpt-*: ~4 characters per token
//   - claude*: ~3.5 characters per token
//   - anything else: the "default" ratio, 4 unless configured
//
// # Usage
//
//	estimator := tokens.NewSimpleEstimator(nil)
//	prompt := estimator.EstimateMessages(messages, "gpt-4o")
//	completion := estimator.EstimateText(reply, "gpt-4o")
//
// Estimates are rough. They are marked as estimated wherever they are
// reported and never replace counts returned by the upstream.
package tokens
