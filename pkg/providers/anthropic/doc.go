// Package anthropic adapts the Anthropic Messages API.
//
// System messages are lifted into the top-level system field, consecutive
// messages with the same role are merged so the conversation alternates,
// and image parts are sent as URL image sources. Only non-streaming
// requests are made.
package anthropic
