package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"mercator-hq/relay/pkg/proxy/types"
)

// DefaultMaxBodyBytes is the request body limit used when none is configured.
const DefaultMaxBodyBytes int64 = 10 * 1024 * 1024

var (
	// ErrUnsupportedContentType is returned for requests that are not
	// application/json.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrBodyTooLarge is returned when the body exceeds the limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// ParseChatRequest decodes a POST /api/chat body. Bodies larger than
// maxBytes are rejected with 413; a non-positive maxBytes means
// DefaultMaxBodyBytes. Field validation is left to the processor.
func ParseChatRequest(r *http.Request, maxBytes int64) (*types.ChatRequest, error) {
	if !IsJSON(r) {
		return nil, &RequestError{
			Code:    types.CodeInvalidContentType,
			Message: "Content-Type must be application/json",
			Err:     ErrUnsupportedContentType,
		}
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, &RequestError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    types.CodeRequestTooLarge,
			Message: fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytes),
			Err:     ErrBodyTooLarge,
		}
	}

	var req types.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Code:    types.CodeInvalidJSON,
			Message: "Invalid JSON data",
			Err:     err,
		}
	}
	return &req, nil
}

// IsJSON reports whether the request declares a JSON body. Parameters such
// as charset are ignored.
func IsJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
