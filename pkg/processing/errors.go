package processing

import "errors"

var (
	// ErrMissingMessage is returned when the request has no message field.
	ErrMissingMessage = errors.New("message field is required")

	// ErrMessageNotArray is returned when message is not a JSON array.
	ErrMessageNotArray = errors.New("message must be an array")

	// ErrInvalidMessage is returned when a message cannot be decoded or
	// has an unsupported role.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidConfig is returned when a config key has the wrong type or
	// is out of range.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrBase64Image is returned for image parts carrying a data: URL.
	ErrBase64Image = errors.New("base64 images are not supported")

	// ErrInvalidImageURL is returned for image URLs without a scheme or host.
	ErrInvalidImageURL = errors.New("invalid image URL")
)

// RequestError is a client error found while preparing a chat request.
// Message is the text reported to the client.
type RequestError struct {
	Field   string
	Code    string
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
