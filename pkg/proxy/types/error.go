package types

// ErrorResponse is the failure body of every /api endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Attempts lists every provider attempt when all providers failed.
	Attempts []AttemptInfo `json:"attempts,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Error code constants for common error scenarios.
const (
	// CodeInvalidJSON indicates the request body is not valid JSON.
	CodeInvalidJSON = "invalid_json"

	// CodeInvalidContentType indicates the request is not application/json.
	CodeInvalidContentType = "invalid_content_type"

	// CodeMissingField indicates a required field is missing.
	CodeMissingField = "missing_field"

	// CodeInvalidValue indicates a field has an invalid value.
	CodeInvalidValue = "invalid_value"

	// CodeInvalidImage indicates an image part was rejected.
	CodeInvalidImage = "invalid_image"

	// CodeInvalidSchema indicates the response_format schema did not compile.
	CodeInvalidSchema = "invalid_schema"

	// CodeRequestTooLarge indicates the request payload is too large.
	CodeRequestTooLarge = "request_too_large"

	// CodeAllProvidersFailed indicates every primary and fallback attempt
	// failed.
	CodeAllProvidersFailed = "all_providers_failed"

	// CodeSchemaValidation indicates a strict schema rejected the reply.
	CodeSchemaValidation = "schema_validation_failed"

	// CodeOverloaded indicates no worker became free in time.
	CodeOverloaded = "overloaded"

	// CodeTimeout indicates the request deadline passed.
	CodeTimeout = "timeout"

	// CodeMethodNotAllowed indicates the HTTP method is not supported.
	CodeMethodNotAllowed = "method_not_allowed"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)
