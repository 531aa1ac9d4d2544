package proxy

import (
	"context"
	"errors"
	"net/http"

	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/processing/schema"
	"mercator-hq/relay/pkg/proxy/types"
	"mercator-hq/relay/pkg/routing"
)

// internalErrorMessage is reported for any error without a client-safe text.
const internalErrorMessage = "An internal error occurred. Please try again later."

// RequestError is an HTTP-level client error, found before the request
// reaches the processor.
type RequestError struct {
	// Status is the HTTP status code. Zero means 400.
	Status  int
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

// HandleError maps err to an HTTP status and error body.
//
// Example usage:
//
//	if err != nil {
//	    status, body := HandleError(err)
//	    WriteErrorResponse(w, r, status, body)
//	    return
//	}
func HandleError(err error) (int, *types.ErrorResponse) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		status := reqErr.Status
		if status == 0 {
			status = http.StatusBadRequest
		}
		return status, NewErrorResponse(reqErr.Message, reqErr.Code)
	}

	var procErr *processing.RequestError
	if errors.As(err, &procErr) {
		return http.StatusBadRequest, NewErrorResponse(procErr.Message, procErr.Code)
	}

	var failed *routing.AllProvidersFailedError
	if errors.As(err, &failed) {
		resp := NewErrorResponse(capitalize(failed.Error()), types.CodeAllProvidersFailed)
		resp.Attempts = types.AttemptInfos(failed.Attempts)
		return http.StatusInternalServerError, resp
	}

	if errors.Is(err, schema.ErrValidationFailed) {
		return http.StatusInternalServerError, NewErrorResponse("Response failed schema validation", types.CodeSchemaValidation)
	}

	// The dispatcher wraps the context error, so busy is checked first.
	if errors.Is(err, routing.ErrDispatcherBusy) {
		return http.StatusServiceUnavailable, NewErrorResponse("Server is busy, please retry", types.CodeOverloaded)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, NewErrorResponse("Request timed out", types.CodeTimeout)
	}

	return http.StatusInternalServerError, NewErrorResponse(internalErrorMessage, types.CodeInternalError)
}

// NewErrorResponse builds a failure body stamped with the current time.
func NewErrorResponse(message, code string) *types.ErrorResponse {
	return &types.ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		Timestamp: Timestamp(),
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
