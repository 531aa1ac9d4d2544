package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
)

// RecoveryMiddleware recovers from panics in HTTP handlers and returns a 500
// JSON error body. The panic is logged with its stack trace; clients only
// see a generic message.
//
// http.ErrAbortHandler is re-panicked so the server aborts the connection.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			proxy.WriteErrorResponse(w, r, http.StatusInternalServerError,
				proxy.NewErrorResponse("An internal error occurred. Please try again later.", types.CodeInternalError))
		}()

		next.ServeHTTP(w, r)
	})
}
