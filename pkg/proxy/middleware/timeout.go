package middleware

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"mercator-hq/relay/pkg/proxy"
	"mercator-hq/relay/pkg/proxy/types"
)

// TimeoutMiddleware enforces a per-request deadline. The handler runs with
// a context that expires after timeout; if it has not finished by then the
// client receives a 504 JSON error and later writes from the handler are
// discarded. A non-positive timeout disables the middleware.
//
// Responses are buffered until the handler returns, so a timed-out request
// never sees a partial body.
//
// Example usage:
//
//	handler = TimeoutMiddleware(240 * time.Second)(handler)
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{w: w, h: make(http.Header)}
			done := make(chan struct{})
			panicChan := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						if p == http.ErrAbortHandler {
							panicChan <- p
							return
						}
						panicChan <- fmt.Sprintf("%v\n%s", p, debug.Stack())
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicChan:
				panic(p)

			case <-done:
				tw.flush()

			case <-ctx.Done():
				select {
				case <-done:
					tw.flush()
					return
				default:
				}

				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true

				// The client went away; there is nobody to answer.
				if ctx.Err() != context.DeadlineExceeded {
					return
				}

				slog.WarnContext(r.Context(), "request timeout",
					"method", r.Method,
					"path", r.URL.Path,
					"timeout", timeout.String(),
				)

				proxy.WriteErrorResponse(w, r, http.StatusGatewayTimeout,
					proxy.NewErrorResponse("Request timed out", types.CodeTimeout))
			}
		})
	}
}

// timeoutWriter buffers a handler's response until the middleware decides
// whether to forward it.
type timeoutWriter struct {
	w http.ResponseWriter
	h http.Header

	mu          sync.Mutex
	buf         bytes.Buffer
	code        int
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.h }

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.buf.Write(p)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	tw.wroteHeader = true
	tw.code = code
}

// flush forwards the buffered response. It must only be called after the
// handler returned.
func (tw *timeoutWriter) flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	maps.Copy(tw.w.Header(), tw.h)
	if !tw.wroteHeader {
		tw.code = http.StatusOK
	}
	tw.w.WriteHeader(tw.code)
	_, _ = tw.w.Write(tw.buf.Bytes())
}
