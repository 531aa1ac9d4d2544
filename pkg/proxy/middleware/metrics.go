package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder records completed HTTP requests.
// *metrics.Collector implements it.
type HTTPRecorder interface {
	RecordHTTPRequest(path string, status int, duration time.Duration)
}

// MetricsMiddleware records the status and latency of every request.
//
// Example usage:
//
//	handler = MetricsMiddleware(collector)(handler)
func MetricsMiddleware(rec HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			rec.RecordHTTPRequest(r.URL.Path, rw.statusCode, time.Since(start))
		})
	}
}
