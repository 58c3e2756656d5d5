// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, request timeouts and CORS.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/metrics"
)

// Metrics returns middleware that records HTTP request count, latency, and
// in-flight gauge. The path label is the matched ServeMux pattern when the
// mux below set one, so /api/v1/content/{id} is a single series.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := routeLabel(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		pattern := r.Pattern
		if i := strings.IndexByte(pattern, ' '); i >= 0 {
			pattern = pattern[i+1:]
		}
		return pattern
	}
	return normalizePath(r.URL.Path)
}

// knownPaths bounds the path label for requests that never reached the mux
// (rejected by CORS, rate limiting or a timeout).
var knownPaths = map[string]bool{
	"/api/v1/search":              true,
	"/api/v1/content":             true,
	"/api/v1/suggest":             true,
	"/api/v1/index/stats":         true,
	"/api/v1/index/rebuild":       true,
	"/api/v1/cache/stats":         true,
	"/api/v1/cache/invalidate":    true,
	"/api/v1/analytics":           true,
	"/api/v1/analytics/snapshots": true,
	"/health/live":                true,
	"/health/ready":               true,
}

// normalizePath collapses unknown paths into one label value so scanners
// cannot blow up metric cardinality.
func normalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/content/") {
		return "/api/v1/content/{id}"
	}
	return "other"
}
