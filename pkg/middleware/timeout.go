package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/logger"
)

// Timeout bounds each request. The wrapped handler writes into a buffer that
// is flushed only if it finishes in time; otherwise the client gets a JSON
// 504 and later writes from the handler fail with http.ErrHandlerTimeout.
// A non-positive timeout disables the middleware.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				tw.mu.Lock()
				defer tw.mu.Unlock()
				if tw.empty() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
					writeTimeout(w, r, timeout)
					return
				}
				tw.flushTo(w)
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					writeTimeout(w, r, timeout)
				}
			}
		})
	}
}

func writeTimeout(w http.ResponseWriter, r *http.Request, timeout time.Duration) {
	logger.FromContext(r.Context()).Warn("request timed out",
		"method", r.Method,
		"path", r.URL.Path,
		"timeout", timeout,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusGatewayTimeout)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": "request timed out"}); err != nil {
		slog.Debug("writing timeout response", "error", err)
	}
}

type timeoutWriter struct {
	mu       sync.Mutex
	header   http.Header
	buf      bytes.Buffer
	code     int
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.code != 0 {
		return
	}
	tw.code = code
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if tw.code == 0 {
		tw.code = http.StatusOK
	}
	return tw.buf.Write(b)
}

func (tw *timeoutWriter) empty() bool {
	return tw.code == 0 && tw.buf.Len() == 0
}

// flushTo copies the buffered response to w. Callers hold tw.mu.
func (tw *timeoutWriter) flushTo(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
	code := tw.code
	if code == 0 {
		code = http.StatusOK
	}
	w.WriteHeader(code)
	if tw.buf.Len() > 0 {
		_, _ = w.Write(tw.buf.Bytes())
	}
}
