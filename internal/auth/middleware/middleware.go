// Package middleware guards HTTP routes with API-key authentication and
// per-client rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/internal/auth/ratelimit"
	apperrors "github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/logger"
)

type contextKey string

const apiKeyInfoKey contextKey = "api_key_info"

// KeyValidator is satisfied by *apikey.Validator.
type KeyValidator interface {
	Validate(ctx context.Context, rawKey string) (*apikey.KeyInfo, error)
}

// Auth returns middleware that requires a valid API key. Keys can be
// provided via Authorization: Bearer <key> or the X-API-Key header.
func Auth(validator KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractAPIKey(r)
			if key == "" {
				writeError(w, apperrors.New(apperrors.ErrUnauthorized, http.StatusUnauthorized, "missing api key"))
				return
			}

			info, err := validator.Validate(r.Context(), key)
			if err != nil {
				if errors.Is(err, apikey.ErrInvalidKey) {
					logger.FromContext(r.Context()).Warn("rejected api key", "path", r.URL.Path)
					writeError(w, apperrors.New(apperrors.ErrUnauthorized, http.StatusUnauthorized, "invalid api key"))
					return
				}
				writeError(w, fmt.Errorf("validating api key: %w", err))
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyInfoKey, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetKeyInfo retrieves the validated KeyInfo from the request context.
func GetKeyInfo(ctx context.Context) *apikey.KeyInfo {
	info, _ := ctx.Value(apiKeyInfoKey).(*apikey.KeyInfo)
	return info
}

// RateLimit returns middleware that enforces per-client limits. An
// authenticated caller is limited by key name at its own limit when set;
// everyone else by remote IP at defaultLimit. Health endpoints are exempt.
// Limited responses carry Retry-After; every limited route reports
// X-RateLimit-Limit and X-RateLimit-Remaining.
func RateLimit(limiter *ratelimit.Limiter, defaultLimit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			key, limit := "ip:"+clientIP(r), defaultLimit
			if info := GetKeyInfo(r.Context()); info != nil {
				key = "key:" + info.Name
				if info.RateLimit > 0 {
					limit = info.RateLimit
				}
			}

			d := limiter.Take(key, limit)
			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			}
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
				logger.FromContext(r.Context()).Info("rate limited", "client", key, "limit", limit)
				writeError(w, apperrors.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey reads the API key from Authorization: Bearer, then X-API-Key.
// Query parameters are not accepted so keys stay out of access logs.
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatusCode(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"error": apperrors.PublicMessage(err)})
}
