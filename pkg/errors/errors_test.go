package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"invalid input wrapped", fmt.Errorf("parsing limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"corpus unavailable", ErrCorpusUnavailable, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError},
		{"app error status wins", New(ErrInvalidInput, http.StatusConflict, "duplicate"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError_Unwraps(t *testing.T) {
	err := fmt.Errorf("handler: %w", Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d out of range", 0))

	assert.True(t, errors.Is(err, ErrInvalidInput))
	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "limit 0 out of range", appErr.Message)
	assert.Equal(t, "invalid input: limit 0 out of range", appErr.Error())
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"app error message", New(ErrUnauthorized, http.StatusUnauthorized, "missing api key"), "missing api key"},
		{"client error text", fmt.Errorf("%w: doc-9", ErrDocumentNotFound), "document not found: doc-9"},
		{"server error hidden", fmt.Errorf("%w: dial tcp 10.0.0.5:5432: refused", ErrCorpusUnavailable), "Service Unavailable"},
		{"unknown hidden", errors.New("pq: relation does not exist"), "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicMessage(tt.err))
		})
	}
}
