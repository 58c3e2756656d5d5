package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sports-content-search/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	ok     = pingerFunc(func(context.Context) error { return nil })
	broken = pingerFunc(func(context.Context) error { return errors.New("connection refused") })
)

func TestRun_WorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		want   Status
	}{
		{"no checks", nil, StatusUp},
		{"all up", map[string]Check{"db": PingCheck(ok, false)}, StatusUp},
		{"optional down", map[string]Check{"db": PingCheck(ok, false), "cache": PingCheck(broken, true)}, StatusDegraded},
		{"required down", map[string]Check{"db": PingCheck(broken, false), "cache": PingCheck(broken, true)}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, check := range tt.checks {
				c.Register(name, check)
			}

			report := c.Run(context.Background())

			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Components, len(tt.checks))
		})
	}
}

func TestReadyHandler_DegradedIsStillReady(t *testing.T) {
	c := NewChecker()
	c.Register("cache", PingCheck(broken, true))
	rec := httptest.NewRecorder()

	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "connection refused", report.Components["cache"].Message)
}

func TestReadyHandler_DownIsUnavailable(t *testing.T) {
	c := NewChecker()
	c.Register("db", PingCheck(broken, false))
	rec := httptest.NewRecorder()

	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()

	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestRun_SlowOrPanickingCheckIsDown(t *testing.T) {
	c := NewChecker()
	c.timeout = 10 * time.Millisecond
	c.Register("hung", func(ctx context.Context) ComponentHealth {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return ComponentHealth{Status: StatusUp}
	})
	c.Register("buggy", func(context.Context) ComponentHealth { panic("nil index") })

	report := c.Run(context.Background())

	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Components["hung"].Message, "deadline exceeded")
	assert.Contains(t, report.Components["buggy"].Message, "nil index")
}

func TestBreakerCheck(t *testing.T) {
	cb := resilience.NewCircuitBreaker("corpus", resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	check := BreakerCheck(cb)
	assert.Equal(t, StatusUp, check(context.Background()).Status)

	_ = cb.Execute(func() error { return errors.New("db down") })

	got := check(context.Background())
	assert.Equal(t, StatusDegraded, got.Status)
	assert.Equal(t, "circuit open", got.Message)
}
