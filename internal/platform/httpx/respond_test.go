package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	JSON(rr, http.StatusOK, map[string]string{"status": "ok"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestProblem(t *testing.T) {
	rr := httptest.NewRecorder()
	Problem(rr, http.StatusServiceUnavailable, "Unavailable", "database unreachable")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"title":"Unavailable","status":503,"detail":"database unreachable"}`, rr.Body.String())
}

func TestHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: refused") }

	tests := []struct {
		name   string
		checks map[string]Check
		code   int
		body   string
	}{
		{"no checks", nil, http.StatusOK, `{"status":"ok"}`},
		{"all healthy", map[string]Check{"postgres": ok, "redis": ok}, http.StatusOK, `{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}`},
		{"redis down", map[string]Check{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, `{"title":"Service Unavailable","status":503,"detail":"redis unreachable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			Health(logger, time.Second, tt.checks).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.code, rr.Code)
			assert.JSONEq(t, tt.body, rr.Body.String())
		})
	}
}

func TestHealthBoundsSlowChecks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	rr := httptest.NewRecorder()
	Health(logger, 10*time.Millisecond, map[string]Check{"postgres": slow}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
