package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(l *Limiter) http.Handler {
	return l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, remoteAddr, path string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestBurstThenLimit(t *testing.T) {
	l := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 3})
	defer l.Stop()
	handler := newTestHandler(l)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.1:100", "/api/v1/bounties"))
	}
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "203.0.113.1:100", "/api/v1/bounties"))
}

func TestClientsLimitedIndependently(t *testing.T) {
	l := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 1})
	defer l.Stop()
	handler := newTestHandler(l)

	require.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.1:100", "/api/v1/bounties"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "203.0.113.1:100", "/api/v1/bounties"))

	// A different IP has its own bucket
	assert.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.2:100", "/api/v1/bounties"))
}

func TestHealthExempt(t *testing.T) {
	l := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 1})
	defer l.Stop()
	handler := newTestHandler(l)

	require.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.1:100", "/api/v1/bounties"))
	require.Equal(t, http.StatusTooManyRequests, doRequest(handler, "203.0.113.1:100", "/api/v1/bounties"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.1:100", "/healthz"))
	}
}

func TestLimitedResponseShape(t *testing.T) {
	l := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 1})
	defer l.Stop()
	handler := newTestHandler(l)

	doRequest(handler, "203.0.113.1:100", "/api/v1/bounties")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bounties", nil)
	req.RemoteAddr = "203.0.113.1:100"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestDisabledPassthrough(t *testing.T) {
	handler := Middleware(Config{Enabled: false})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "203.0.113.1:100", "/api/v1/bounties"))
	}
}

func TestEvictIdle(t *testing.T) {
	l := New(Config{Enabled: true, RequestsPerMin: 60, BurstSize: 1, CleanupMinutes: 1})
	defer l.Stop()

	l.allow("203.0.113.1")
	l.mu.Lock()
	l.buckets["203.0.113.1"].lastSeen = time.Now().Add(-2 * time.Minute)
	l.mu.Unlock()

	l.evictIdle()

	l.mu.Lock()
	_, exists := l.buckets["203.0.113.1"]
	l.mu.Unlock()
	assert.False(t, exists)
}
