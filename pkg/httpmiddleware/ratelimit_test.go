package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, prepare func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	if prepare != nil {
		prepare(req)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func fromAddr(addr string) func(*http.Request) {
	return func(r *http.Request) { r.RemoteAddr = addr }
}

func TestRateLimit_UnderLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 5, Window: time.Minute})(okHandler())

	for i := range 5 {
		w := serve(handler, nil)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{Max: 2, Window: time.Minute})(okHandler())

	for range 2 {
		require.Equal(t, http.StatusOK, serve(handler, fromAddr("10.0.0.1:9999")).Code)
	}

	w := serve(handler, fromAddr("10.0.0.1:9999"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, float64(429), body["code"])
	assert.Equal(t, "rate limit exceeded", body["message"])
}

func TestRateLimit_Keys(t *testing.T) {
	t.Run("per ip", func(t *testing.T) {
		handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())

		assert.Equal(t, http.StatusOK, serve(handler, fromAddr("10.0.0.1:1234")).Code)
		assert.Equal(t, http.StatusOK, serve(handler, fromAddr("10.0.0.2:1234")).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, fromAddr("10.0.0.1:5678")).Code)
	})

	t.Run("forwarded for", func(t *testing.T) {
		handler := RateLimit(RateLimitConfig{Max: 1, Window: time.Minute})(okHandler())
		xff := func(addr string) func(*http.Request) {
			return func(r *http.Request) {
				r.RemoteAddr = addr
				r.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
			}
		}

		assert.Equal(t, http.StatusOK, serve(handler, xff("192.168.1.1:4444")).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, xff("192.168.1.2:5555")).Code)
	})

	t.Run("custom key func", func(t *testing.T) {
		handler := RateLimit(RateLimitConfig{
			Max:     1,
			Window:  time.Minute,
			KeyFunc: func(r *http.Request) string { return r.Header.Get("X-API-Key") },
		})(okHandler())
		key := func(k string) func(*http.Request) {
			return func(r *http.Request) { r.Header.Set("X-API-Key", k) }
		}

		assert.Equal(t, http.StatusOK, serve(handler, key("key-a")).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, key("key-a")).Code)
		assert.Equal(t, http.StatusOK, serve(handler, key("key-b")).Code)
	})
}

func TestRateLimiter_RefillAndCleanup(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{Max: 2, Window: time.Minute})
	rl.now = func() time.Time { return now }
	handler := rl.Middleware()(okHandler())

	require.Equal(t, http.StatusOK, serve(handler, nil).Code)
	require.Equal(t, http.StatusOK, serve(handler, nil).Code)
	w := serve(handler, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	// One token every 30s.
	now = now.Add(31 * time.Second)
	assert.Equal(t, http.StatusOK, serve(handler, nil).Code)

	assert.Zero(t, rl.Cleanup())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.Cleanup())
}
