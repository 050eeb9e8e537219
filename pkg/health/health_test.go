package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func probe(t *testing.T, h http.HandlerFunc) (int, statusBody) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body statusBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w.Code, body
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func ok(context.Context) error { return nil }

func runN(h *Health, n int) {
	for _, c := range h.checks {
		for range n {
			c.run(context.Background())
		}
	}
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		code, body := probe(t, New().LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
	})

	t.Run("failure below threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("flaky", time.Second, failing("boom"))
		runN(h, 2)

		code, _ := probe(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("failure at threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("broken", time.Second, failing("boom"))
		h.AddReadinessCheck("db", time.Second, failing("ignored by livez"))
		runN(h, 3)

		code, body := probe(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, map[string]string{"broken": "boom"}, body.Checks)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not ready", func(t *testing.T) {
		h := New()
		code, body := probe(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body.Checks, "_readiness")
		assert.False(t, h.IsReady())
	})

	t.Run("ready", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, ok)
		h.SetReady(true)
		runN(h, 1)

		code, body := probe(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body.Status)
		assert.True(t, h.IsReady())

		h.SetReady(false)
		code, _ = probe(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
	})

	t.Run("one of many failing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, ok)
		h.AddReadinessCheck("redis", time.Second, failing("connection refused"))
		h.SetReady(true)
		runN(h, 3)

		code, body := probe(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, map[string]string{"redis": "connection refused"}, body.Checks)
		assert.False(t, h.IsReady())
	})
}

func TestCheckRecovery(t *testing.T) {
	var broken atomic.Bool
	broken.Store(true)

	h := New()
	h.Add(Check{
		Name: "toggle",
		Kind: Readiness,
		Func: func(context.Context) error {
			if broken.Load() {
				return errors.New("down")
			}
			return nil
		},
		FailureThreshold: 1,
		SuccessThreshold: 2,
	})
	h.SetReady(true)

	runN(h, 1)
	assert.False(t, h.IsReady())

	broken.Store(false)
	runN(h, 1)
	assert.False(t, h.IsReady(), "needs two successes")
	runN(h, 1)
	assert.True(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	h := New()
	h.AddLivenessCheck("counter", time.Second, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	h.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
	time.Sleep(30 * time.Millisecond)
	n := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, GoroutineCountCheck(100000)(ctx))
	require.Error(t, GoroutineCountCheck(0)(ctx))

	require.NoError(t, PingCheck("redis", pingerFunc(ok))(ctx))
	err := PingCheck("redis", pingerFunc(failing("refused")))(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")

	n := 0
	check := NonEmptyCheck("catalog", func() int { return n })
	require.Error(t, check(ctx))
	n = 3
	require.NoError(t, check(ctx))
}
