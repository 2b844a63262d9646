package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysHealthy() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func alwaysFailing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func decodeReport(t *testing.T, w *httptest.ResponseRecorder) report {
	t.Helper()
	var body report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("all probes passing", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, alwaysHealthy())
		h.AddLivenessCheck("gc_pause", time.Second, alwaysHealthy())

		w := httptest.NewRecorder()
		h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, "ok", decodeReport(t, w).Status)
	})

	t.Run("probe past the failure threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, alwaysFailing("too many goroutines"))

		ctx := context.Background()
		for range defaultFailThreshold {
			h.liveness[0].observe(ctx)
		}

		w := httptest.NewRecorder()
		h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeReport(t, w)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Equal(t, "too many goroutines", body.Checks["goroutines"])
	})

	t.Run("failures below the threshold stay healthy", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, alwaysFailing("blip"))

		ctx := context.Background()
		for range defaultFailThreshold - 1 {
			h.liveness[0].observe(ctx)
		}

		w := httptest.NewRecorder()
		h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("no probes registered", func(t *testing.T) {
		h := New()
		w := httptest.NewRecorder()
		h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("gate open and probes passing", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, alwaysHealthy())
		h.SetReady(true)

		w := httptest.NewRecorder()
		h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", decodeReport(t, w).Status)
	})

	t.Run("gate closed by default", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, alwaysHealthy())

		w := httptest.NewRecorder()
		h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeReport(t, w)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Contains(t, body.Checks, "_readiness")
	})

	t.Run("closing the gate drains traffic", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, alwaysHealthy())
		h.SetReady(true)

		w := httptest.NewRecorder()
		h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		require.Equal(t, http.StatusOK, w.Code)

		h.SetReady(false)

		w = httptest.NewRecorder()
		h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("only the failing probe is reported", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("postgres", time.Second, alwaysHealthy())
		h.AddReadinessCheck("offer_cache", time.Second, alwaysFailing("cache down"))
		h.SetReady(true)

		ctx := context.Background()
		for range defaultFailThreshold {
			h.readiness[1].observe(ctx)
		}

		w := httptest.NewRecorder()
		h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeReport(t, w)
		assert.Contains(t, body.Checks, "offer_cache")
		assert.NotContains(t, body.Checks, "postgres")
	})
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, alwaysHealthy())

	assert.False(t, h.IsReady(), "gate starts closed")

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestProbeRecovery(t *testing.T) {
	failing := true
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	p := h.liveness[0]
	ctx := context.Background()

	for range defaultFailThreshold {
		p.observe(ctx)
	}
	assert.False(t, p.ok.Load())

	failing = false
	for range defaultPassThreshold {
		p.observe(ctx)
	}
	assert.True(t, p.ok.Load(), "probe recovers after consecutive passes")
}

func TestProbeLastError(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, alwaysFailing("connection refused"))
	p := h.readiness[0]

	assert.Nil(t, p.lastError())

	p.observe(context.Background())
	assert.EqualError(t, p.lastError(), "connection refused")
}

func TestStopIsIdempotent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, alwaysHealthy())

	h.Start(context.Background(), 100*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentEndpointAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("goroutines", time.Second, alwaysFailing("err"))
	h.AddReadinessCheck("postgres", time.Second, alwaysHealthy())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()

				w := httptest.NewRecorder()
				h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

				w = httptest.NewRecorder()
				h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(_ context.Context) error { return s.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(stubPinger{})(context.Background()))

	err := PingCheck(stubPinger{err: errors.New("no route to host")})(context.Background())
	assert.EqualError(t, err, "no route to host")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}
