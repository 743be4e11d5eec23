package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avabackoff/internal/chart"
	"github.com/vyrodovalexey/avabackoff/internal/config"
	"github.com/vyrodovalexey/avabackoff/internal/form"
	"github.com/vyrodovalexey/avabackoff/internal/health"
	"github.com/vyrodovalexey/avabackoff/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Server.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) *Server {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}
	opts = append([]Option{
		WithMetrics(observability.NewMetrics("test")),
		WithSampler(chart.NewSampler(1)),
	}, opts...)

	s, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(s.hub.Close)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewServer_NilConfig(t *testing.T) {
	t.Parallel()

	s, err := NewServer(nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    State
		expected string
	}{
		{StateStopped, "stopped"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestServer_HealthEndpoints(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, WithVersion("1.2.3"))

	w := doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var hr health.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hr))
	assert.Equal(t, health.StatusHealthy, hr.Status)
	assert.Equal(t, "1.2.3", hr.Version)

	w = doJSON(t, s.Handler(), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var rr health.ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rr))
	assert.Equal(t, health.StatusHealthy, rr.Status)
	assert.Equal(t, health.StatusHealthy, rr.Checks["policy"].Status)
}

func TestServer_ReadinessDegradedOnInvalidPolicy(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Policy.Factor = "1"
	s := newTestServer(t, cfg)

	w := doJSON(t, s.Handler(), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var rr health.ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rr))
	assert.Equal(t, health.StatusDegraded, rr.Status)
	assert.Contains(t, rr.Checks["policy"].Message, "Factor")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)

	doJSON(t, s.Handler(), http.MethodGet, "/api/v1/policy", nil)
	w := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_requests_total")
}

func TestServer_MetricsDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Metrics.Enabled = false
	s := newTestServer(t, cfg)

	w := doJSON(t, s.Handler(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RateLimited(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	s := newTestServer(t, cfg)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/policy", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/policy", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	w = doJSON(t, s.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_UpdateConfig(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("test")
	s := newTestServer(t, nil, WithMetrics(metrics))

	next := testConfig()
	next.Policy.Strategy = "fixed"
	next.Policy.InitialDelayMs = "250"
	next.Policy.MaxRetries = "2"
	s.UpdateConfig(next)

	p := s.Policy()
	require.True(t, p.Valid)
	require.NotNil(t, p.Summary)
	assert.Equal(t, 500.0, p.Summary.TotalDelayMs)
	assert.Contains(t, p.Query, "strategy=fixed")

	s.UpdateConfig(nil)
	assert.Equal(t, p.Query, s.Policy().Query)
}

func TestServer_StartAndShutdown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.Equal(t, StateRunning, s.State())
	assert.Error(t, s.Start(ctx))
	assert.False(t, strings.HasSuffix(s.Addr(), ":0"))

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(shutdownCtx))
	assert.Equal(t, StateStopped, s.State())
	assert.True(t, s.checker.IsDraining())

	assert.NoError(t, s.Shutdown(shutdownCtx))
}

func TestServer_StartInvalidAddress(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Server.Address = "256.0.0.1:bad"
	s := newTestServer(t, cfg)

	assert.Error(t, s.Start(context.Background()))
	assert.Equal(t, StateStopped, s.State())
}

func TestServer_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	assert.Equal(t, config.DefaultShutdownTimeout, s.ShutdownTimeout())
}

func TestServer_RecordsConfigReload(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("test")
	s := newTestServer(t, nil, WithMetrics(metrics))

	s.UpdateConfig(testConfig())

	count := testutil.CollectAndCount(metrics.Registry(), "test_config_reloads_total")
	assert.Equal(t, 1, count)
	assert.Equal(t, form.Default(), s.Policy().Values)
}
