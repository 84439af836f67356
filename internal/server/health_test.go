package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcerelay/forcerelay/internal/auth"
	"github.com/forcerelay/forcerelay/internal/instrumentation"
	"github.com/forcerelay/forcerelay/internal/session"
)

func newTestServerContext(t *testing.T) *ServerContext {
	t.Helper()

	sc := NewServerContext(context.Background(), ServerContextConfig{
		Resolver: auth.NewResolver("", nil),
		Registry: session.NewRegistry(nil),
	})
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestHealthChecker_ReportsSessionCount(t *testing.T) {
	sc := newTestServerContext(t)
	h := NewHealthChecker(sc)

	s := sc.Registry().BeginInit()
	require.NoError(t, sc.Registry().CompleteInit(s.ID, nil, nil))

	rec := httptest.NewRecorder()
	h.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusOK, resp.Status)
	assert.Equal(t, 1, resp.Sessions)
	assert.NotEmpty(t, resp.Uptime)
}

func TestHealthChecker_ShuttingDown(t *testing.T) {
	sc := newTestServerContext(t)
	h := NewHealthChecker(sc)

	require.NoError(t, sc.Shutdown())

	rec := httptest.NewRecorder()
	h.HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusShuttingDown, resp.Status)
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthChecker_Readiness(t *testing.T) {
	sc := newTestServerContext(t)
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.SetReady(false)
	assert.False(t, h.IsReady())

	rec = httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerContext_ShutdownDrainsSessions(t *testing.T) {
	sc := NewServerContext(context.Background(), ServerContextConfig{
		Resolver: auth.NewResolver("", nil),
		Registry: session.NewRegistry(nil),
	})

	s := sc.Registry().BeginInit()
	require.NoError(t, sc.Registry().CompleteInit(s.ID, nil, nil))

	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Equal(t, 0, sc.Registry().Len())

	select {
	case <-sc.Context().Done():
	default:
		t.Fatal("server context should be canceled after shutdown")
	}

	// Shutdown twice is a no-op.
	require.NoError(t, sc.Shutdown())
}

func TestMetricsServer_RequiresEnabledProvider(t *testing.T) {
	_, err := NewMetricsServer(":0", nil, nil)
	assert.Error(t, err)

	// A disabled provider exports nothing, so the scrape endpoint is refused
	// rather than served empty.
	disabled, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{Enabled: false})
	require.NoError(t, err)

	_, err = NewMetricsServer(":0", disabled, nil)
	assert.Error(t, err)
}

func TestMetricsServer_DefaultsAddr(t *testing.T) {
	provider, err := instrumentation.NewProvider(context.Background(), instrumentation.Config{
		ServiceName:     "forcerelay-test",
		ServiceVersion:  "0.0.1",
		Enabled:         true,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ms, err := NewMetricsServer("", provider, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMetricsAddr, ms.Addr())
}
