package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klappy/translation-helps-core/config"
	"github.com/klappy/translation-helps-core/health"
	"github.com/klappy/translation-helps-core/metric"
)

type fakeReindexer struct {
	indexed int
	err     error
	calls   int
}

func (f *fakeReindexer) Reindex(context.Context) (int, error) {
	f.calls++
	return f.indexed, f.err
}

func testConfig() *config.SafeConfig {
	cfg := &config.Config{}
	cfg.Platform.ID = "helpsd-test"
	cfg.NATS.URLs = []string{"nats://localhost:4222"}
	cfg.NATS.Password = "supersecret"
	cfg.Origin.BaseURL = "https://git.door43.org"
	return config.NewSafeConfig(cfg)
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *health.Monitor) {
	t.Helper()
	monitor := health.NewMonitor()
	server, err := NewServer(":0", testConfig(), monitor, opts...)
	require.NoError(t, err)
	return server, monitor
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer("", testConfig(), health.NewMonitor())
	assert.Error(t, err)

	_, err = NewServer(":0", nil, health.NewMonitor())
	assert.Error(t, err)

	_, err = NewServer(":0", testConfig(), nil)
	assert.Error(t, err)
}

func TestHealthzAggregates(t *testing.T) {
	server, monitor := newTestServer(t)
	monitor.UpdateHealthy("nats", "connected")
	monitor.UpdateHealthy("breaker:origin-api", "circuit closed")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status health.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "helpsd", status.Component)
	assert.True(t, status.IsHealthy())
	assert.Len(t, status.SubStatuses, 2)
}

func TestHealthzDegradedStillAnswers200(t *testing.T) {
	server, monitor := newTestServer(t)
	monitor.UpdateHealthy("nats", "connected")
	monitor.UpdateDegraded("breaker:origin-api", "circuit open")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status health.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.IsDegraded())
}

func TestHealthzUnhealthyAnswers503(t *testing.T) {
	server, monitor := newTestServer(t)
	monitor.UpdateUnhealthy("nats", "disconnected")

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDiagConfigMasksCredentials(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diag/config", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "supersecret")
	assert.Contains(t, body, "[REDACTED]")
	assert.Contains(t, body, "helpsd-test")
}

func TestDiagReindex(t *testing.T) {
	reindexer := &fakeReindexer{indexed: 42}
	server, _ := newTestServer(t, WithReindexer(reindexer))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/diag/reindex", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, reindexer.calls)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, float64(42), resp["indexed"])
}

func TestDiagReindexFailure(t *testing.T) {
	reindexer := &fakeReindexer{indexed: 3, err: stderrors.New("index backend down")}
	server, _ := newTestServer(t, WithReindexer(reindexer))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/diag/reindex", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, float64(3), resp["indexed"])
	// Raw error text never reaches the client.
	assert.NotContains(t, rec.Body.String(), "index backend down")
}

func TestDiagReindexUnavailable(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/diag/reindex", nil))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestDiagReindexRejectsGet(t *testing.T) {
	reindexer := &fakeReindexer{}
	server, _ := newTestServer(t, WithReindexer(reindexer))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diag/reindex", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, 0, reindexer.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	registry.Metrics.RecordPipelineMessage("archive", "ok")

	server, _ := newTestServer(t, WithMetricsRegistry(registry))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "helps_pipeline_messages_total"))
}

func TestMetricsEndpointAbsentWithoutRegistry(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	server, _ := newTestServer(t)

	require.NoError(t, server.Start())
	require.Error(t, server.Start(), "double start must fail")

	require.NoError(t, server.Stop(context.Background()))
	require.NoError(t, server.Stop(context.Background()), "stop is idempotent")
}

func TestHealthzEmptyMonitor(t *testing.T) {
	server, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	// No registered subsystems aggregates to healthy.
	assert.Equal(t, http.StatusOK, rec.Code)
}
