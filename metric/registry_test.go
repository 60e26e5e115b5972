package metric

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistriesAreIsolated(t *testing.T) {
	a := NewMetricsRegistry()
	b := NewMetricsRegistry()

	a.CoreMetrics().RecordFetch("scripture", "hit")
	a.CoreMetrics().RecordFetch("scripture", "hit")
	b.CoreMetrics().RecordFetch("scripture", "hit")

	families, err := a.PrometheusRegistry().Gather()
	require.NoError(t, err)

	var got float64
	for _, mf := range families {
		if mf.GetName() == "helps_fetch_total" {
			for _, m := range mf.GetMetric() {
				got += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, got)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewMetricsRegistry()

	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_lookups_total", Help: "x"})
	require.NoError(t, r.RegisterCounter("catalog", "lookups_total", c))

	c2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_lookups_total2", Help: "x"})
	err := r.RegisterCounter("catalog", "lookups_total", c2)
	assert.Error(t, err)
}

func TestUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "pipeline_backlog", Help: "x"})
	require.NoError(t, r.RegisterGauge("pipeline", "backlog", g))

	assert.True(t, r.Unregister("pipeline", "backlog"))
	assert.False(t, r.Unregister("pipeline", "backlog"))

	// Re-registration after unregister must succeed.
	require.NoError(t, r.RegisterGauge("pipeline", "backlog", g))
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewMetricsRegistry()
	r.CoreMetrics().RecordPipelineMessage("archive", "ok")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(r).ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "helps_pipeline_messages_total")
}
