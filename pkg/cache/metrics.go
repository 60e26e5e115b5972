package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/klappy/translation-helps-core/metric"
)

// cacheMetrics exposes cache statistics as Prometheus metrics
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	deletes   prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

// newCacheMetrics creates and registers cache metrics under the given prefix
func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_hits_total",
			Help: "Total cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_misses_total",
			Help: "Total cache misses",
		}),
		sets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_sets_total",
			Help: "Total cache set operations",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_deletes_total",
			Help: "Total cache delete operations",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_evictions_total",
			Help: "Total cache evictions",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_size",
			Help: "Current number of cached entries",
		}),
	}

	serviceName := "cache"
	registrations := []struct {
		name string
		err  error
	}{
		{prefix + "_hits_total", registry.RegisterCounter(serviceName, prefix+"_hits_total", m.hits)},
		{prefix + "_misses_total", registry.RegisterCounter(serviceName, prefix+"_misses_total", m.misses)},
		{prefix + "_sets_total", registry.RegisterCounter(serviceName, prefix+"_sets_total", m.sets)},
		{prefix + "_deletes_total", registry.RegisterCounter(serviceName, prefix+"_deletes_total", m.deletes)},
		{prefix + "_evictions_total", registry.RegisterCounter(serviceName, prefix+"_evictions_total", m.evictions)},
		{prefix + "_size", registry.RegisterGauge(serviceName, prefix+"_size", m.size)},
	}
	for _, reg := range registrations {
		if reg.err != nil {
			return nil, reg.err
		}
	}

	return m, nil
}

func (m *cacheMetrics) recordHit()      { m.hits.Inc() }
func (m *cacheMetrics) recordMiss()     { m.misses.Inc() }
func (m *cacheMetrics) recordSet()      { m.sets.Inc() }
func (m *cacheMetrics) recordDelete()   { m.deletes.Inc() }
func (m *cacheMetrics) recordEviction() { m.evictions.Inc() }
func (m *cacheMetrics) updateSize(n int) {
	m.size.Set(float64(n))
}
