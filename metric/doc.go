// Package metric provides Prometheus metrics management for translation-helps-core.
//
// MetricsRegistry wraps an isolated prometheus.Registry so every daemon (and
// every test) owns its metrics instance explicitly; there are no process-wide
// singletons. Core platform metrics (content fetches, cache traffic, pipeline
// throughput, NATS connection state) are created once per registry, and
// components register their own service-specific collectors through the
// MetricsRegistrar interface.
//
//	registry := metric.NewMetricsRegistry()
//	registry.CoreMetrics().RecordFetch("scripture", "hit")
//	mux.Handle("/metrics", metric.Handler(registry))
package metric
