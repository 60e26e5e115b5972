package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains platform-level metrics for the content-supply core
type Metrics struct {
	// Content fetch metrics
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Cache metrics
	CacheRequests      *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec

	// Pipeline metrics
	PipelineMessages  *prometheus.CounterVec
	FilesIndexed      prometheus.Counter
	ArchivesExtracted prometheus.Counter

	// Upstream metrics
	OriginRequests *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter

	// Errors
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "fetch",
				Name:      "total",
				Help:      "Total content fetches by resource type and outcome",
			},
			[]string{"resource_type", "status"},
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "helps",
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Help:      "Content fetch duration by ladder rung",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"rung"},
		),

		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "cache",
				Name:      "requests_total",
				Help:      "Smart cache requests by content class and outcome",
			},
			[]string{"class", "outcome"},
		),

		CacheInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "cache",
				Name:      "invalidations_total",
				Help:      "Cache entries removed by tag invalidation",
			},
			[]string{"tag"},
		),

		PipelineMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "pipeline",
				Name:      "messages_total",
				Help:      "Storage notifications processed by kind and status",
			},
			[]string{"kind", "status"},
		),

		FilesIndexed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "pipeline",
				Name:      "files_indexed_total",
				Help:      "Extracted files written to the search index",
			},
		),

		ArchivesExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "pipeline",
				Name:      "archives_extracted_total",
				Help:      "Archives unpacked by the unzip worker",
			},
		),

		OriginRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "origin",
				Name:      "requests_total",
				Help:      "Origin API requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "helps",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "helps",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total errors by component and class",
			},
			[]string{"component", "class"},
		),
	}
}

// RecordFetch increments the fetch counter
func (m *Metrics) RecordFetch(resourceType, status string) {
	m.FetchesTotal.WithLabelValues(resourceType, status).Inc()
}

// RecordFetchDuration records time spent in a ladder rung
func (m *Metrics) RecordFetchDuration(rung string, d time.Duration) {
	m.FetchDuration.WithLabelValues(rung).Observe(d.Seconds())
}

// RecordCacheRequest records a smart cache hit or miss
func (m *Metrics) RecordCacheRequest(class, outcome string) {
	m.CacheRequests.WithLabelValues(class, outcome).Inc()
}

// RecordCacheInvalidation records entries removed by a tag invalidation
func (m *Metrics) RecordCacheInvalidation(tag string, count int) {
	m.CacheInvalidations.WithLabelValues(tag).Add(float64(count))
}

// RecordPipelineMessage records a processed storage notification
func (m *Metrics) RecordPipelineMessage(kind, status string) {
	m.PipelineMessages.WithLabelValues(kind, status).Inc()
}

// RecordOriginRequest records an origin API request
func (m *Metrics) RecordOriginRequest(endpoint, status string) {
	m.OriginRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments the reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}

// RecordError increments the error counter
func (m *Metrics) RecordError(component, class string) {
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}
