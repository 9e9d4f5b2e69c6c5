// Package metrics contains the Prometheus collectors for the memory engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics contains all engine-level collectors. Components hold a possibly
// nil *Metrics; every Record method tolerates nil so instrumentation is
// optional in tests and embedded use.
type Metrics struct {
	// Embedding metrics
	EmbedRequests *prometheus.CounterVec
	EmbedDuration *prometheus.HistogramVec
	CacheEvents   *prometheus.CounterVec
	ProviderCost  *prometheus.CounterVec

	// Search metrics
	SearchRequests *prometheus.CounterVec
	SearchDuration *prometheus.HistogramVec

	// Memory metrics
	MemoryWrites  *prometheus.CounterVec
	MemoryUpdates prometheus.Counter
	MemoryPurged  prometheus.Counter
}

// New creates the engine collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EmbedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recall",
				Subsystem: "embedding",
				Name:      "requests_total",
				Help:      "Embedding generation calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		EmbedDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "recall",
				Subsystem: "embedding",
				Name:      "duration_seconds",
				Help:      "Embedding provider call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"provider"},
		),

		CacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recall",
				Subsystem: "embedding",
				Name:      "cache_events_total",
				Help:      "Embedding cache lookups by result (hit or miss)",
			},
			[]string{"result"},
		),

		ProviderCost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recall",
				Subsystem: "embedding",
				Name:      "cost_total",
				Help:      "Approximate provider cost accumulated from input characters",
			},
			[]string{"provider"},
		),

		SearchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recall",
				Subsystem: "search",
				Name:      "requests_total",
				Help:      "Search calls by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "recall",
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Search duration in seconds by mode",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),

		MemoryWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recall",
				Subsystem: "memory",
				Name:      "writes_total",
				Help:      "Memory writes by tier",
			},
			[]string{"tier"},
		),

		MemoryUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "recall",
				Subsystem: "memory",
				Name:      "updates_total",
				Help:      "Memory update operations",
			},
		),

		MemoryPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "recall",
				Subsystem: "memory",
				Name:      "purged_total",
				Help:      "Expired memories removed by purge sweeps",
			},
		),
	}

	reg.MustRegister(
		m.EmbedRequests,
		m.EmbedDuration,
		m.CacheEvents,
		m.ProviderCost,
		m.SearchRequests,
		m.SearchDuration,
		m.MemoryWrites,
		m.MemoryUpdates,
		m.MemoryPurged,
	)

	return m
}

// NewRegistry creates a dedicated Prometheus registry with Go runtime and
// process collectors plus the engine collectors.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, New(registry)
}

// RecordEmbedRequest increments the embedding call counter.
func (m *Metrics) RecordEmbedRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.EmbedRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordEmbedDuration records one provider call's duration.
func (m *Metrics) RecordEmbedDuration(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.EmbedDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordCacheEvent increments the cache lookup counter with "hit" or "miss".
func (m *Metrics) RecordCacheEvent(result string) {
	if m == nil {
		return
	}
	m.CacheEvents.WithLabelValues(result).Inc()
}

// RecordProviderCost accumulates approximate provider cost.
func (m *Metrics) RecordProviderCost(provider string, cost float64) {
	if m == nil || cost <= 0 {
		return
	}
	m.ProviderCost.WithLabelValues(provider).Add(cost)
}

// RecordSearch increments the search counter.
func (m *Metrics) RecordSearch(mode, outcome string) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(mode, outcome).Inc()
}

// RecordSearchDuration records one search's duration.
func (m *Metrics) RecordSearchDuration(mode string, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordMemoryWrite increments the write counter for a tier.
func (m *Metrics) RecordMemoryWrite(tier string) {
	if m == nil {
		return
	}
	m.MemoryWrites.WithLabelValues(tier).Inc()
}

// RecordMemoryUpdate increments the update counter.
func (m *Metrics) RecordMemoryUpdate() {
	if m == nil {
		return
	}
	m.MemoryUpdates.Inc()
}

// RecordMemoryPurged adds n purged rows to the purge counter.
func (m *Metrics) RecordMemoryPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.MemoryPurged.Add(float64(n))
}
