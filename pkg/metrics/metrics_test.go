package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsTolerated(t *testing.T) {
	var m *Metrics

	// Every Record method must be a no-op on a nil receiver.
	m.RecordEmbedRequest("openai", "success")
	m.RecordEmbedDuration("openai", time.Second)
	m.RecordCacheEvent("hit")
	m.RecordProviderCost("openai", 0.5)
	m.RecordSearch("hybrid", "success")
	m.RecordSearchDuration("hybrid", time.Second)
	m.RecordMemoryWrite("universal")
	m.RecordMemoryUpdate()
	m.RecordMemoryPurged(3)
}

func TestRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordEmbedRequest("openai", "success")
	m.RecordEmbedRequest("openai", "success")
	m.RecordCacheEvent("miss")
	m.RecordProviderCost("openai", 0.25)
	m.RecordMemoryWrite("universal")
	m.RecordMemoryUpdate()
	m.RecordMemoryPurged(3)

	assert.InDelta(t, 2.0,
		testutil.ToFloat64(m.EmbedRequests.WithLabelValues("openai", "success")), 1e-9)
	assert.InDelta(t, 1.0,
		testutil.ToFloat64(m.CacheEvents.WithLabelValues("miss")), 1e-9)
	assert.InDelta(t, 0.25,
		testutil.ToFloat64(m.ProviderCost.WithLabelValues("openai")), 1e-9)
	assert.InDelta(t, 1.0,
		testutil.ToFloat64(m.MemoryWrites.WithLabelValues("universal")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.MemoryUpdates), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.MemoryPurged), 1e-9)
}

func TestRecordCostIgnoresZero(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordProviderCost("openai", 0)
	m.RecordProviderCost("openai", -1)
	assert.Zero(t, testutil.ToFloat64(m.ProviderCost.WithLabelValues("openai")))

	m.RecordMemoryPurged(0)
	assert.Zero(t, testutil.ToFloat64(m.MemoryPurged))
}

func TestNewRegistry(t *testing.T) {
	registry, m := NewRegistry()
	require.NotNil(t, m)

	m.RecordMemoryWrite("session")

	families, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "recall_memory_writes_total" {
			found = true
		}
	}
	assert.True(t, found)
}
