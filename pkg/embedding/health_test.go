package embedding

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall/pkg/embedder"
)

func newTestMonitor(t *testing.T, cfg MonitorConfig, providers ...embedder.Provider) *Monitor {
	t.Helper()
	registry := embedder.NewRegistry()
	for _, p := range providers {
		registry.Register(p)
	}
	return NewMonitor(registry, cfg, nil)
}

func TestMonitorStartsHealthy(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{}, &fakeProvider{name: "openai", dims: 2})

	assert.True(t, m.Healthy("openai"))

	done, err := m.Allow("openai")
	require.NoError(t, err)
	done(true)

	status := m.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "openai", status[0].Provider)
	assert.Equal(t, HealthHealthy, status[0].State)
}

func TestMonitorTripsAfterConsecutiveFailures(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{Trip: 2, Recovery: time.Hour},
		&fakeProvider{name: "openai", dims: 2})

	for i := 0; i < 2; i++ {
		done, err := m.Allow("openai")
		require.NoError(t, err)
		done(false)
	}

	assert.False(t, m.Healthy("openai"))

	_, err := m.Allow("openai")
	assert.ErrorIs(t, err, ErrProviderUnhealthy)

	status := m.Status()
	require.Len(t, status, 1)
	assert.Equal(t, HealthUnhealthy, status[0].State)
}

func TestMonitorSuccessResetsFailureStreak(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{Trip: 2, Recovery: time.Hour},
		&fakeProvider{name: "openai", dims: 2})

	done, err := m.Allow("openai")
	require.NoError(t, err)
	done(false)

	done, err = m.Allow("openai")
	require.NoError(t, err)
	done(true)

	// The streak was broken; one more failure must not trip the breaker.
	done, err = m.Allow("openai")
	require.NoError(t, err)
	done(false)

	assert.True(t, m.Healthy("openai"))
}

func TestMonitorRecovery(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{Trip: 1, Recovery: 20 * time.Millisecond},
		&fakeProvider{name: "openai", dims: 2})

	done, err := m.Allow("openai")
	require.NoError(t, err)
	done(false)
	assert.False(t, m.Healthy("openai"))

	time.Sleep(30 * time.Millisecond)

	// Recovery window elapsed: half-open, selectable again.
	assert.True(t, m.Healthy("openai"))

	done, err = m.Allow("openai")
	require.NoError(t, err)
	done(true)
	assert.True(t, m.Healthy("openai"))
}

func TestMonitorObserve(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{}, &fakeProvider{name: "openai", dims: 2})

	m.Observe("openai", 120*time.Millisecond, errors.New("slow upstream"))

	status := m.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 120*time.Millisecond, status[0].LastLatency)
	assert.Equal(t, "slow upstream", status[0].LastError)
	assert.False(t, status[0].LastChecked.IsZero())
}

func TestMonitorUnregisteredProviderNotGated(t *testing.T) {
	m := newTestMonitor(t, MonitorConfig{}, &fakeProvider{name: "openai", dims: 2})

	assert.True(t, m.Healthy("stranger"))

	done, err := m.Allow("stranger")
	require.NoError(t, err)
	done(false)
}
