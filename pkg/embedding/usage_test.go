package embedding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsageTrackerRecord(t *testing.T) {
	tracker := NewUsageTracker(map[string]ProviderConfig{
		"openai": {CostPerChar: 0.001},
	})

	tracker.Record("openai", 100)
	tracker.Record("openai", 50)

	usage := tracker.Snapshot()["openai"]
	assert.Equal(t, int64(2), usage.Requests)
	assert.Equal(t, int64(2), usage.DailyRequests)
	assert.Equal(t, int64(2), usage.MonthlyRequests)
	assert.Equal(t, int64(150), usage.Characters)
	assert.InDelta(t, 0.15, usage.Cost, 1e-9)
	assert.False(t, usage.LastRequest.IsZero())
}

func TestUsageTrackerUnknownProvider(t *testing.T) {
	tracker := NewUsageTracker(nil)

	// Unconfigured providers get counters on first use and no quota.
	tracker.Record("surprise", 10)
	assert.NoError(t, tracker.CheckQuota("surprise"))

	usage := tracker.Snapshot()["surprise"]
	assert.Equal(t, int64(1), usage.Requests)
	assert.Zero(t, usage.Cost)
}

func TestUsageTrackerQuota(t *testing.T) {
	tracker := NewUsageTracker(map[string]ProviderConfig{
		"daily":     {DailyQuota: 2},
		"monthly":   {MonthlyQuota: 1},
		"unlimited": {},
	})

	assert.NoError(t, tracker.CheckQuota("daily"))
	tracker.Record("daily", 1)
	assert.NoError(t, tracker.CheckQuota("daily"))
	tracker.Record("daily", 1)
	assert.ErrorIs(t, tracker.CheckQuota("daily"), ErrQuotaExceeded)

	tracker.Record("monthly", 1)
	assert.ErrorIs(t, tracker.CheckQuota("monthly"), ErrQuotaExceeded)

	for i := 0; i < 100; i++ {
		tracker.Record("unlimited", 1)
	}
	assert.NoError(t, tracker.CheckQuota("unlimited"))
}

func TestUsageTrackerResets(t *testing.T) {
	tracker := NewUsageTracker(map[string]ProviderConfig{
		"openai": {DailyQuota: 1, MonthlyQuota: 2},
	})

	tracker.Record("openai", 10)
	assert.ErrorIs(t, tracker.CheckQuota("openai"), ErrQuotaExceeded)

	tracker.ResetDaily()
	assert.NoError(t, tracker.CheckQuota("openai"))

	tracker.Record("openai", 10)
	// Monthly ceiling now reached; only the monthly reset clears it.
	tracker.ResetDaily()
	assert.ErrorIs(t, tracker.CheckQuota("openai"), ErrQuotaExceeded)

	tracker.ResetMonthly()
	assert.NoError(t, tracker.CheckQuota("openai"))

	// Lifetime counters survive resets.
	usage := tracker.Snapshot()["openai"]
	assert.Equal(t, int64(2), usage.Requests)
	assert.Equal(t, int64(20), usage.Characters)
}

func TestUsageTrackerConcurrent(t *testing.T) {
	tracker := NewUsageTracker(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Record("openai", 2)
		}()
	}
	wg.Wait()

	usage := tracker.Snapshot()["openai"]
	assert.Equal(t, int64(50), usage.Requests)
	assert.Equal(t, int64(100), usage.Characters)
}
