package embedding

import (
	"sync"
	"sync/atomic"
	"time"
)

// Usage is a point-in-time snapshot of one provider's accumulated usage.
type Usage struct {
	// Requests counts successful calls since process start.
	Requests int64 `json:"requests"`

	// DailyRequests counts calls since the last daily reset.
	DailyRequests int64 `json:"daily_requests"`

	// MonthlyRequests counts calls since the last monthly reset.
	MonthlyRequests int64 `json:"monthly_requests"`

	// Characters counts total input characters sent to the provider.
	Characters int64 `json:"characters"`

	// Cost is Characters multiplied by the provider's configured unit
	// cost. Character count stands in for token count here, so this is an
	// approximation of spend, not a billing-accurate figure.
	Cost float64 `json:"cost"`

	// LastRequest is when the provider last served a call.
	LastRequest time.Time `json:"last_request,omitempty"`
}

// counters holds one provider's live counters. The atomic fields take
// increments from concurrent request paths without locking; lastRequest is
// guarded by the tracker's mutex since it is read-mostly.
type counters struct {
	requests    atomic.Int64
	daily       atomic.Int64
	monthly     atomic.Int64
	characters  atomic.Int64
	lastRequest time.Time
}

// UsageTracker accumulates per-provider request and cost counters and
// enforces quota ceilings. Counters are never deleted, only reset; the
// daily/monthly resets are driven by an external scheduler.
type UsageTracker struct {
	mu        sync.RWMutex
	providers map[string]*counters
	configs   map[string]ProviderConfig
}

// NewUsageTracker creates a tracker for the configured providers. Providers
// absent from cfg get zero-valued limits (no quota, zero unit cost).
func NewUsageTracker(cfgs map[string]ProviderConfig) *UsageTracker {
	t := &UsageTracker{
		providers: make(map[string]*counters),
		configs:   make(map[string]ProviderConfig, len(cfgs)),
	}
	for name, cfg := range cfgs {
		t.providers[name] = &counters{}
		t.configs[name] = cfg
	}
	return t
}

// get returns the counters for provider, creating them on first use.
func (t *UsageTracker) get(provider string) *counters {
	t.mu.RLock()
	c, ok := t.providers[provider]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.providers[provider]; ok {
		return c
	}
	c = &counters{}
	t.providers[provider] = c
	return c
}

// Record accumulates one successful call: chars input characters and one
// request against the daily and monthly windows.
func (t *UsageTracker) Record(provider string, chars int) {
	c := t.get(provider)
	c.requests.Add(1)
	c.daily.Add(1)
	c.monthly.Add(1)
	c.characters.Add(int64(chars))

	t.mu.Lock()
	c.lastRequest = time.Now()
	t.mu.Unlock()
}

// CheckQuota reports whether provider may serve another request.
// Returns ErrQuotaExceeded when a configured daily or monthly ceiling has
// been reached; a zero ceiling means unlimited.
func (t *UsageTracker) CheckQuota(provider string) error {
	t.mu.RLock()
	cfg := t.configs[provider]
	t.mu.RUnlock()

	c := t.get(provider)
	if cfg.DailyQuota > 0 && c.daily.Load() >= cfg.DailyQuota {
		return ErrQuotaExceeded
	}
	if cfg.MonthlyQuota > 0 && c.monthly.Load() >= cfg.MonthlyQuota {
		return ErrQuotaExceeded
	}
	return nil
}

// ResetDaily zeroes every provider's daily window. Called by the external
// scheduler at the day boundary.
func (t *UsageTracker) ResetDaily() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.providers {
		c.daily.Store(0)
	}
}

// ResetMonthly zeroes every provider's monthly window. Called by the
// external scheduler at the month boundary.
func (t *UsageTracker) ResetMonthly() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, c := range t.providers {
		c.monthly.Store(0)
	}
}

// Snapshot returns a copy of every provider's usage, with cost derived from
// the character counter and the configured unit cost.
func (t *UsageTracker) Snapshot() map[string]Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Usage, len(t.providers))
	for name, c := range t.providers {
		chars := c.characters.Load()
		out[name] = Usage{
			Requests:        c.requests.Load(),
			DailyRequests:   c.daily.Load(),
			MonthlyRequests: c.monthly.Load(),
			Characters:      chars,
			Cost:            float64(chars) * t.configs[name].CostPerChar,
			LastRequest:     c.lastRequest,
		}
	}
	return out
}
