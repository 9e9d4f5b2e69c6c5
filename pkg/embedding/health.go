package embedding

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/studyloop/recall/pkg/embedder"
)

// Health states reported for a provider. They map onto the circuit breaker
// states: closed is healthy, half-open is degraded (probing recovery), open
// is unhealthy.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

const (
	defaultProbeInterval = time.Minute
	defaultProbeTimeout  = 5 * time.Second

	// probeText is the minimal canary input for health probes.
	probeText = "ping"
)

// ProviderStatus is a point-in-time view of one provider's health.
type ProviderStatus struct {
	Provider    string        `json:"provider"`
	State       string        `json:"state"`
	LastLatency time.Duration `json:"last_latency_ms,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	LastChecked time.Time     `json:"last_checked,omitempty"`
}

// providerState tracks one provider's breaker and probe observations.
// The breaker has its own internal locking; latency, error, and check time
// are guarded by the monitor's mutex.
type providerState struct {
	breaker     *gobreaker.TwoStepCircuitBreaker
	lastLatency time.Duration
	lastErr     error
	lastChecked time.Time
}

// Monitor tracks provider health with one circuit breaker per provider.
//
// Health updates come from two paths: every live call reports its outcome
// through the done callback from Allow, and a periodic probe embeds a
// canary text against each provider on a fixed interval. A live failure is
// therefore visible to the next call's provider selection without waiting
// for a probe tick. Providers start healthy.
type Monitor struct {
	mu        sync.RWMutex
	providers map[string]*providerState

	registry     *embedder.Registry
	interval     time.Duration
	probeTimeout time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// MonitorConfig configures the health monitor.
type MonitorConfig struct {
	// ProbeInterval is the time between probe sweeps (default 1m).
	ProbeInterval time.Duration

	// ProbeTimeout bounds each canary call (default 5s).
	ProbeTimeout time.Duration

	// Trip is the consecutive-failure count that opens a breaker
	// (default 3).
	Trip uint32

	// Recovery is how long a breaker stays open before probing recovery
	// (default 30s).
	Recovery time.Duration
}

// NewMonitor creates a health monitor covering every provider registered at
// construction time.
func NewMonitor(registry *embedder.Registry, cfg MonitorConfig, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	trip := cfg.Trip
	if trip == 0 {
		trip = 3
	}
	recovery := cfg.Recovery
	if recovery <= 0 {
		recovery = 30 * time.Second
	}

	m := &Monitor{
		providers:    make(map[string]*providerState),
		registry:     registry,
		interval:     cfg.ProbeInterval,
		probeTimeout: cfg.ProbeTimeout,
		logger:       logger,
	}

	for _, name := range registry.Names() {
		name := name
		m.providers[name] = &providerState{
			breaker: gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
				Name:        name,
				MaxRequests: 1,
				Timeout:     recovery,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= trip
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					logger.Info("provider health changed",
						"provider", name,
						"from", healthLabel(from),
						"to", healthLabel(to))
				},
			}),
		}
	}

	return m
}

// Start launches the periodic probe loop. The loop runs until Stop is
// called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probeAll(ctx)
			}
		}
	}()
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// Allow reports whether provider may serve a request. On success it returns
// a done callback the caller must invoke with the call's outcome; that
// report drives the breaker inline, independent of the probe schedule.
// An error means the provider is currently unhealthy and must be skipped.
func (m *Monitor) Allow(provider string) (func(success bool), error) {
	state := m.state(provider)
	if state == nil {
		// Unregistered providers are not gated.
		return func(bool) {}, nil
	}
	done, err := state.breaker.Allow()
	if err != nil {
		return nil, ErrProviderUnhealthy
	}
	return done, nil
}

// Healthy reports whether provider is currently selectable.
func (m *Monitor) Healthy(provider string) bool {
	state := m.state(provider)
	if state == nil {
		return true
	}
	return state.breaker.State() != gobreaker.StateOpen
}

// Observe records a live call's latency and error against provider. The
// breaker outcome is reported separately through the Allow done callback.
func (m *Monitor) Observe(provider string, latency time.Duration, err error) {
	state := m.state(provider)
	if state == nil {
		return
	}
	m.mu.Lock()
	state.lastLatency = latency
	state.lastErr = err
	state.lastChecked = time.Now()
	m.mu.Unlock()
}

// Status returns a snapshot of every tracked provider's health.
func (m *Monitor) Status() []ProviderStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(m.providers))
	for name, state := range m.providers {
		ps := ProviderStatus{
			Provider:    name,
			State:       healthLabel(state.breaker.State()),
			LastLatency: state.lastLatency,
			LastChecked: state.lastChecked,
		}
		if state.lastErr != nil {
			ps.LastError = state.lastErr.Error()
		}
		out = append(out, ps)
	}
	return out
}

func (m *Monitor) state(provider string) *providerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[provider]
}

// probeAll embeds the canary text against every provider concurrently.
// Probes go through the same breakers as live traffic, so a successful
// probe in the half-open state closes the breaker again.
func (m *Monitor) probeAll(ctx context.Context) {
	g, probeCtx := errgroup.WithContext(ctx)

	for _, name := range m.registry.Names() {
		name := name
		g.Go(func() error {
			m.probe(probeCtx, name)
			return nil
		})
	}
	// Probe errors are recorded per provider, never propagated.
	_ = g.Wait()
}

func (m *Monitor) probe(ctx context.Context, provider string) {
	state := m.state(provider)
	if state == nil {
		return
	}

	done, err := state.breaker.Allow()
	if err != nil {
		// Breaker still open; recovery window has not elapsed.
		return
	}

	p, ok := m.registry.Get(provider)
	if !ok {
		done(false)
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	start := time.Now()
	_, embedErr := p.Embed(probeCtx, probeText)
	latency := time.Since(start)

	done(embedErr == nil)
	m.Observe(provider, latency, embedErr)

	if embedErr != nil {
		m.logger.Warn("provider probe failed",
			"provider", provider,
			"latency", latency,
			"error", embedErr)
	}
}

func healthLabel(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return HealthHealthy
	case gobreaker.StateHalfOpen:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}
