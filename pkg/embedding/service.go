package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/studyloop/recall/pkg/embedder"
	"github.com/studyloop/recall/pkg/metrics"
)

const defaultCallTimeout = 30 * time.Second

// Service generates embeddings with caching, health-aware provider
// selection, and deterministic fallback.
//
// One Service instance is constructed at process start and passed to every
// component that embeds text. Each Generate call iterates its own candidate
// list; no lock is held across provider calls, so concurrent calls fall
// back independently.
type Service struct {
	registry *embedder.Registry
	cache    Cache
	monitor  *Monitor
	usage    *UsageTracker
	limiters map[string]*rate.Limiter

	defaultProvider string
	fallbacks       []string
	callTimeout     time.Duration
	costPerChar     map[string]float64

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the embedding service.
//
// Parameters:
//   - cfg: provider ordering, timeouts, and per-provider limits
//   - registry: the provider adapters, keyed by identifier
//   - cache: the embedding cache (memory or Redis)
//   - monitor: the provider health monitor
//   - usage: the quota and cost tracker
//   - opts: optional logger and metrics
func NewService(cfg Config, registry *embedder.Registry, cache Cache, monitor *Monitor, usage *UsageTracker, opts ...Option) *Service {
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	limiters := make(map[string]*rate.Limiter)
	costPerChar := make(map[string]float64)
	for name, pc := range cfg.Providers {
		costPerChar[name] = pc.CostPerChar
		if pc.RPS > 0 {
			burst := pc.Burst
			if burst <= 0 {
				burst = 1
			}
			limiters[name] = rate.NewLimiter(rate.Limit(pc.RPS), burst)
		}
	}

	s := &Service{
		registry:        registry,
		cache:           cache,
		monitor:         monitor,
		usage:           usage,
		limiters:        limiters,
		defaultProvider: cfg.DefaultProvider,
		fallbacks:       cfg.Fallbacks,
		callTimeout:     callTimeout,
		costPerChar:     costPerChar,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the health monitor's probe loop.
func (s *Service) Start(ctx context.Context) {
	s.monitor.Start(ctx)
}

// Close stops the probe loop and releases the cache.
func (s *Service) Close() error {
	s.monitor.Stop()
	return s.cache.Close()
}

// Generate embeds a text list, trying the cache first and then each
// candidate provider in priority order: the explicit provider if one is
// pinned, otherwise the configured default followed by the fallback chain.
//
// A call either returns a complete, input-aligned vector set or fails;
// partial or dimensionally invalid provider responses are treated as
// provider failures and never cached. Individual provider failures are
// absorbed and logged; only the aggregate ExhaustedError reaches the
// caller. Cancelling ctx abandons the remaining fallback chain.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if len(req.Texts) == 0 || !hasContent(req.Texts) {
		return nil, ErrEmptyInput
	}

	requestID := uuid.NewString()

	key := CacheKey(req.Texts, req.Provider)
	if entry, ok := s.cache.Get(ctx, key); ok {
		s.metrics.RecordCacheEvent("hit")
		return &Result{
			Vectors:    entry.Vectors,
			Provider:   entry.Provider,
			Model:      entry.Model,
			Dimensions: entry.Dimension,
			CacheHit:   true,
			RequestID:  requestID,
		}, nil
	}
	s.metrics.RecordCacheEvent("miss")

	candidates := s.candidates(req.Provider)
	if len(candidates) == 0 {
		return nil, &ExhaustedError{LastErr: errors.New("no providers configured")}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.callTimeout
	}

	var lastErr error
	attempted := make([]string, 0, len(candidates))

	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted = append(attempted, name)

		provider, ok := s.registry.Get(name)
		if !ok {
			lastErr = &ProviderError{Provider: name, Err: errors.New("provider not registered")}
			continue
		}

		if err := s.usage.CheckQuota(name); err != nil {
			s.logger.Debug("provider skipped", "provider", name, "reason", "quota")
			s.metrics.RecordEmbedRequest(name, "quota_skip")
			lastErr = &ProviderError{Provider: name, Model: provider.Model(), Err: err}
			continue
		}

		if !s.monitor.Healthy(name) {
			s.logger.Debug("provider skipped", "provider", name, "reason", "unhealthy")
			s.metrics.RecordEmbedRequest(name, "health_skip")
			lastErr = &ProviderError{Provider: name, Model: provider.Model(), Err: ErrProviderUnhealthy}
			continue
		}

		if lim := s.limiters[name]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return nil, err
			}
		}

		done, err := s.monitor.Allow(name)
		if err != nil {
			// Breaker state moved between the health check and here.
			lastErr = &ProviderError{Provider: name, Model: provider.Model(), Err: err}
			continue
		}

		result, err := s.callProvider(ctx, provider, req.Texts, timeout)
		if err != nil {
			done(false)
			s.logger.Warn("embedding provider failed",
				"request_id", requestID,
				"provider", name,
				"model", provider.Model(),
				"error", err)
			s.metrics.RecordEmbedRequest(name, "error")
			lastErr = &ProviderError{Provider: name, Model: provider.Model(), Err: err}
			continue
		}
		done(true)

		chars := totalChars(req.Texts)
		s.usage.Record(name, chars)
		s.metrics.RecordEmbedRequest(name, "success")
		result.EstimatedCost = float64(chars) * s.costPerChar[name]
		result.RequestID = requestID
		s.metrics.RecordProviderCost(name, result.EstimatedCost)

		s.cache.Set(ctx, key, &Entry{
			Vectors:   result.Vectors,
			Provider:  result.Provider,
			Model:     result.Model,
			Dimension: result.Dimensions,
			CreatedAt: time.Now(),
		})

		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, &ExhaustedError{Attempted: attempted, LastErr: lastErr}
}

// callProvider invokes one provider with a bounded timeout and validates
// its response. The timeout covers the retry budget for this provider;
// exceeding it counts as a failure and the orchestrator moves on.
func (s *Service) callProvider(ctx context.Context, provider embedder.Provider, texts []string, timeout time.Duration) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var vectors [][]float64
	start := time.Now()
	err := retryCall(callCtx, func() error {
		var embedErr error
		vectors, embedErr = provider.EmbedBatch(callCtx, texts)
		return embedErr
	})
	latency := time.Since(start)

	s.monitor.Observe(provider.Name(), latency, err)
	s.metrics.RecordEmbedDuration(provider.Name(), latency)

	if err != nil {
		return nil, err
	}
	if err := validateVectors(vectors, len(texts), provider.Dimensions()); err != nil {
		return nil, err
	}

	return &Result{
		Vectors:    vectors,
		Provider:   provider.Name(),
		Model:      provider.Model(),
		Dimensions: provider.Dimensions(),
	}, nil
}

// candidates builds the provider priority list: the explicit provider alone
// when pinned, otherwise the default followed by the fallback chain with
// the default and duplicates removed.
func (s *Service) candidates(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}

	seen := make(map[string]bool, 1+len(s.fallbacks))
	out := make([]string, 0, 1+len(s.fallbacks))
	if s.defaultProvider != "" {
		seen[s.defaultProvider] = true
		out = append(out, s.defaultProvider)
	}
	for _, name := range s.fallbacks {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// validateVectors checks a provider response for alignment and dimensionality.
func validateVectors(vectors [][]float64, want, dimensions int) error {
	if len(vectors) != want {
		return fmt.Errorf("unexpected vector count (got %d, expected %d)", len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("empty vector at index %d", i)
		}
		if dimensions > 0 && len(v) != dimensions {
			return fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), dimensions)
		}
	}
	return nil
}

func totalChars(texts []string) int {
	total := 0
	for _, t := range texts {
		total += len(t)
	}
	return total
}

// hasContent reports whether at least one text is non-blank.
func hasContent(texts []string) bool {
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

// Health returns the current health snapshot for every provider.
func (s *Service) Health() []ProviderStatus {
	return s.monitor.Status()
}

// Usage returns the usage snapshot for every provider.
func (s *Service) Usage() map[string]Usage {
	return s.usage.Snapshot()
}

// ResetDailyUsage zeroes the daily quota windows. Exposed for the external
// scheduler that owns day boundaries.
func (s *Service) ResetDailyUsage() {
	s.usage.ResetDaily()
}

// ResetMonthlyUsage zeroes the monthly quota windows.
func (s *Service) ResetMonthlyUsage() {
	s.usage.ResetMonthly()
}
