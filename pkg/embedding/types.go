// Package embedding orchestrates embedding generation across providers.
//
// The Service is constructed once at process start and shared by the search
// engine and memory store. It layers a content-addressed cache, per-provider
// health tracking, quota accounting, and a deterministic fallback chain over
// the provider adapters in pkg/embedder.
package embedding

import "time"

// Request describes one embedding generation call.
type Request struct {
	// Texts is the non-empty list of texts to embed.
	Texts []string

	// Provider optionally pins the call to one provider. When set, the
	// fallback chain is not consulted. An alternate model for the same
	// provider family is requested by registering a second adapter
	// instance under a distinct identifier.
	Provider string

	// Timeout overrides the configured per-provider call bound.
	Timeout time.Duration
}

// Result is the outcome of a successful embedding generation call.
type Result struct {
	// Vectors holds one embedding per input text, in input order.
	Vectors [][]float64

	// Provider is the identifier of the provider that produced the vectors.
	Provider string

	// Model is the model name used.
	Model string

	// Dimensions is the per-vector dimensionality.
	Dimensions int

	// CacheHit reports whether the result came from the cache. Cache hits
	// incur no provider cost or quota usage.
	CacheHit bool

	// EstimatedCost is the approximate cost of this call, derived from the
	// input character count and the provider's configured unit cost. Zero
	// for cache hits.
	EstimatedCost float64

	// RequestID uniquely identifies this Generate call for log correlation.
	RequestID string
}

// ProviderConfig carries per-provider operating limits.
type ProviderConfig struct {
	// DailyQuota is the request ceiling per rolling day. 0 means unlimited.
	DailyQuota int64

	// MonthlyQuota is the request ceiling per rolling month. 0 means
	// unlimited.
	MonthlyQuota int64

	// CostPerChar is the unit cost per input character. Cost accounting is
	// total_input_characters multiplied by this value, which approximates
	// token-based billing and must not be treated as billing-accurate.
	CostPerChar float64

	// RPS caps provider request throughput. 0 means unlimited.
	RPS float64

	// Burst is the rate limiter burst size. Defaults to 1 when RPS is set.
	Burst int
}

// Config configures the embedding Service.
type Config struct {
	// DefaultProvider is tried first when no explicit provider is given.
	DefaultProvider string

	// Fallbacks is the ordered fallback chain consulted after the default.
	// The default provider is excluded from this list at selection time.
	Fallbacks []string

	// CallTimeout bounds each per-provider attempt, retries included.
	// Defaults to 30s.
	CallTimeout time.Duration

	// Providers carries per-provider quotas, costs, and rate limits,
	// keyed by provider identifier.
	Providers map[string]ProviderConfig
}
