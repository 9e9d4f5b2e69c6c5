// Package core provides the recall client facade over storage, embedding,
// classification, and search.
package core

import (
	"time"

	"github.com/studyloop/recall/pkg/search"
)

// Search modes accepted by WithSearchMode.
const (
	// SearchModeVector embeds the query and runs vector similarity only.
	SearchModeVector = string(search.ModeVector)

	// SearchModeText runs the lexical algorithm without embedding.
	SearchModeText = string(search.ModeText)

	// SearchModeHybrid tries vector search and falls back to lexical
	// scoring when it is unavailable. This is the default.
	SearchModeHybrid = string(search.ModeHybrid)
)

// Context levels accepted by WithContextLevel.
const (
	// ContextLight keeps the top 2 results.
	ContextLight = search.ContextLight

	// ContextBalanced keeps up to 4 results with at most 2 per topic.
	ContextBalanced = search.ContextBalanced

	// ContextComprehensive keeps every match.
	ContextComprehensive = search.ContextComprehensive
)

// EmbedOption is a function type for configuring EmbedTexts operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type EmbedOption func(*EmbedOptions)

// EmbedOptions contains configuration options for EmbedTexts operations.
type EmbedOptions struct {
	// Provider pins the call to one provider, bypassing the fallback
	// chain. Empty uses the configured default and fallbacks.
	Provider string

	// Timeout overrides the configured per-provider call timeout.
	Timeout time.Duration
}

// WithProvider pins EmbedTexts to a single provider.
//
// A pinned call never falls back: if the provider fails, the call fails.
//
// Example:
//
//	result, _ := client.EmbedTexts(ctx, texts, core.WithProvider("cohere"))
func WithProvider(provider string) EmbedOption {
	return func(opts *EmbedOptions) {
		opts.Provider = provider
	}
}

// WithTimeout overrides the per-provider call timeout for EmbedTexts.
//
// Example:
//
//	result, _ := client.EmbedTexts(ctx, texts, core.WithTimeout(10*time.Second))
func WithTimeout(timeout time.Duration) EmbedOption {
	return func(opts *EmbedOptions) {
		opts.Timeout = timeout
	}
}

// SearchOption is a function type for configuring SearchMemories operations.
type SearchOption func(*SearchOptions)

// SearchOptions contains configuration options for SearchMemories operations.
type SearchOptions struct {
	// Limit sets the maximum number of results to return.
	// Default: 10
	Limit int

	// MinSimilarity excludes results scoring below this threshold.
	// Default: the configured search default (0.0 when unset).
	MinSimilarity float64

	// Tags keeps only memories whose tags intersect this set.
	Tags []string

	// ContextLevel selects the diversity filter applied to the final
	// result list. See the Context* constants.
	ContextLevel string

	// Mode selects the search mode. See the SearchMode* constants.
	// Default: SearchModeHybrid
	Mode string

	// ConversationID additionally admits that conversation's session
	// memories into the search scope.
	ConversationID string
}

// WithLimit sets the maximum number of results for SearchMemories.
//
// Example:
//
//	resp, _ := client.SearchMemories(ctx, "user_001", "query", core.WithLimit(20))
func WithLimit(limit int) SearchOption {
	return func(opts *SearchOptions) {
		opts.Limit = limit
	}
}

// WithMinSimilarity sets the similarity floor for SearchMemories results.
//
// Only results with similarity >= the threshold are returned.
// Typical range: 0.0-1.0, where 1.0 is identical.
//
// Example:
//
//	resp, _ := client.SearchMemories(ctx, "user_001", "query", core.WithMinSimilarity(0.7))
func WithMinSimilarity(minSimilarity float64) SearchOption {
	return func(opts *SearchOptions) {
		opts.MinSimilarity = minSimilarity
	}
}

// WithTags keeps only memories whose tags intersect the given set.
//
// Example:
//
//	resp, _ := client.SearchMemories(ctx, "user_001", "query",
//	    core.WithTags("calculus", "derivatives"))
func WithTags(tags ...string) SearchOption {
	return func(opts *SearchOptions) {
		opts.Tags = tags
	}
}

// WithContextLevel selects the diversity filter for SearchMemories.
//
// Example:
//
//	resp, _ := client.SearchMemories(ctx, "user_001", "query",
//	    core.WithContextLevel(core.ContextBalanced))
func WithContextLevel(level string) SearchOption {
	return func(opts *SearchOptions) {
		opts.ContextLevel = level
	}
}

// WithSearchMode selects the search mode for SearchMemories.
//
// Example:
//
//	resp, _ := client.SearchMemories(ctx, "user_001", "query",
//	    core.WithSearchMode(core.SearchModeText))
func WithSearchMode(mode string) SearchOption {
	return func(opts *SearchOptions) {
		opts.Mode = mode
	}
}

// WithConversation scopes SearchMemories to additionally include the given
// conversation's session memories. Universal memories are always searched.
//
// Example:
//
//	resp, _ := client.SearchMemories(ctx, "user_001", "query",
//	    core.WithConversation("conv_042"))
func WithConversation(conversationID string) SearchOption {
	return func(opts *SearchOptions) {
		opts.ConversationID = conversationID
	}
}

// ListOption is a function type for configuring ListMemories operations.
type ListOption func(*ListOptions)

// ListOptions contains configuration options for ListMemories operations.
type ListOptions struct {
	// ConversationID filters to one conversation's memories.
	ConversationID string

	// MemoryType filters to one retention tier (TierSession or
	// TierUniversal).
	MemoryType string

	// Limit sets the maximum number of results to return.
	// Default: 100
	Limit int

	// Offset sets the number of results to skip (for pagination).
	// Default: 0
	Offset int

	// IncludeExpired includes memories past their expiry.
	IncludeExpired bool
}

// WithConversationForList filters ListMemories to one conversation.
//
// Example:
//
//	memories, _ := client.ListMemories(ctx, "user_001",
//	    core.WithConversationForList("conv_042"))
func WithConversationForList(conversationID string) ListOption {
	return func(opts *ListOptions) {
		opts.ConversationID = conversationID
	}
}

// WithMemoryTypeForList filters ListMemories to one retention tier.
//
// Example:
//
//	memories, _ := client.ListMemories(ctx, "user_001",
//	    core.WithMemoryTypeForList(core.TierUniversal))
func WithMemoryTypeForList(memoryType string) ListOption {
	return func(opts *ListOptions) {
		opts.MemoryType = memoryType
	}
}

// WithLimitForList sets the maximum number of results for ListMemories.
//
// Example:
//
//	memories, _ := client.ListMemories(ctx, "user_001", core.WithLimitForList(50))
func WithLimitForList(limit int) ListOption {
	return func(opts *ListOptions) {
		opts.Limit = limit
	}
}

// WithOffsetForList sets the offset for ListMemories (for pagination).
//
// Example:
//
//	// Get second page of results
//	memories, _ := client.ListMemories(ctx, "user_001",
//	    core.WithLimitForList(50),
//	    core.WithOffsetForList(50),
//	)
func WithOffsetForList(offset int) ListOption {
	return func(opts *ListOptions) {
		opts.Offset = offset
	}
}

// WithExpiredForList includes expired memories in ListMemories results.
//
// Example:
//
//	memories, _ := client.ListMemories(ctx, "user_001", core.WithExpiredForList(true))
func WithExpiredForList(include bool) ListOption {
	return func(opts *ListOptions) {
		opts.IncludeExpired = include
	}
}

// applyEmbedOptions applies Embed options to create EmbedOptions.
func applyEmbedOptions(opts []EmbedOption) *EmbedOptions {
	options := &EmbedOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applySearchOptions applies Search options to create SearchOptions.
func applySearchOptions(opts []SearchOption) *SearchOptions {
	options := &SearchOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// applyListOptions applies List options to create ListOptions.
func applyListOptions(opts []ListOption) *ListOptions {
	options := &ListOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
