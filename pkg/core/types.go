// Package core provides the recall client facade over storage, embedding,
// classification, and search.
package core

import (
	"time"

	"github.com/studyloop/recall/pkg/storage"
)

// Retention tiers, priorities, retention windows, and memory kinds.
// Re-exported from the storage package so callers only import core.
const (
	// TierSession scopes a memory to one conversation.
	TierSession = storage.TierSession

	// TierUniversal makes a memory visible across all of a user's
	// conversations.
	TierUniversal = storage.TierUniversal

	PriorityLow      = storage.PriorityLow
	PriorityMedium   = storage.PriorityMedium
	PriorityHigh     = storage.PriorityHigh
	PriorityCritical = storage.PriorityCritical

	RetentionSession   = storage.RetentionSession
	RetentionShortTerm = storage.RetentionShortTerm
	RetentionLongTerm  = storage.RetentionLongTerm
	RetentionPermanent = storage.RetentionPermanent

	KindInsight    = "insight"
	KindCorrection = "correction"
	KindConcept    = "concept"
	KindPreference = "preference"
	KindGeneral    = "general"
)

// Memory is one stored chat-turn memory.
//
// A memory belongs to one user, carries a retention tier (session or
// universal), a structured interaction payload, heuristic quality and
// relevance scores, and an expiry derived once at creation.
//
// Example:
//
//	memory, err := client.WriteMemory(ctx, &core.WriteInput{
//	    UserID:  "user_001",
//	    Content: "My name is Alex and I prefer visual explanations",
//	})
type Memory struct {
	// ID is the unique identifier of the memory.
	ID int64 `json:"id"`

	// UserID identifies the user who owns this memory.
	UserID string `json:"user_id"`

	// ConversationID scopes session memories to one conversation.
	// Empty for universal memories written outside a conversation.
	ConversationID string `json:"conversation_id,omitempty"`

	// MemoryType is the retention tier: TierSession or TierUniversal.
	MemoryType string `json:"memory_type"`

	// Interaction is the structured payload captured from the chat turn.
	Interaction Interaction `json:"interaction"`

	// QualityScore estimates how useful this memory is (0.0-1.0).
	QualityScore float64 `json:"quality_score"`

	// RelevanceScore estimates retrieval importance (0.0-1.0).
	RelevanceScore float64 `json:"relevance_score"`

	// Embedding is the vector representation of the content. Nil for
	// session memories and for universal memories whose embedding could
	// not be generated at write time.
	// Omitted from JSON to reduce payload size.
	Embedding []float64 `json:"embedding,omitempty"`

	// CreatedAt is when the memory was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the memory was last updated.
	UpdatedAt time.Time `json:"updated_at"`

	// ExpiresAt is derived once at creation from the retention window
	// and never recomputed, not even by updates.
	ExpiresAt time.Time `json:"expires_at"`

	// Score is the similarity score from search operations (0.0-1.0).
	// Zero outside search results.
	Score float64 `json:"score,omitempty"`
}

// Interaction is the structured payload of one chat turn.
type Interaction struct {
	// Content is the primary text of the turn (usually the user's query).
	Content string `json:"content"`

	// Response is the assistant's answer, when captured.
	Response string `json:"response,omitempty"`

	// Message is an alternate user-message field written by some callers.
	Message string `json:"message,omitempty"`

	// Topic is the subject this turn was about.
	Topic string `json:"topic,omitempty"`

	// Tags are caller-supplied labels used for search filtering.
	Tags []string `json:"tags,omitempty"`

	// Priority is one of the Priority* constants.
	Priority string `json:"priority,omitempty"`

	// Retention is one of the Retention* constants.
	Retention string `json:"retention,omitempty"`

	// LearningObjective records the study goal active during the turn.
	LearningObjective string `json:"learning_objective,omitempty"`

	// Confidence is the upstream pipeline's confidence signal (0.0-1.0).
	Confidence float64 `json:"confidence,omitempty"`

	// ProcessingTimeMs is how long the turn took to produce.
	ProcessingTimeMs int64 `json:"processing_time_ms,omitempty"`

	// TokenCount is the turn's token usage as reported upstream.
	TokenCount int `json:"token_count,omitempty"`

	// MemoryKind categorizes the payload (insight, correction, concept,
	// preference, general). Distinct from the retention tier.
	MemoryKind string `json:"memory_kind,omitempty"`

	// Context holds additional structured fields the caller wants kept.
	Context map[string]interface{} `json:"context,omitempty"`

	// Provenance records the update trail. Nil until the first update.
	Provenance *Provenance `json:"provenance,omitempty"`
}

// Provenance is the update trail stamped onto a memory by UpdateMemory.
type Provenance struct {
	// Revision counts updates applied to this memory.
	Revision int `json:"revision"`

	// PreviousUpdatedAt is the updated_at value the record carried before
	// the most recent update.
	PreviousUpdatedAt *time.Time `json:"previous_updated_at,omitempty"`
}

// WriteInput is the payload for WriteMemory.
//
// UserID and Content are required. Tier, priority, retention, and kind are
// decided by the configured classifier unless overridden here.
type WriteInput struct {
	// UserID identifies the owner (required).
	UserID string `json:"user_id"`

	// ConversationID attaches the turn to a conversation. Without one the
	// memory cannot be session-scoped.
	ConversationID string `json:"conversation_id,omitempty"`

	// Content is the primary text of the turn (required).
	Content string `json:"content"`

	// Response is the assistant's answer, when captured.
	Response string `json:"response,omitempty"`

	// Message is an alternate user-message field.
	Message string `json:"message,omitempty"`

	// Topic is the subject this turn was about.
	Topic string `json:"topic,omitempty"`

	// Tags are labels for later search filtering.
	Tags []string `json:"tags,omitempty"`

	// MemoryType overrides the classifier's tier decision when set.
	MemoryType string `json:"memory_type,omitempty"`

	// Priority overrides the classifier's priority when set.
	Priority string `json:"priority,omitempty"`

	// Retention overrides the classifier's retention window when set.
	Retention string `json:"retention,omitempty"`

	// Kind overrides the classifier's memory kind when set.
	Kind string `json:"kind,omitempty"`

	// LearningObjective records the study goal active during the turn.
	LearningObjective string `json:"learning_objective,omitempty"`

	// Confidence is the upstream pipeline's confidence signal (0.0-1.0).
	Confidence float64 `json:"confidence,omitempty"`

	// ProcessingTimeMs is how long the turn took to produce.
	ProcessingTimeMs int64 `json:"processing_time_ms,omitempty"`

	// TokenCount is the turn's token usage as reported upstream.
	TokenCount int `json:"token_count,omitempty"`

	// Context holds additional structured fields to keep with the memory.
	Context map[string]interface{} `json:"context,omitempty"`
}

// UpdateInput carries the revisions for UpdateMemory. Nil fields are left
// unchanged; non-nil fields replace the stored value. Context entries are
// merged key by key.
type UpdateInput struct {
	Content           *string                `json:"content,omitempty"`
	Response          *string                `json:"response,omitempty"`
	Message           *string                `json:"message,omitempty"`
	Topic             *string                `json:"topic,omitempty"`
	Tags              []string               `json:"tags,omitempty"`
	Priority          *string                `json:"priority,omitempty"`
	Kind              *string                `json:"kind,omitempty"`
	LearningObjective *string                `json:"learning_objective,omitempty"`
	Confidence        *float64               `json:"confidence,omitempty"`
	Context           map[string]interface{} `json:"context,omitempty"`
}

// EmbedResult is the outcome of EmbedTexts.
type EmbedResult struct {
	// Vectors holds one embedding per input text, in input order.
	Vectors [][]float64 `json:"vectors"`

	// Provider is the identifier of the provider that produced the vectors.
	Provider string `json:"provider"`

	// Model is the model name used.
	Model string `json:"model"`

	// Dimensions is the per-vector dimensionality.
	Dimensions int `json:"dimensions"`

	// CacheHit reports whether the result came from the cache.
	CacheHit bool `json:"cache_hit"`

	// EstimatedCost approximates the provider cost of this call. Zero for
	// cache hits. Not billing-accurate.
	EstimatedCost float64 `json:"estimated_cost"`

	// RequestID identifies this call in logs.
	RequestID string `json:"request_id"`
}

// SearchResult is one scored memory from SearchMemories.
type SearchResult struct {
	// Memory is the matched memory with Score set to the similarity.
	Memory *Memory `json:"memory"`

	// Similarity is the raw similarity for the query (0.0-1.0).
	Similarity float64 `json:"similarity"`

	// Relevance blends similarity with the stored relevance score.
	Relevance float64 `json:"relevance"`
}

// SearchResponse is the outcome of SearchMemories.
type SearchResponse struct {
	// Results is sorted by descending similarity, after filtering and
	// context-level selection.
	Results []SearchResult `json:"results"`

	// Mode is the search mode that ran: "vector", "text", or "hybrid".
	Mode string `json:"mode"`

	// FallbackUsed reports that hybrid mode degraded to lexical scoring
	// because vector search was unavailable.
	FallbackUsed bool `json:"fallback_used"`
}

// WriteResult is delivered on the channel returned by WriteMemoryAsync.
type WriteResult struct {
	// Memory is the written memory, nil on failure.
	Memory *Memory

	// Error is the write failure, nil on success.
	Error error
}
