// Package storage provides interfaces and types for memory persistence backends.
//
// It defines the Store interface that all backends must satisfy, along with the
// persisted memory record, retention policies, and query options.
package storage

import (
	"context"
	"errors"
	"time"
)

// Memory tiers. Session memories belong to exactly one conversation and are
// retrieved by exact (user, conversation) match; universal memories are
// retrieved by similarity across all of a user's conversations.
const (
	TierSession   = "session"
	TierUniversal = "universal"
)

// Retention policies controlling how long a memory remains valid.
const (
	RetentionSession   = "session"
	RetentionShortTerm = "short_term"
	RetentionLongTerm  = "long_term"
	RetentionPermanent = "permanent"
)

// Priorities attached to a memory's interaction payload.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ErrNotFound is returned when a memory does not exist or is owned by a
// different user than the one asking.
var ErrNotFound = errors.New("memory not found")

// ErrDimensionMismatch is returned by SearchSimilar when a stored vector's
// dimensionality differs from the query vector's. A mismatched vector is an
// error, never a silent zero-similarity result.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// RetentionWindow returns the validity window for a retention policy.
//
// The windows are fixed: session 24h, short_term 7d, long_term 30d,
// permanent 365d. "Permanent" is a long but finite window, not indefinite.
// Unknown policies fall back to the long_term window.
func RetentionWindow(retention string) time.Duration {
	switch retention {
	case RetentionSession:
		return 24 * time.Hour
	case RetentionShortTerm:
		return 7 * 24 * time.Hour
	case RetentionLongTerm:
		return 30 * 24 * time.Hour
	case RetentionPermanent:
		return 365 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// StampNew fills the timestamp fields of a memory about to be inserted.
// CreatedAt and UpdatedAt default to now; ExpiresAt is derived from the
// interaction's retention policy. Fields already set are left alone, so
// callers that computed timestamps themselves keep them.
func StampNew(m *Memory, now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	if m.ExpiresAt.IsZero() {
		m.ExpiresAt = m.CreatedAt.Add(RetentionWindow(m.Interaction.Retention))
	}
}

// Memory is the persisted record for one chat turn.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package, which exposes a mirrored public type.
type Memory struct {
	// ID is the unique identifier of the memory.
	ID int64

	// UserID identifies the user who owns this memory.
	UserID string

	// ConversationID scopes session memories to one conversation.
	// Empty for universal memories written outside a conversation.
	ConversationID string

	// MemoryType is the retention tier: TierSession or TierUniversal.
	MemoryType string

	// Interaction is the structured payload captured from the chat turn.
	Interaction InteractionData

	// QualityScore estimates how useful this memory is (0.0-1.0).
	QualityScore float64

	// RelevanceScore estimates retrieval importance (0.0-1.0).
	RelevanceScore float64

	// Embedding is the vector representation of the content.
	// Nil until computed; only universal memories are embedded.
	Embedding []float64

	// CreatedAt is when the memory was created.
	CreatedAt time.Time

	// UpdatedAt is when the memory was last updated.
	UpdatedAt time.Time

	// ExpiresAt is derived once at creation from the retention policy
	// and never recomputed.
	ExpiresAt time.Time

	// Score is the similarity score from search operations. Not persisted.
	Score float64
}

// InteractionData is the free-form payload of a memory, persisted as JSON
// in the interaction_data column.
type InteractionData struct {
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

// Provenance is stamped on every update so the previous revision's timestamp
// is retained rather than discarded.
type Provenance struct {
	// Revision counts updates applied to this memory.
	Revision int `json:"revision"`

	// PreviousUpdatedAt is the updated_at value the record carried before
	// the most recent update.
	PreviousUpdatedAt *time.Time `json:"previous_updated_at,omitempty"`
}

// Store defines the interface for memory persistence backends.
//
// All backends (Postgres, SQLite, MySQL) must implement this interface.
// A single Insert or Update is atomic: a row is either fully persisted or
// not persisted at all.
type Store interface {
	// Insert persists a new memory.
	Insert(ctx context.Context, m *Memory) error

	// Get retrieves a memory by ID.
	//
	// When opts.UserID is set the memory is returned only if it belongs to
	// that user; otherwise ErrNotFound is returned. Absent and foreign-owned
	// rows are indistinguishable to the caller.
	Get(ctx context.Context, id int64, opts *GetOptions) (*Memory, error)

	// Update replaces the stored payload, scores, and embedding of an
	// existing memory. ErrNotFound when the row is absent or owned by a
	// different user than opts.UserID.
	Update(ctx context.Context, m *Memory, opts *UpdateOptions) error

	// Delete removes a memory by ID, honoring opts.UserID ownership.
	Delete(ctx context.Context, id int64, opts *DeleteOptions) error

	// List retrieves memories by user and optional conversation/tier filters,
	// newest first, with pagination.
	List(ctx context.Context, opts *ListOptions) ([]*Memory, error)

	// SearchSimilar performs vector similarity search over a user's
	// unexpired memories and returns them ordered by similarity (highest
	// first) with Score populated.
	//
	// The scope is the user's universal memories, plus the session memories
	// of opts.ConversationID when it is set. All stored vectors compared in
	// one call must match the query vector's dimensionality; a scoped row
	// with a different dimensionality reports ErrDimensionMismatch.
	SearchSimilar(ctx context.Context, embedding []float64, opts *SearchOptions) ([]*Memory, error)

	// Candidates returns a user's unexpired memories for lexical scoring,
	// newest first: universal rows plus the session rows of
	// opts.ConversationID when set. Score is left zero.
	Candidates(ctx context.Context, opts *CandidateOptions) ([]*Memory, error)

	// PurgeExpired deletes rows whose expires_at is before the given time
	// and reports how many were removed. Called by an external scheduler.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)

	// CreateIndex creates a vector index over the embedding column where the
	// backend supports one; backends without server-side vector search
	// return nil without effect.
	CreateIndex(ctx context.Context, cfg *IndexConfig) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// GetOptions controls access checks for Get.
type GetOptions struct {
	// UserID restricts access to memories owned by this user.
	UserID string
}

// UpdateOptions controls access checks for Update.
type UpdateOptions struct {
	// UserID restricts updates to memories owned by this user.
	UserID string
}

// DeleteOptions controls access checks for Delete.
type DeleteOptions struct {
	// UserID restricts deletions to memories owned by this user.
	UserID string
}

// ListOptions filters and paginates List.
type ListOptions struct {
	// UserID filters to a specific user. Required.
	UserID string

	// ConversationID filters to one conversation's session memories.
	ConversationID string

	// MemoryType filters to one tier (TierSession or TierUniversal).
	MemoryType string

	// IncludeExpired includes rows past their expires_at.
	IncludeExpired bool

	// Limit caps the number of rows returned. Default 100.
	Limit int

	// Offset skips rows for pagination.
	Offset int
}

// SearchOptions controls SearchSimilar.
type SearchOptions struct {
	// UserID restricts the search to one user's memories. Required.
	UserID string

	// ConversationID additionally admits that conversation's session
	// memories into the scope.
	ConversationID string

	// Limit caps the number of results. Default 10.
	Limit int

	// MinSimilarity drops results scoring below this threshold.
	MinSimilarity float64
}

// CandidateOptions controls Candidates.
type CandidateOptions struct {
	// UserID restricts candidates to one user's memories. Required.
	UserID string

	// ConversationID additionally admits that conversation's session
	// memories.
	ConversationID string

	// Limit caps the number of candidate rows loaded. Default 200.
	Limit int
}

// IndexConfig configures CreateIndex.
type IndexConfig struct {
	// Name is the index name. A default is derived from the table name
	// when empty.
	Name string

	// Type selects the index algorithm: "hnsw" or "ivfflat".
	Type string

	// M is the HNSW per-node connection count.
	M int

	// EfConstruction is the HNSW build-time search depth.
	EfConstruction int

	// Lists is the ivfflat cluster count.
	Lists int
}
