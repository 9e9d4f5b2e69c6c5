// Package search implements memory retrieval over the persistent store:
// vector similarity through the embedding service, a lexical fallback that
// works without any provider, and a hybrid mode that degrades from one to
// the other.
package search

import (
	"errors"

	"github.com/studyloop/recall/pkg/storage"
)

// Search modes.
type Mode string

const (
	// ModeVector embeds the query and runs a similarity query. Fails hard
	// when embedding or the vector query fails.
	ModeVector Mode = "vector"

	// ModeText runs the lexical algorithm directly, skipping embedding.
	ModeText Mode = "text"

	// ModeHybrid attempts vector search and falls back to lexical on any
	// failure. This is the default.
	ModeHybrid Mode = "hybrid"
)

// Context levels controlling the diversity filter.
const (
	ContextLight         = "light"
	ContextBalanced      = "balanced"
	ContextComprehensive = "comprehensive"
)

// ErrVectorSearchUnavailable wraps embedding or vector-query failures. In
// hybrid mode it triggers the lexical fallback; in vector mode it is
// terminal.
var ErrVectorSearchUnavailable = errors.New("search: vector search unavailable")

// Options controls one search call.
type Options struct {
	// Limit caps the number of results. Default 10.
	Limit int

	// MinSimilarity drops results scoring below this threshold.
	MinSimilarity float64

	// Tags keeps only memories whose tags intersect this set.
	Tags []string

	// ContextLevel selects the diversity filter: light, balanced, or
	// comprehensive. Empty skips the filter; any other value keeps the
	// top 3.
	ContextLevel string

	// Mode selects the search mode. Default ModeHybrid.
	Mode Mode

	// ConversationID additionally admits that conversation's session
	// memories into the search scope.
	ConversationID string
}

// Result is one retrieved memory with its computed scores. Ephemeral, never
// persisted.
type Result struct {
	// Memory is the stored record.
	Memory *storage.Memory

	// Similarity is the match score in [0,1]: cosine similarity in vector
	// mode, the lexical overlap score in text mode.
	Similarity float64

	// Relevance blends the match similarity with the memory's stored
	// relevance score.
	Relevance float64
}

// Response is the outcome of one search call.
type Response struct {
	// Results is the ranked result list, highest similarity first.
	Results []Result

	// Mode is the mode that was requested.
	Mode Mode

	// FallbackUsed reports that hybrid mode degraded to the lexical
	// algorithm. Callers can surface a degraded-quality indicator without
	// treating the search as failed.
	FallbackUsed bool
}

// blendRelevance combines the computed similarity with the stored
// relevance score, weighting the live signal over the stored one.
func blendRelevance(similarity, stored float64) float64 {
	return 0.7*similarity + 0.3*stored
}
