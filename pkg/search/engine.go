package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/studyloop/recall/pkg/embedding"
	"github.com/studyloop/recall/pkg/metrics"
	"github.com/studyloop/recall/pkg/storage"
)

const (
	defaultLimit = 10

	// candidateLimit bounds how many rows the lexical path loads for
	// scoring.
	candidateLimit = 200
)

// Engine retrieves memories by vector similarity, lexical overlap, or both.
//
// The engine holds the shared embedding service; it never owns provider
// state of its own. A healthy-but-empty search returns an empty result set,
// not an error. Errors surface only when the attempted path (and, in
// hybrid mode, the lexical fallback behind it) hits a hard failure such as
// an unreachable store.
type Engine struct {
	store      storage.Store
	embeddings *embedding.Service

	defaultMinSimilarity float64

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// EngineConfig carries search defaults from configuration.
type EngineConfig struct {
	// DefaultMinSimilarity applies when a call leaves MinSimilarity unset.
	DefaultMinSimilarity float64
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine creates a search engine over the given store and embedding
// service.
func NewEngine(store storage.Store, embeddings *embedding.Service, cfg EngineConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		store:                store,
		embeddings:           embeddings,
		defaultMinSimilarity: cfg.DefaultMinSimilarity,
		logger:               slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search retrieves a user's memories ranked by similarity to the query.
//
// Mode selection follows opts.Mode (hybrid by default). Post-filtering
// order: minimum similarity, tag intersection, sort descending, truncate
// to limit, then the optional context-level diversity filter.
func (e *Engine) Search(ctx context.Context, userID, query string, opts *Options) (*Response, error) {
	if opts == nil {
		opts = &Options{}
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeHybrid
	}

	start := time.Now()
	resp, err := e.search(ctx, userID, query, mode, opts)
	e.metrics.RecordSearchDuration(string(mode), time.Since(start))
	if err != nil {
		e.metrics.RecordSearch(string(mode), "error")
		return nil, err
	}
	e.metrics.RecordSearch(string(mode), "success")
	return resp, nil
}

func (e *Engine) search(ctx context.Context, userID, query string, mode Mode, opts *Options) (*Response, error) {
	switch mode {
	case ModeVector:
		results, err := e.vectorSearch(ctx, userID, query, opts)
		if err != nil {
			return nil, err
		}
		return &Response{Results: results, Mode: ModeVector}, nil

	case ModeText:
		results, err := e.lexicalSearch(ctx, userID, query, opts)
		if err != nil {
			return nil, err
		}
		return &Response{Results: results, Mode: ModeText}, nil

	default:
		results, err := e.vectorSearch(ctx, userID, query, opts)
		if err == nil {
			return &Response{Results: results, Mode: ModeHybrid}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		e.logger.Warn("vector search unavailable, using lexical fallback",
			"user_id", userID,
			"error", err)

		results, lexErr := e.lexicalSearch(ctx, userID, query, opts)
		if lexErr != nil {
			return nil, lexErr
		}
		return &Response{Results: results, Mode: ModeHybrid, FallbackUsed: true}, nil
	}
}

// vectorSearch embeds the query and runs the store's similarity query.
// Both failure kinds wrap ErrVectorSearchUnavailable so hybrid mode can
// recognize them as fallback triggers.
func (e *Engine) vectorSearch(ctx context.Context, userID, query string, opts *Options) ([]Result, error) {
	embedded, err := e.embeddings.Generate(ctx, embedding.Request{Texts: []string{query}})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrVectorSearchUnavailable, err)
	}

	limit := e.limit(opts)
	fetch := limit
	if len(opts.Tags) > 0 {
		// Tag filtering happens after the store query; fetch extra so the
		// filtered list can still fill the limit.
		fetch = limit * 4
	}

	rows, err := e.store.SearchSimilar(ctx, embedded.Vectors[0], &storage.SearchOptions{
		UserID:         userID,
		ConversationID: opts.ConversationID,
		Limit:          fetch,
		MinSimilarity:  e.minSimilarity(opts),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", ErrVectorSearchUnavailable, err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Memory:     row,
			Similarity: row.Score,
			Relevance:  blendRelevance(row.Score, row.RelevanceScore),
		})
	}
	return e.postFilter(results, opts), nil
}

// lexicalSearch loads candidate rows and scores them with the overlap
// heuristic. The only hard failure is the store being unreachable.
func (e *Engine) lexicalSearch(ctx context.Context, userID, query string, opts *Options) ([]Result, error) {
	rows, err := e.store.Candidates(ctx, &storage.CandidateOptions{
		UserID:         userID,
		ConversationID: opts.ConversationID,
		Limit:          candidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("search: load candidates: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		score := lexicalScore(query, memoryText(row))
		if score <= 0 {
			continue
		}
		results = append(results, Result{
			Memory:     row,
			Similarity: score,
			Relevance:  blendRelevance(score, row.RelevanceScore),
		})
	}
	return e.postFilter(results, opts), nil
}

// postFilter applies the shared post-processing pipeline: minimum
// similarity, tag intersection, descending sort, limit, context level.
func (e *Engine) postFilter(results []Result, opts *Options) []Result {
	minSim := e.minSimilarity(opts)
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Similarity < minSim {
			continue
		}
		if len(opts.Tags) > 0 && !tagsIntersect(r.Memory.Interaction.Tags, opts.Tags) {
			continue
		}
		filtered = append(filtered, r)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Similarity != filtered[j].Similarity {
			return filtered[i].Similarity > filtered[j].Similarity
		}
		return filtered[i].Relevance > filtered[j].Relevance
	})

	filtered = truncate(filtered, e.limit(opts))
	return applyContextLevel(filtered, opts.ContextLevel)
}

func (e *Engine) limit(opts *Options) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return defaultLimit
}

func (e *Engine) minSimilarity(opts *Options) float64 {
	if opts.MinSimilarity > 0 {
		return opts.MinSimilarity
	}
	return e.defaultMinSimilarity
}

func tagsIntersect(memoryTags, wantTags []string) bool {
	for _, want := range wantTags {
		for _, have := range memoryTags {
			if have == want {
				return true
			}
		}
	}
	return false
}
