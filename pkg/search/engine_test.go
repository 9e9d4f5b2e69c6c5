package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall/pkg/embedder"
	"github.com/studyloop/recall/pkg/embedding"
	"github.com/studyloop/recall/pkg/storage"
)

// stubProvider is a fixed-vector embedder for engine tests.
type stubProvider struct {
	err error
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Model() string   { return "stub-model" }
func (s *stubProvider) Dimensions() int { return 3 }
func (s *stubProvider) Close() error    { return nil }

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0, 0}
	}
	return vectors, nil
}

// stubStore serves canned rows and records the options it was called with.
type stubStore struct {
	storage.Store

	similarRows []*storage.Memory
	similarErr  error
	similarOpts *storage.SearchOptions

	candidateRows []*storage.Memory
	candidateErr  error
	candidateOpts *storage.CandidateOptions
}

func (s *stubStore) SearchSimilar(_ context.Context, _ []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	s.similarOpts = opts
	return s.similarRows, s.similarErr
}

func (s *stubStore) Candidates(_ context.Context, opts *storage.CandidateOptions) ([]*storage.Memory, error) {
	s.candidateOpts = opts
	return s.candidateRows, s.candidateErr
}

func newTestEngine(t *testing.T, store storage.Store, provider embedder.Provider, cfg EngineConfig) *Engine {
	t.Helper()

	registry := embedder.NewRegistry()
	registry.Register(provider)

	cache, err := embedding.NewMemoryCache(10, time.Minute)
	require.NoError(t, err)

	svc := embedding.NewService(
		embedding.Config{DefaultProvider: provider.Name()},
		registry,
		cache,
		embedding.NewMonitor(registry, embedding.MonitorConfig{}, nil),
		embedding.NewUsageTracker(nil),
	)

	return NewEngine(store, svc, cfg)
}

func scoredMemory(id int64, score, relevance float64, content string) *storage.Memory {
	return &storage.Memory{
		ID:             id,
		UserID:         "user_001",
		MemoryType:     storage.TierUniversal,
		RelevanceScore: relevance,
		Score:          score,
		Interaction:    storage.InteractionData{Content: content},
	}
}

func TestSearchVectorMode(t *testing.T) {
	store := &stubStore{
		similarRows: []*storage.Memory{
			scoredMemory(1, 0.95, 0.8, "visual explanations work for me"),
			scoredMemory(2, 0.70, 0.5, "integration by parts"),
		},
	}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{})

	resp, err := engine.Search(context.Background(), "user_001", "how do I learn", &Options{Mode: ModeVector})
	require.NoError(t, err)

	assert.Equal(t, ModeVector, resp.Mode)
	assert.False(t, resp.FallbackUsed)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, int64(1), resp.Results[0].Memory.ID)
	assert.InDelta(t, 0.95, resp.Results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.7*0.95+0.3*0.8, resp.Results[0].Relevance, 1e-9)

	assert.Equal(t, "user_001", store.similarOpts.UserID)
}

func TestSearchVectorModeFailsHard(t *testing.T) {
	store := &stubStore{}
	engine := newTestEngine(t, store, &stubProvider{err: errors.New("invalid api key")}, EngineConfig{})

	_, err := engine.Search(context.Background(), "user_001", "query", &Options{Mode: ModeVector})
	assert.ErrorIs(t, err, ErrVectorSearchUnavailable)
}

func TestSearchTextMode(t *testing.T) {
	store := &stubStore{
		candidateRows: []*storage.Memory{
			scoredMemory(1, 0, 0.6, "I prefer visual explanations"),
			scoredMemory(2, 0, 0.4, "pasta recipe from last week"),
		},
	}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{})

	resp, err := engine.Search(context.Background(), "user_001", "visual explanations", &Options{Mode: ModeText})
	require.NoError(t, err)

	assert.Equal(t, ModeText, resp.Mode)
	// The unrelated memory scores zero and is dropped.
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(1), resp.Results[0].Memory.ID)
	assert.InDelta(t, 0.9, resp.Results[0].Similarity, 1e-9)
}

func TestSearchHybridFallsBackToLexical(t *testing.T) {
	store := &stubStore{
		candidateRows: []*storage.Memory{
			scoredMemory(1, 0, 0.6, "I prefer visual explanations"),
		},
	}
	engine := newTestEngine(t, store, &stubProvider{err: errors.New("provider down")}, EngineConfig{})

	resp, err := engine.Search(context.Background(), "user_001", "visual explanations", nil)
	require.NoError(t, err)

	assert.Equal(t, ModeHybrid, resp.Mode)
	assert.True(t, resp.FallbackUsed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(1), resp.Results[0].Memory.ID)
}

func TestSearchHybridPrefersVector(t *testing.T) {
	store := &stubStore{
		similarRows: []*storage.Memory{
			scoredMemory(1, 0.9, 0.5, "vector match"),
		},
		candidateRows: []*storage.Memory{
			scoredMemory(2, 0, 0.5, "lexical match"),
		},
	}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{})

	resp, err := engine.Search(context.Background(), "user_001", "anything", nil)
	require.NoError(t, err)

	assert.False(t, resp.FallbackUsed)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(1), resp.Results[0].Memory.ID)
}

func TestSearchHybridBothPathsFail(t *testing.T) {
	store := &stubStore{
		candidateErr: errors.New("store unreachable"),
	}
	engine := newTestEngine(t, store, &stubProvider{err: errors.New("provider down")}, EngineConfig{})

	_, err := engine.Search(context.Background(), "user_001", "query", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unreachable")
}

func TestSearchMinSimilarityFilter(t *testing.T) {
	store := &stubStore{
		similarRows: []*storage.Memory{
			scoredMemory(1, 0.9, 0.5, "strong match"),
			scoredMemory(2, 0.2, 0.5, "weak match"),
		},
	}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{})

	resp, err := engine.Search(context.Background(), "user_001", "query", &Options{
		Mode:          ModeVector,
		MinSimilarity: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(1), resp.Results[0].Memory.ID)
}

func TestSearchDefaultMinSimilarity(t *testing.T) {
	store := &stubStore{
		similarRows: []*storage.Memory{
			scoredMemory(1, 0.9, 0.5, "strong"),
			scoredMemory(2, 0.3, 0.5, "weak"),
		},
	}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{DefaultMinSimilarity: 0.5})

	resp, err := engine.Search(context.Background(), "user_001", "query", &Options{Mode: ModeVector})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
}

func TestSearchTagFilter(t *testing.T) {
	tagged := scoredMemory(1, 0.9, 0.5, "calculus notes")
	tagged.Interaction.Tags = []string{"calculus", "derivatives"}
	untagged := scoredMemory(2, 0.8, 0.5, "general notes")

	store := &stubStore{similarRows: []*storage.Memory{tagged, untagged}}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{})

	resp, err := engine.Search(context.Background(), "user_001", "query", &Options{
		Mode: ModeVector,
		Tags: []string{"calculus"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(1), resp.Results[0].Memory.ID)

	// Tag filtering over-fetches so the filtered list can still fill the
	// limit.
	assert.Equal(t, defaultLimit*4, store.similarOpts.Limit)
}

func TestSearchLimitAndContextLevel(t *testing.T) {
	rows := make([]*storage.Memory, 6)
	for i := range rows {
		rows[i] = scoredMemory(int64(i+1), 0.9-float64(i)*0.05, 0.5, "match")
	}
	store := &stubStore{similarRows: rows}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{})

	resp, err := engine.Search(context.Background(), "user_001", "query", &Options{
		Mode:         ModeVector,
		Limit:        5,
		ContextLevel: ContextLight,
	})
	require.NoError(t, err)

	// Limit truncates to 5, then the light level keeps the top 2.
	require.Len(t, resp.Results, 2)
	assert.Equal(t, int64(1), resp.Results[0].Memory.ID)
	assert.Equal(t, int64(2), resp.Results[1].Memory.ID)
}

func TestSearchCancelledContext(t *testing.T) {
	store := &stubStore{}
	engine := newTestEngine(t, store, &stubProvider{}, EngineConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Search(ctx, "user_001", "query", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
