package core_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall/pkg/core"
	"github.com/studyloop/recall/pkg/embedder"
	"github.com/studyloop/recall/pkg/intelligence"
	"github.com/studyloop/recall/pkg/storage"
	"github.com/studyloop/recall/pkg/storage/sqlite"
)

// fakeProvider returns a fixed vector for every text, or a permanent error.
type fakeProvider struct {
	err error
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-embed-v1" }

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{1, 0, 0}
	}
	return vectors, nil
}

func (f *fakeProvider) Dimensions() int { return 3 }
func (f *fakeProvider) Close() error    { return nil }

func testConfig() *core.Config {
	return &core.Config{
		Storage:   core.StorageConfig{Provider: "sqlite"},
		Embedders: []core.EmbedderConfig{{Provider: "fake"}},
		Embedding: core.EmbeddingConfig{DefaultProvider: "fake"},
	}
}

// newTestClient builds a client over a temp-file sqlite store and a fake
// embedding provider. The store is returned for direct row manipulation.
func newTestClient(t *testing.T, provider embedder.Provider) (*core.Client, *sqlite.Client) {
	t.Helper()

	store, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "recall.db"),
	})
	require.NoError(t, err)

	registry := embedder.NewRegistry()
	registry.Register(provider)

	client, err := core.NewClient(testConfig(),
		core.WithStore(store),
		core.WithRegistry(registry),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, store
}

func TestWriteMemoryUniversal(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	memory, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:         "user_001",
		ConversationID: "conv_1",
		Content:        "My name is Alex",
	})
	require.NoError(t, err)

	assert.NotZero(t, memory.ID)
	assert.Equal(t, core.TierUniversal, memory.MemoryType)
	assert.Equal(t, core.RetentionPermanent, memory.Interaction.Retention)
	assert.Equal(t, core.PriorityHigh, memory.Interaction.Priority)
	assert.Equal(t, []float64{1, 0, 0}, memory.Embedding)
	assert.Greater(t, memory.QualityScore, 0.0)
	assert.Greater(t, memory.RelevanceScore, 0.0)
	assert.WithinDuration(t, time.Now().Add(365*24*time.Hour), memory.ExpiresAt, time.Minute)
}

func TestWriteMemorySession(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})

	memory, err := client.WriteMemory(context.Background(), &core.WriteInput{
		UserID:         "user_001",
		ConversationID: "conv_1",
		Content:        "Can you show another example?",
	})
	require.NoError(t, err)

	assert.Equal(t, core.TierSession, memory.MemoryType)
	assert.Equal(t, "conv_1", memory.ConversationID)
	// Session memories are never embedded.
	assert.Nil(t, memory.Embedding)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), memory.ExpiresAt, time.Minute)
}

func TestWriteMemoryOverrides(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})

	memory, err := client.WriteMemory(context.Background(), &core.WriteInput{
		UserID:         "user_001",
		ConversationID: "conv_1",
		Content:        "My name is Alex",
		MemoryType:     core.TierSession,
		Retention:      core.RetentionShortTerm,
		Priority:       core.PriorityLow,
	})
	require.NoError(t, err)

	assert.Equal(t, core.TierSession, memory.MemoryType)
	assert.Equal(t, core.RetentionShortTerm, memory.Interaction.Retention)
	assert.Equal(t, core.PriorityLow, memory.Interaction.Priority)
	assert.Nil(t, memory.Embedding)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), memory.ExpiresAt, time.Minute)
}

func TestWriteMemoryRejectsSessionOverrideWithoutConversation(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})

	_, err := client.WriteMemory(context.Background(), &core.WriteInput{
		UserID:     "user_001",
		Content:    "remember this for later",
		MemoryType: core.TierSession,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

// sessionClassifier always picks the session tier, regardless of whether a
// conversation exists to scope it.
type sessionClassifier struct{}

func (sessionClassifier) Classify(context.Context, intelligence.Signals) intelligence.Classification {
	return intelligence.Classification{
		Tier:      core.TierSession,
		Priority:  core.PriorityMedium,
		Retention: core.RetentionLongTerm,
		Kind:      core.KindGeneral,
		Reason:    "always session",
	}
}

func TestWriteMemoryKeepsClassifierSessionTierReachable(t *testing.T) {
	store, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "recall.db"),
	})
	require.NoError(t, err)

	registry := embedder.NewRegistry()
	registry.Register(&fakeProvider{})

	client, err := core.NewClient(testConfig(),
		core.WithStore(store),
		core.WithRegistry(registry),
		core.WithClassifier(sessionClassifier{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	memory, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:  "user_001",
		Content: "remember this for later",
	})
	require.NoError(t, err)

	// Without a conversation the session pick is kept universal, so the
	// row stays inside the retrieval scope.
	assert.Equal(t, core.TierUniversal, memory.MemoryType)

	resp, err := client.SearchMemories(ctx, "user_001", "remember this for later")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, memory.ID, resp.Results[0].Memory.ID)

	// With a conversation the classifier's session pick stands.
	scoped, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:         "user_001",
		ConversationID: "conv_1",
		Content:        "remember this too",
	})
	require.NoError(t, err)
	assert.Equal(t, core.TierSession, scoped.MemoryType)
}

func TestWriteMemoryValidation(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	_, err := client.WriteMemory(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.WriteMemory(ctx, &core.WriteInput{Content: "no user"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.WriteMemory(ctx, &core.WriteInput{UserID: "user_001", Content: "   "})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestWriteMemorySurvivesEmbeddingFailure(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{err: errors.New("invalid api key")})

	memory, err := client.WriteMemory(context.Background(), &core.WriteInput{
		UserID:  "user_001",
		Content: "My name is Alex",
	})
	require.NoError(t, err)

	// The write lands without a vector; retrieval degrades to lexical.
	assert.Equal(t, core.TierUniversal, memory.MemoryType)
	assert.Nil(t, memory.Embedding)

	got, err := client.GetMemory(context.Background(), "user_001", memory.ID)
	require.NoError(t, err)
	assert.Equal(t, "My name is Alex", got.Interaction.Content)
}

func TestUpdateMemory(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	memory, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:  "user_001",
		Content: "My name is Alex",
		Topic:   "introductions",
	})
	require.NoError(t, err)
	originalUpdatedAt := memory.UpdatedAt
	originalExpiry := memory.ExpiresAt

	content := "My name is Alexandra"
	topic := "names"
	updated, err := client.UpdateMemory(ctx, "user_001", memory.ID, &core.UpdateInput{
		Content: &content,
		Topic:   &topic,
		Context: map[string]interface{}{"source": "correction"},
	})
	require.NoError(t, err)

	assert.Equal(t, "My name is Alexandra", updated.Interaction.Content)
	assert.Equal(t, "names", updated.Interaction.Topic)
	assert.Equal(t, "correction", updated.Interaction.Context["source"])

	require.NotNil(t, updated.Interaction.Provenance)
	assert.Equal(t, 1, updated.Interaction.Provenance.Revision)
	require.NotNil(t, updated.Interaction.Provenance.PreviousUpdatedAt)
	assert.WithinDuration(t, originalUpdatedAt, *updated.Interaction.Provenance.PreviousUpdatedAt, time.Second)

	// The expiry is derived once at creation and never recomputed.
	assert.WithinDuration(t, originalExpiry, updated.ExpiresAt, time.Second)

	got, err := client.GetMemory(ctx, "user_001", memory.ID)
	require.NoError(t, err)
	assert.Equal(t, "My name is Alexandra", got.Interaction.Content)
	assert.Equal(t, 1, got.Interaction.Provenance.Revision)
}

func TestUpdateMemorySecondRevision(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	memory, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:  "user_001",
		Content: "My name is Alex",
	})
	require.NoError(t, err)

	topic := "names"
	_, err = client.UpdateMemory(ctx, "user_001", memory.ID, &core.UpdateInput{Topic: &topic})
	require.NoError(t, err)

	response := "Nice to meet you"
	updated, err := client.UpdateMemory(ctx, "user_001", memory.ID, &core.UpdateInput{Response: &response})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Interaction.Provenance.Revision)
	assert.Equal(t, "names", updated.Interaction.Topic)
	assert.Equal(t, "Nice to meet you", updated.Interaction.Response)
}

func TestUpdateMemoryOwnership(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	memory, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:  "user_001",
		Content: "My name is Alex",
	})
	require.NoError(t, err)

	topic := "names"
	_, err = client.UpdateMemory(ctx, "user_002", memory.ID, &core.UpdateInput{Topic: &topic})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSearchMemories(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	for _, content := range []string{"My name is Alex", "I prefer visual explanations"} {
		_, err := client.WriteMemory(ctx, &core.WriteInput{UserID: "user_001", Content: content})
		require.NoError(t, err)
	}

	resp, err := client.SearchMemories(ctx, "user_001", "what do you know about me")
	require.NoError(t, err)

	assert.Equal(t, core.SearchModeHybrid, resp.Mode)
	assert.False(t, resp.FallbackUsed)
	require.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		// Every fake vector is identical, so similarity is exact.
		assert.InDelta(t, 1.0, r.Similarity, 1e-9)
		assert.InDelta(t, r.Similarity, r.Memory.Score, 1e-9)
		assert.Greater(t, r.Relevance, 0.0)
	}
}

func TestSearchMemoriesTextMode(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	_, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:  "user_001",
		Content: "I prefer visual explanations",
	})
	require.NoError(t, err)

	resp, err := client.SearchMemories(ctx, "user_001", "visual explanations",
		core.WithSearchMode(core.SearchModeText))
	require.NoError(t, err)

	assert.Equal(t, core.SearchModeText, resp.Mode)
	assert.False(t, resp.FallbackUsed)
	require.NotEmpty(t, resp.Results)
	// Verbatim containment pins the lexical score.
	assert.InDelta(t, 0.9, resp.Results[0].Similarity, 1e-9)
}

func TestSearchMemoriesFallback(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{err: errors.New("invalid api key")})
	ctx := context.Background()

	_, err := client.WriteMemory(ctx, &core.WriteInput{
		UserID:  "user_001",
		Content: "I prefer visual explanations",
	})
	require.NoError(t, err)

	resp, err := client.SearchMemories(ctx, "user_001", "visual explanations")
	require.NoError(t, err)

	assert.True(t, resp.FallbackUsed)
	require.NotEmpty(t, resp.Results)
}

func TestSearchMemoriesValidation(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	_, err := client.SearchMemories(ctx, "", "query")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = client.SearchMemories(ctx, "user_001", "  ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestListAndDelete(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	first, err := client.WriteMemory(ctx, &core.WriteInput{UserID: "user_001", Content: "My name is Alex"})
	require.NoError(t, err)
	_, err = client.WriteMemory(ctx, &core.WriteInput{
		UserID:         "user_001",
		ConversationID: "conv_1",
		Content:        "Can you show another example?",
	})
	require.NoError(t, err)

	memories, err := client.ListMemories(ctx, "user_001")
	require.NoError(t, err)
	assert.Len(t, memories, 2)

	universal, err := client.ListMemories(ctx, "user_001",
		core.WithMemoryTypeForList(core.TierUniversal))
	require.NoError(t, err)
	require.Len(t, universal, 1)
	assert.Equal(t, first.ID, universal[0].ID)

	require.NoError(t, client.DeleteMemory(ctx, "user_001", first.ID))
	_, err = client.GetMemory(ctx, "user_001", first.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, client.DeleteMemory(ctx, "user_001", first.ID), core.ErrNotFound)
}

func TestPurgeExpired(t *testing.T) {
	client, store := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	_, err := client.WriteMemory(ctx, &core.WriteInput{UserID: "user_001", Content: "My name is Alex"})
	require.NoError(t, err)

	expired := &storage.Memory{
		ID:         999,
		UserID:     "user_001",
		MemoryType: storage.TierUniversal,
		Interaction: storage.InteractionData{
			Content:   "stale",
			Retention: storage.RetentionSession,
		},
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Insert(ctx, expired))

	purged, err := client.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestClientClosed(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	_, err := client.WriteMemory(ctx, &core.WriteInput{UserID: "user_001", Content: "x"})
	assert.ErrorIs(t, err, core.ErrClosed)

	_, err = client.SearchMemories(ctx, "user_001", "x")
	assert.ErrorIs(t, err, core.ErrClosed)

	_, err = client.EmbedTexts(ctx, []string{"x"})
	assert.ErrorIs(t, err, core.ErrClosed)

	_, err = client.ListMemories(ctx, "user_001")
	assert.ErrorIs(t, err, core.ErrClosed)
}

func TestEmbedTexts(t *testing.T) {
	client, _ := newTestClient(t, &fakeProvider{})
	ctx := context.Background()

	result, err := client.EmbedTexts(ctx, []string{"photosynthesis"})
	require.NoError(t, err)

	assert.Equal(t, "fake", result.Provider)
	assert.Equal(t, "fake-embed-v1", result.Model)
	assert.Equal(t, 3, result.Dimensions)
	require.Len(t, result.Vectors, 1)
	assert.False(t, result.CacheHit)
	assert.NotEmpty(t, result.RequestID)

	again, err := client.EmbedTexts(ctx, []string{"photosynthesis"})
	require.NoError(t, err)
	assert.True(t, again.CacheHit)
	assert.Zero(t, again.EstimatedCost)
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	_, err := core.NewClient(&core.Config{})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
