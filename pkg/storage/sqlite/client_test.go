package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall/pkg/storage"
	"github.com/studyloop/recall/pkg/storage/sqlite"
)

func newTestClient(t *testing.T) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(&sqlite.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func testMemory(id int64, userID string) *storage.Memory {
	return &storage.Memory{
		ID:         id,
		UserID:     userID,
		MemoryType: storage.TierUniversal,
		Interaction: storage.InteractionData{
			Content:   "test content",
			Topic:     "testing",
			Priority:  storage.PriorityMedium,
			Retention: storage.RetentionLongTerm,
		},
		QualityScore:   0.7,
		RelevanceScore: 0.6,
	}
}

func TestInsertAndGet(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	memory := testMemory(1, "user_001")
	memory.Embedding = []float64{0.1, 0.2, 0.3}
	require.NoError(t, client.Insert(ctx, memory))

	// Insert stamped the timestamps.
	assert.False(t, memory.CreatedAt.IsZero())
	assert.False(t, memory.ExpiresAt.IsZero())

	got, err := client.Get(ctx, 1, &storage.GetOptions{UserID: "user_001"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "user_001", got.UserID)
	assert.Equal(t, storage.TierUniversal, got.MemoryType)
	assert.Equal(t, "test content", got.Interaction.Content)
	assert.Equal(t, "testing", got.Interaction.Topic)
	assert.InDelta(t, 0.7, got.QualityScore, 1e-9)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got.Embedding)
}

func TestGetOwnership(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Insert(ctx, testMemory(1, "user_001")))

	// A different user sees the same error as a missing row.
	_, err := client.Get(ctx, 1, &storage.GetOptions{UserID: "user_002"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = client.Get(ctx, 999, &storage.GetOptions{UserID: "user_001"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	memory := testMemory(1, "user_001")
	require.NoError(t, client.Insert(ctx, memory))
	originalExpiry := memory.ExpiresAt

	memory.Interaction.Content = "revised content"
	memory.QualityScore = 0.9
	memory.Embedding = []float64{0.5, 0.5}
	require.NoError(t, client.Update(ctx, memory, &storage.UpdateOptions{UserID: "user_001"}))

	got, err := client.Get(ctx, 1, &storage.GetOptions{UserID: "user_001"})
	require.NoError(t, err)
	assert.Equal(t, "revised content", got.Interaction.Content)
	assert.InDelta(t, 0.9, got.QualityScore, 1e-9)
	assert.Equal(t, []float64{0.5, 0.5}, got.Embedding)

	// Updates never recompute the expiry.
	assert.WithinDuration(t, originalExpiry, got.ExpiresAt, time.Second)
}

func TestUpdateOwnership(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	memory := testMemory(1, "user_001")
	require.NoError(t, client.Insert(ctx, memory))

	err := client.Update(ctx, memory, &storage.UpdateOptions{UserID: "user_002"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Insert(ctx, testMemory(1, "user_001")))

	assert.ErrorIs(t,
		client.Delete(ctx, 1, &storage.DeleteOptions{UserID: "user_002"}),
		storage.ErrNotFound)

	require.NoError(t, client.Delete(ctx, 1, &storage.DeleteOptions{UserID: "user_001"}))

	assert.ErrorIs(t,
		client.Delete(ctx, 1, &storage.DeleteOptions{UserID: "user_001"}),
		storage.ErrNotFound)
}

func TestList(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := int64(1); i <= 5; i++ {
		m := testMemory(i, "user_001")
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		m.UpdatedAt = m.CreatedAt
		if i%2 == 0 {
			m.MemoryType = storage.TierSession
			m.ConversationID = "conv_1"
		}
		require.NoError(t, client.Insert(ctx, m))
	}
	require.NoError(t, client.Insert(ctx, testMemory(6, "user_002")))

	t.Run("by user newest first", func(t *testing.T) {
		memories, err := client.List(ctx, &storage.ListOptions{UserID: "user_001"})
		require.NoError(t, err)
		require.Len(t, memories, 5)
		assert.Equal(t, int64(5), memories[0].ID)
	})

	t.Run("by conversation", func(t *testing.T) {
		memories, err := client.List(ctx, &storage.ListOptions{
			UserID:         "user_001",
			ConversationID: "conv_1",
		})
		require.NoError(t, err)
		assert.Len(t, memories, 2)
	})

	t.Run("by tier", func(t *testing.T) {
		memories, err := client.List(ctx, &storage.ListOptions{
			UserID:     "user_001",
			MemoryType: storage.TierSession,
		})
		require.NoError(t, err)
		assert.Len(t, memories, 2)
	})

	t.Run("pagination", func(t *testing.T) {
		page, err := client.List(ctx, &storage.ListOptions{
			UserID: "user_001",
			Limit:  2,
			Offset: 2,
		})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, int64(3), page[0].ID)
	})
}

func TestListExcludesExpired(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	live := testMemory(1, "user_001")
	require.NoError(t, client.Insert(ctx, live))

	expired := testMemory(2, "user_001")
	expired.CreatedAt = time.Now().Add(-48 * time.Hour)
	expired.UpdatedAt = expired.CreatedAt
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, client.Insert(ctx, expired))

	memories, err := client.List(ctx, &storage.ListOptions{UserID: "user_001"})
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, int64(1), memories[0].ID)

	memories, err = client.List(ctx, &storage.ListOptions{
		UserID:         "user_001",
		IncludeExpired: true,
	})
	require.NoError(t, err)
	assert.Len(t, memories, 2)
}

func TestSearchSimilar(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	vectors := map[int64][]float64{
		1: {1, 0, 0},
		2: {0.9, 0.1, 0},
		3: {0, 1, 0},
	}
	for id, v := range vectors {
		m := testMemory(id, "user_001")
		m.Embedding = v
		require.NoError(t, client.Insert(ctx, m))
	}

	// A row without an embedding never matches.
	require.NoError(t, client.Insert(ctx, testMemory(4, "user_001")))

	results, err := client.SearchSimilar(ctx, []float64{1, 0, 0}, &storage.SearchOptions{
		UserID: "user_001",
	})
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, int64(1), results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, int64(2), results[1].ID)
	assert.Equal(t, int64(3), results[2].ID)

	t.Run("min similarity", func(t *testing.T) {
		results, err := client.SearchSimilar(ctx, []float64{1, 0, 0}, &storage.SearchOptions{
			UserID:        "user_001",
			MinSimilarity: 0.5,
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := client.SearchSimilar(ctx, []float64{1, 0, 0}, &storage.SearchOptions{
			UserID: "user_001",
			Limit:  1,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, int64(1), results[0].ID)
	})
}

func TestSearchSimilarDimensionMismatch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// Stored with a 3-dim vector, as if embedded by a narrower provider.
	narrow := testMemory(1, "user_001")
	narrow.Embedding = []float64{0.1, 0.2, 0.3}
	require.NoError(t, client.Insert(ctx, narrow))

	_, err := client.SearchSimilar(ctx, []float64{1, 0, 0, 0}, &storage.SearchOptions{
		UserID: "user_001",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestSearchSimilarClampsOppositeVectors(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	opposite := testMemory(1, "user_001")
	opposite.Embedding = []float64{-1, 0, 0}
	require.NoError(t, client.Insert(ctx, opposite))

	results, err := client.SearchSimilar(ctx, []float64{1, 0, 0}, &storage.SearchOptions{
		UserID: "user_001",
	})
	require.NoError(t, err)

	// Raw cosine would be -1; scores are clamped to [0,1].
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Score)
}

func TestSearchScope(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	universal := testMemory(1, "user_001")
	universal.Embedding = []float64{1, 0}
	require.NoError(t, client.Insert(ctx, universal))

	mine := testMemory(2, "user_001")
	mine.MemoryType = storage.TierSession
	mine.ConversationID = "conv_1"
	mine.Embedding = []float64{1, 0}
	require.NoError(t, client.Insert(ctx, mine))

	other := testMemory(3, "user_001")
	other.MemoryType = storage.TierSession
	other.ConversationID = "conv_2"
	other.Embedding = []float64{1, 0}
	require.NoError(t, client.Insert(ctx, other))

	t.Run("without conversation only universal", func(t *testing.T) {
		results, err := client.SearchSimilar(ctx, []float64{1, 0}, &storage.SearchOptions{
			UserID: "user_001",
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, int64(1), results[0].ID)
	})

	t.Run("with conversation adds its session rows", func(t *testing.T) {
		results, err := client.SearchSimilar(ctx, []float64{1, 0}, &storage.SearchOptions{
			UserID:         "user_001",
			ConversationID: "conv_1",
		})
		require.NoError(t, err)
		assert.Len(t, results, 2)
		for _, r := range results {
			assert.NotEqual(t, int64(3), r.ID)
		}
	})
}

func TestCandidates(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	universal := testMemory(1, "user_001")
	require.NoError(t, client.Insert(ctx, universal))

	session := testMemory(2, "user_001")
	session.MemoryType = storage.TierSession
	session.ConversationID = "conv_1"
	require.NoError(t, client.Insert(ctx, session))

	foreign := testMemory(3, "user_002")
	require.NoError(t, client.Insert(ctx, foreign))

	rows, err := client.Candidates(ctx, &storage.CandidateOptions{
		UserID:         "user_001",
		ConversationID: "conv_1",
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = client.Candidates(ctx, &storage.CandidateOptions{UserID: "user_001"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
}

func TestPurgeExpired(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	live := testMemory(1, "user_001")
	require.NoError(t, client.Insert(ctx, live))

	for i := int64(2); i <= 3; i++ {
		expired := testMemory(i, "user_001")
		expired.CreatedAt = time.Now().Add(-48 * time.Hour)
		expired.UpdatedAt = expired.CreatedAt
		expired.ExpiresAt = time.Now().Add(-time.Hour)
		require.NoError(t, client.Insert(ctx, expired))
	}

	purged, err := client.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	memories, err := client.List(ctx, &storage.ListOptions{
		UserID:         "user_001",
		IncludeExpired: true,
	})
	require.NoError(t, err)
	require.Len(t, memories, 1)
	assert.Equal(t, int64(1), memories[0].ID)
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}
