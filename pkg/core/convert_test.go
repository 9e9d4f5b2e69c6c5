package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryConversionRoundTrip(t *testing.T) {
	now := time.Now()
	prev := now.Add(-time.Hour)

	memory := &Memory{
		ID:             42,
		UserID:         "user_001",
		ConversationID: "conv_1",
		MemoryType:     TierUniversal,
		Interaction: Interaction{
			Content:           "My name is Alex",
			Response:          "Nice to meet you",
			Message:           "intro",
			Topic:             "introductions",
			Tags:              []string{"personal"},
			Priority:          PriorityHigh,
			Retention:         RetentionPermanent,
			LearningObjective: "none",
			Confidence:        0.9,
			ProcessingTimeMs:  120,
			TokenCount:        42,
			MemoryKind:        KindGeneral,
			Context:           map[string]interface{}{"source": "chat"},
			Provenance: &Provenance{
				Revision:          2,
				PreviousUpdatedAt: &prev,
			},
		},
		QualityScore:   0.8,
		RelevanceScore: 0.7,
		Embedding:      []float64{0.1, 0.2},
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(365 * 24 * time.Hour),
		Score:          0.95,
	}

	got := fromStorageMemory(toStorageMemory(memory))
	assert.Equal(t, memory, got)
}

func TestProvenanceConversionNil(t *testing.T) {
	memory := &Memory{
		ID:          1,
		UserID:      "user_001",
		MemoryType:  TierSession,
		Interaction: Interaction{Content: "hello"},
	}

	stored := toStorageMemory(memory)
	require.Nil(t, stored.Interaction.Provenance)

	got := fromStorageMemory(stored)
	assert.Nil(t, got.Interaction.Provenance)
}

func TestFromStorageMemories(t *testing.T) {
	assert.Empty(t, fromStorageMemories(nil))
}
