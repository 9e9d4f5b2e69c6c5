package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studyloop/recall/pkg/storage"
)

func resultsWithTopics(topics ...string) []Result {
	out := make([]Result, len(topics))
	for i, topic := range topics {
		out[i] = Result{
			Memory: &storage.Memory{
				ID:          int64(i + 1),
				Interaction: storage.InteractionData{Topic: topic},
			},
			Similarity: 1.0 - float64(i)*0.1,
		}
	}
	return out
}

func topicsOf(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Memory.Interaction.Topic
	}
	return out
}

func TestApplyContextLevel(t *testing.T) {
	results := resultsWithTopics("a", "b", "c", "d", "e")

	tests := []struct {
		name  string
		level string
		want  int
	}{
		{"empty leaves untouched", "", 5},
		{"light keeps top 2", ContextLight, 2},
		{"comprehensive keeps all", ContextComprehensive, 5},
		{"unknown keeps top 3", "whatever", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyContextLevel(results, tt.level)
			assert.Len(t, got, tt.want)
			if tt.want > 0 {
				// Rank order is preserved.
				assert.Equal(t, int64(1), got[0].Memory.ID)
			}
		})
	}
}

func TestBalancedSelect(t *testing.T) {
	t.Run("caps repeats per topic", func(t *testing.T) {
		// Pool of 4: two results on one topic are admitted, the third
		// candidate for a represented topic is skipped in favor of variety.
		got := applyContextLevel(resultsWithTopics("calc", "calc", "algebra", "sets"), ContextBalanced)
		assert.Equal(t, []string{"calc", "calc", "algebra", "sets"}, topicsOf(got))
	})

	t.Run("skips third result on the same topic", func(t *testing.T) {
		got := applyContextLevel(resultsWithTopics("calc", "calc", "calc", "sets"), ContextBalanced)
		assert.Equal(t, []string{"calc", "calc", "sets"}, topicsOf(got))
	})

	t.Run("pool bounded at four", func(t *testing.T) {
		got := applyContextLevel(resultsWithTopics("a", "b", "c", "d", "e", "f"), ContextBalanced)
		assert.Equal(t, []string{"a", "b", "c", "d"}, topicsOf(got))
	})

	t.Run("short list passes through", func(t *testing.T) {
		got := applyContextLevel(resultsWithTopics("a"), ContextBalanced)
		assert.Len(t, got, 1)
	})
}

func TestTruncate(t *testing.T) {
	results := resultsWithTopics("a", "b")
	assert.Len(t, truncate(results, 5), 2)
	assert.Len(t, truncate(results, 1), 1)
	assert.Empty(t, truncate(nil, 3))
}
