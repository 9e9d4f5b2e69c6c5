package embedder_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyloop/recall/pkg/embedder"
)

type stubProvider struct {
	name     string
	closed   bool
	closeErr error
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float64, error) {
	return []float64{0.1}, nil
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i := range texts {
		vectors[i] = []float64{0.1}
	}
	return vectors, nil
}

func (s *stubProvider) Dimensions() int { return 1 }

func (s *stubProvider) Close() error {
	s.closed = true
	return s.closeErr
}

func TestRegistry(t *testing.T) {
	registry := embedder.NewRegistry()

	_, ok := registry.Get("openai")
	assert.False(t, ok)

	openai := &stubProvider{name: "openai"}
	cohere := &stubProvider{name: "cohere"}
	registry.Register(openai)
	registry.Register(cohere)

	got, ok := registry.Get("openai")
	require.True(t, ok)
	assert.Same(t, embedder.Provider(openai), got)

	assert.Equal(t, []string{"cohere", "openai"}, registry.Names())
}

func TestRegistryReplace(t *testing.T) {
	registry := embedder.NewRegistry()

	first := &stubProvider{name: "openai"}
	second := &stubProvider{name: "openai"}
	registry.Register(first)
	registry.Register(second)

	got, ok := registry.Get("openai")
	require.True(t, ok)
	assert.Same(t, embedder.Provider(second), got)
	assert.Equal(t, []string{"openai"}, registry.Names())
}

func TestRegistryClose(t *testing.T) {
	registry := embedder.NewRegistry()

	failing := &stubProvider{name: "openai", closeErr: errors.New("connection leak")}
	clean := &stubProvider{name: "cohere"}
	registry.Register(failing)
	registry.Register(clean)

	err := registry.Close()
	assert.EqualError(t, err, "connection leak")
	assert.True(t, failing.closed)
	assert.True(t, clean.closed)

	// Close empties the registry.
	assert.Empty(t, registry.Names())
	_, ok := registry.Get("openai")
	assert.False(t, ok)
}
