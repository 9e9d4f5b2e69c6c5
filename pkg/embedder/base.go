// Package embedder provides interfaces for text embedding providers.
//
// It defines the Provider interface that all embedding implementations must
// satisfy, and a Registry that maps provider identifiers to implementations
// so callers select providers by name rather than by switch statement.
package embedder

import (
	"context"
	"sort"
	"sync"
)

// Provider defines the interface for embedding providers.
//
// All embedding implementations (OpenAI, Cohere, Mistral, Google, Voyage,
// Bedrock, Qwen) must implement this interface.
type Provider interface {
	// Name returns the provider identifier, e.g. "openai" or "cohere".
	Name() string

	// Model returns the model name this provider instance is configured with.
	Model() string

	// Embed converts a text string into a vector embedding.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - text: The input text to embed
	//
	// Returns the embedding vector and any error.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple text strings into vector embeddings.
	//
	// This method is more efficient than calling Embed multiple times,
	// as it can batch process requests. Implementations must return exactly
	// one vector per input text, in input order.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - texts: Slice of input texts to embed
	//
	// Returns a slice of embedding vectors and any error.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of embedding vectors produced by
	// this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

// Registry maps provider identifiers to Provider implementations.
//
// Providers are registered once at service construction; lookups on the
// request path take a read lock only. Tests substitute fake providers by
// registering them under the same identifiers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under its own Name. A provider registered twice
// replaces the earlier registration.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered provider, returning the first error seen.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.providers = make(map[string]Provider)
	return firstErr
}
