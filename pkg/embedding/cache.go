package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Entry is one cached embedding result: the vectors produced together for
// one (text set, provider) key, with the provider and model that produced
// them. Entries are never mutated after creation.
type Entry struct {
	Vectors   [][]float64 `json:"vectors"`
	Provider  string      `json:"provider"`
	Model     string      `json:"model"`
	Dimension int         `json:"dimension"`
	CreatedAt time.Time   `json:"created_at"`
}

// Cache is the embedding cache. Implementations must be safe for concurrent
// use. Lookups and writes are best-effort: a backend failure reads as a
// miss and a failed write is dropped, so the cache can never take the
// generation path down. Two concurrent misses for the same key may both
// reach the provider; the duplicate write is idempotent for identical
// inputs, so the race is acceptable.
type Cache interface {
	// Get returns the unexpired entry for key, if present.
	Get(ctx context.Context, key string) (*Entry, bool)

	// Set stores an entry under key, subject to the cache's TTL.
	Set(ctx context.Context, key string, entry *Entry)

	// Close releases cache resources.
	Close() error
}

// CacheKey derives the content-addressed key for a text set and provider
// selection. Texts are length-framed before hashing so no two distinct text
// sets collide by concatenation. An empty provider means the configured
// default chain, keyed as "default" so explicit and default requests for
// the same texts are cached independently.
func CacheKey(texts []string, provider string) string {
	if provider == "" {
		provider = "default"
	}

	h := sha256.New()
	h.Write([]byte(provider))
	var frame [8]byte
	for _, text := range texts {
		binary.BigEndian.PutUint64(frame[:], uint64(len(text)))
		h.Write(frame[:])
		h.Write([]byte(text))
	}
	return hex.EncodeToString(h.Sum(nil))
}
