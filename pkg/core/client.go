// Package core provides the recall client facade over storage, embedding,
// classification, and search.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/studyloop/recall/pkg/embedder"
	bedrockEmbedder "github.com/studyloop/recall/pkg/embedder/bedrock"
	cohereEmbedder "github.com/studyloop/recall/pkg/embedder/cohere"
	googleEmbedder "github.com/studyloop/recall/pkg/embedder/google"
	mistralEmbedder "github.com/studyloop/recall/pkg/embedder/mistral"
	openaiEmbedder "github.com/studyloop/recall/pkg/embedder/openai"
	qwenEmbedder "github.com/studyloop/recall/pkg/embedder/qwen"
	voyageEmbedder "github.com/studyloop/recall/pkg/embedder/voyage"
	"github.com/studyloop/recall/pkg/embedding"
	"github.com/studyloop/recall/pkg/intelligence"
	"github.com/studyloop/recall/pkg/llm"
	anthropicLLM "github.com/studyloop/recall/pkg/llm/anthropic"
	ollamaLLM "github.com/studyloop/recall/pkg/llm/ollama"
	openaiLLM "github.com/studyloop/recall/pkg/llm/openai"
	"github.com/studyloop/recall/pkg/metrics"
	"github.com/studyloop/recall/pkg/search"
	"github.com/studyloop/recall/pkg/storage"
	mysqlStore "github.com/studyloop/recall/pkg/storage/mysql"
	postgresStore "github.com/studyloop/recall/pkg/storage/postgres"
	sqliteStore "github.com/studyloop/recall/pkg/storage/sqlite"
)

// Client is the memory engine facade.
//
// It composes the memory store, the embedding service with its cache and
// health monitor, the tier classifier, and the search engine behind one
// interface:
//   - EmbedTexts: multi-provider embedding generation with fallback
//   - WriteMemory / UpdateMemory: classified, scored memory persistence
//   - SearchMemories: hybrid vector/lexical retrieval
//
// The client is safe for concurrent use; shared provider state (cache,
// usage counters, health) lives in the embedding service, which is
// constructed once here and passed to every component that needs it.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	memory, _ := client.WriteMemory(ctx, &core.WriteInput{
//	    UserID:  "user_001",
//	    Content: "I prefer visual explanations",
//	})
type Client struct {
	config *Config

	store      storage.Store
	registry   *embedder.Registry
	embeddings *embedding.Service
	engine     *search.Engine
	classifier intelligence.Classifier
	llm        llm.Provider

	// snowflakeNode generates unique memory IDs.
	snowflakeNode *snowflake.Node

	logger  *slog.Logger
	metrics *metrics.Metrics

	closed atomic.Bool
}

// ClientOption overrides a collaborator the client would otherwise build
// from its configuration. Tests use these to substitute fakes.
type ClientOption func(*Client)

// WithStore substitutes the storage backend.
func WithStore(store storage.Store) ClientOption {
	return func(c *Client) {
		c.store = store
	}
}

// WithRegistry substitutes the embedding provider registry. The configured
// Embedders list is ignored when a registry is supplied.
func WithRegistry(registry *embedder.Registry) ClientOption {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithClassifier substitutes the tier classifier.
func WithClassifier(classifier intelligence.Classifier) ClientOption {
	return func(c *Client) {
		c.classifier = classifier
	}
}

// WithClientLogger sets the logger shared by every component the client
// builds.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClientMetrics attaches Prometheus collectors to every component the
// client builds.
func WithClientMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a recall client from configuration.
//
// The client is initialized with:
//   - Memory store (SQLite, Postgres, or MySQL)
//   - Embedding provider adapters with cache, health monitor, and quotas
//   - Tier classifier (keyword heuristic, or LLM-backed when configured)
//   - Search engine over the store and embedding service
//
// Parameters:
//   - cfg: configuration containing storage, embedder, and cache settings
//   - opts: optional collaborator overrides
//
// Returns a new Client, or an error if initialization fails. The health
// probe loop is not running until Start is called.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		store, err := initStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
		c.store = store
	}

	if c.registry == nil {
		registry, err := initEmbedders(cfg.Embedders)
		if err != nil {
			return nil, err
		}
		c.registry = registry
	}

	cache, err := initCache(cfg.Cache, c.logger)
	if err != nil {
		return nil, err
	}

	serviceCfg := cfg.embeddingServiceConfig()
	monitor := embedding.NewMonitor(c.registry, cfg.monitorConfig(), c.logger)
	usage := embedding.NewUsageTracker(serviceCfg.Providers)

	c.embeddings = embedding.NewService(serviceCfg, c.registry, cache, monitor, usage,
		embedding.WithLogger(c.logger),
		embedding.WithMetrics(c.metrics),
	)

	c.engine = search.NewEngine(c.store, c.embeddings,
		search.EngineConfig{DefaultMinSimilarity: cfg.Search.MinSimilarity},
		search.WithLogger(c.logger),
		search.WithMetrics(c.metrics),
	)

	if c.classifier == nil {
		if cfg.LLM.Provider != "" {
			provider, err := initLLM(cfg.LLM)
			if err != nil {
				return nil, err
			}
			c.llm = provider
			c.classifier = intelligence.NewLLMClassifier(provider)
		} else {
			c.classifier = intelligence.NewKeywordClassifier()
		}
	}

	nodeID := cfg.NodeID
	if nodeID == 0 {
		nodeID = 1
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, NewMemoryError("NewClient", err)
	}
	c.snowflakeNode = node

	return c, nil
}

// Start launches the embedding provider health probe loop. The loop runs
// until Close is called or ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	c.embeddings.Start(ctx)
}

// EmbedTexts generates embeddings for a list of texts.
//
// The call goes through the embedding cache first; on a miss it walks the
// provider chain (explicit provider, or default plus fallbacks), skipping
// unhealthy and over-quota providers. A cache hit records zero cost.
//
// Parameters:
//   - ctx: Context for cancellation; cancelling abandons remaining fallbacks
//   - texts: Non-empty list of texts to embed
//   - opts: Optional provider pin and timeout override
//
// Returns the vectors with provider/model/dimension metadata, or an error
// once every candidate provider has failed or been skipped.
//
// Example:
//
//	result, err := client.EmbedTexts(ctx, []string{"photosynthesis"},
//	    core.WithProvider("cohere"))
func (c *Client) EmbedTexts(ctx context.Context, texts []string, opts ...EmbedOption) (*EmbedResult, error) {
	if c.closed.Load() {
		return nil, NewMemoryError("EmbedTexts", ErrClosed)
	}

	embedOpts := applyEmbedOptions(opts)

	result, err := c.embeddings.Generate(ctx, embedding.Request{
		Texts:    texts,
		Provider: embedOpts.Provider,
		Timeout:  embedOpts.Timeout,
	})
	if err != nil {
		return nil, NewMemoryError("EmbedTexts", err)
	}

	return &EmbedResult{
		Vectors:       result.Vectors,
		Provider:      result.Provider,
		Model:         result.Model,
		Dimensions:    result.Dimensions,
		CacheHit:      result.CacheHit,
		EstimatedCost: result.EstimatedCost,
		RequestID:     result.RequestID,
	}, nil
}

// WriteMemory persists one chat turn as a memory.
//
// The method:
//  1. Classifies the turn's tier, priority, retention, and kind (caller
//     overrides in the input win over the classifier)
//  2. Computes the quality and relevance scores
//  3. Embeds the content for universal memories, best effort: an embedding
//     failure downgrades retrieval to lexical matching but never loses the
//     write
//  4. Persists the row; expiry is derived here, once, from the retention
//     window
//
// The session tier requires a conversation id: an explicit session override
// without one is rejected, and a classifier's session pick without one is
// kept universal.
//
// Persistence failures are surfaced directly so memory loss is visible.
//
// Parameters:
//   - ctx: Context for cancellation
//   - input: The turn's content and metadata; UserID and Content required
//
// Returns the written Memory, or an error if validation or persistence
// fails.
func (c *Client) WriteMemory(ctx context.Context, input *WriteInput) (*Memory, error) {
	if c.closed.Load() {
		return nil, NewMemoryError("WriteMemory", ErrClosed)
	}
	if input == nil || input.UserID == "" || strings.TrimSpace(input.Content) == "" {
		return nil, NewMemoryError("WriteMemory", fmt.Errorf("%w: user id and content are required", ErrInvalidInput))
	}

	cls := c.classifier.Classify(ctx, intelligence.Signals{
		Content:         input.Content,
		Response:        input.Response,
		HasConversation: input.ConversationID != "",
	})
	applyOverrides(&cls, input)

	// A session memory without a conversation would be unreachable: the
	// retrieval scope admits session rows only under their conversation.
	if cls.Tier == TierSession && input.ConversationID == "" {
		if input.MemoryType != "" {
			return nil, NewMemoryError("WriteMemory",
				fmt.Errorf("%w: session memories require a conversation id", ErrInvalidInput))
		}
		cls.Tier = TierUniversal
		cls.Reason = "no conversation to scope a session memory, kept universal"
	}

	signals := intelligence.TurnSignals{
		Content:           input.Content,
		Response:          input.Response,
		Message:           input.Message,
		Topic:             input.Topic,
		Tags:              input.Tags,
		Priority:          cls.Priority,
		Kind:              cls.Kind,
		Confidence:        input.Confidence,
		LearningObjective: input.LearningObjective,
		ProcessingTimeMs:  input.ProcessingTimeMs,
		TokenCount:        input.TokenCount,
	}

	memory := &Memory{
		ID:             c.snowflakeNode.Generate().Int64(),
		UserID:         input.UserID,
		MemoryType:     cls.Tier,
		QualityScore:   intelligence.QualityScore(signals),
		RelevanceScore: intelligence.RelevanceScore(signals),
		Interaction: Interaction{
			Content:           input.Content,
			Response:          input.Response,
			Message:           input.Message,
			Topic:             input.Topic,
			Tags:              input.Tags,
			Priority:          cls.Priority,
			Retention:         cls.Retention,
			LearningObjective: input.LearningObjective,
			Confidence:        input.Confidence,
			ProcessingTimeMs:  input.ProcessingTimeMs,
			TokenCount:        input.TokenCount,
			MemoryKind:        cls.Kind,
			Context:           input.Context,
		},
	}
	// Session memories are always scoped to their conversation; universal
	// memories keep the conversation id as provenance only.
	memory.ConversationID = input.ConversationID

	if cls.Tier == TierUniversal {
		memory.Embedding = c.embedContent(ctx, input.Content)
	}

	now := time.Now()
	memory.CreatedAt = now
	memory.UpdatedAt = now
	memory.ExpiresAt = now.Add(storage.RetentionWindow(cls.Retention))

	if err := c.store.Insert(ctx, toStorageMemory(memory)); err != nil {
		return nil, NewMemoryError("WriteMemory", err)
	}

	c.metrics.RecordMemoryWrite(cls.Tier)
	c.logger.Debug("memory written",
		"memory_id", memory.ID,
		"user_id", memory.UserID,
		"tier", cls.Tier,
		"retention", cls.Retention,
		"reason", cls.Reason)

	return memory, nil
}

// embedContent generates the write-time embedding for a universal memory.
// Failures are logged and swallowed: the memory stays retrievable through
// the lexical path.
func (c *Client) embedContent(ctx context.Context, content string) []float64 {
	result, err := c.embeddings.Generate(ctx, embedding.Request{Texts: []string{content}})
	if err != nil {
		c.logger.Warn("write-time embedding failed, storing without vector", "error", err)
		return nil
	}
	return result.Vectors[0]
}

// UpdateMemory revises an existing memory's payload.
//
// Only the fields set in input are merged into the stored payload; Context
// entries merge key by key. A provenance record is stamped so the previous
// revision's update timestamp is retained. The expiry is never recomputed.
// When the content changes on a universal memory its embedding is
// regenerated, best effort.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: The requesting user; updates to another user's memory report
//     ErrNotFound
//   - id: The memory to revise
//   - input: The revisions; nil fields are left unchanged
//
// Returns the updated Memory, or ErrNotFound if no memory with that id is
// owned by userID.
func (c *Client) UpdateMemory(ctx context.Context, userID string, id int64, input *UpdateInput) (*Memory, error) {
	if c.closed.Load() {
		return nil, NewMemoryError("UpdateMemory", ErrClosed)
	}
	if userID == "" || input == nil {
		return nil, NewMemoryError("UpdateMemory", fmt.Errorf("%w: user id and revisions are required", ErrInvalidInput))
	}

	stored, err := c.store.Get(ctx, id, &storage.GetOptions{UserID: userID})
	if err != nil {
		return nil, NewMemoryError("UpdateMemory", err)
	}
	memory := fromStorageMemory(stored)

	contentChanged := mergeRevisions(&memory.Interaction, input)
	stampProvenance(&memory.Interaction, memory.UpdatedAt)

	signals := intelligence.TurnSignals{
		Content:           memory.Interaction.Content,
		Response:          memory.Interaction.Response,
		Message:           memory.Interaction.Message,
		Topic:             memory.Interaction.Topic,
		Tags:              memory.Interaction.Tags,
		Priority:          memory.Interaction.Priority,
		Kind:              memory.Interaction.MemoryKind,
		Confidence:        memory.Interaction.Confidence,
		LearningObjective: memory.Interaction.LearningObjective,
		ProcessingTimeMs:  memory.Interaction.ProcessingTimeMs,
		TokenCount:        memory.Interaction.TokenCount,
	}
	memory.QualityScore = intelligence.QualityScore(signals)
	memory.RelevanceScore = intelligence.RelevanceScore(signals)

	if contentChanged && memory.MemoryType == TierUniversal {
		memory.Embedding = c.embedContent(ctx, memory.Interaction.Content)
	}

	if err := c.store.Update(ctx, toStorageMemory(memory), &storage.UpdateOptions{UserID: userID}); err != nil {
		return nil, NewMemoryError("UpdateMemory", err)
	}
	memory.UpdatedAt = time.Now()

	c.metrics.RecordMemoryUpdate()
	return memory, nil
}

// SearchMemories retrieves a user's memories ranked by similarity to the
// query.
//
// Hybrid mode (the default) embeds the query and runs vector similarity,
// falling back to lexical scoring when embedding or the vector query fails;
// the response flags the fallback so callers can show a degraded-quality
// indicator. A healthy search with no matches returns an empty result set,
// not an error.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: The user whose memories are searched (required)
//   - query: Free-text query
//   - opts: Optional limit, similarity floor, tag filter, context level,
//     mode, and conversation scope
//
// Returns the ranked results, or an error when the attempted path and its
// fallback both fail hard.
//
// Example:
//
//	resp, err := client.SearchMemories(ctx, "user_001", "how do I learn best",
//	    core.WithLimit(5),
//	    core.WithContextLevel(core.ContextBalanced),
//	)
func (c *Client) SearchMemories(ctx context.Context, userID, query string, opts ...SearchOption) (*SearchResponse, error) {
	if c.closed.Load() {
		return nil, NewMemoryError("SearchMemories", ErrClosed)
	}
	if userID == "" || strings.TrimSpace(query) == "" {
		return nil, NewMemoryError("SearchMemories", fmt.Errorf("%w: user id and query are required", ErrInvalidInput))
	}

	searchOpts := applySearchOptions(opts)

	resp, err := c.engine.Search(ctx, userID, query, &search.Options{
		Limit:          searchOpts.Limit,
		MinSimilarity:  searchOpts.MinSimilarity,
		Tags:           searchOpts.Tags,
		ContextLevel:   searchOpts.ContextLevel,
		Mode:           search.Mode(searchOpts.Mode),
		ConversationID: searchOpts.ConversationID,
	})
	if err != nil {
		return nil, NewMemoryError("SearchMemories", err)
	}

	results := make([]SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		memory := fromStorageMemory(r.Memory)
		memory.Score = r.Similarity
		results[i] = SearchResult{
			Memory:     memory,
			Similarity: r.Similarity,
			Relevance:  r.Relevance,
		}
	}

	return &SearchResponse{
		Results:      results,
		Mode:         string(resp.Mode),
		FallbackUsed: resp.FallbackUsed,
	}, nil
}

// GetMemory retrieves a memory by ID.
//
// Returns ErrNotFound if the memory does not exist or belongs to a
// different user.
func (c *Client) GetMemory(ctx context.Context, userID string, id int64) (*Memory, error) {
	if c.closed.Load() {
		return nil, NewMemoryError("GetMemory", ErrClosed)
	}

	memory, err := c.store.Get(ctx, id, &storage.GetOptions{UserID: userID})
	if err != nil {
		return nil, NewMemoryError("GetMemory", err)
	}
	return fromStorageMemory(memory), nil
}

// ListMemories retrieves a user's memories newest first.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: The owning user (required)
//   - opts: Optional conversation/tier filters and pagination
//
// Example:
//
//	memories, err := client.ListMemories(ctx, "user_001",
//	    core.WithMemoryTypeForList(core.TierUniversal),
//	    core.WithLimitForList(50),
//	)
func (c *Client) ListMemories(ctx context.Context, userID string, opts ...ListOption) ([]*Memory, error) {
	if c.closed.Load() {
		return nil, NewMemoryError("ListMemories", ErrClosed)
	}
	if userID == "" {
		return nil, NewMemoryError("ListMemories", fmt.Errorf("%w: user id is required", ErrInvalidInput))
	}

	listOpts := applyListOptions(opts)

	memories, err := c.store.List(ctx, &storage.ListOptions{
		UserID:         userID,
		ConversationID: listOpts.ConversationID,
		MemoryType:     listOpts.MemoryType,
		IncludeExpired: listOpts.IncludeExpired,
		Limit:          listOpts.Limit,
		Offset:         listOpts.Offset,
	})
	if err != nil {
		return nil, NewMemoryError("ListMemories", err)
	}

	return fromStorageMemories(memories), nil
}

// DeleteMemory removes a memory by ID.
//
// Returns ErrNotFound if the memory does not exist or belongs to a
// different user.
func (c *Client) DeleteMemory(ctx context.Context, userID string, id int64) error {
	if c.closed.Load() {
		return NewMemoryError("DeleteMemory", ErrClosed)
	}

	if err := c.store.Delete(ctx, id, &storage.DeleteOptions{UserID: userID}); err != nil {
		return NewMemoryError("DeleteMemory", err)
	}
	return nil
}

// PurgeExpired deletes every memory whose expiry has passed and reports how
// many were removed. Intended to be driven by an external scheduler.
func (c *Client) PurgeExpired(ctx context.Context) (int64, error) {
	if c.closed.Load() {
		return 0, NewMemoryError("PurgeExpired", ErrClosed)
	}

	purged, err := c.store.PurgeExpired(ctx, time.Now())
	if err != nil {
		return 0, NewMemoryError("PurgeExpired", err)
	}

	c.metrics.RecordMemoryPurged(purged)
	if purged > 0 {
		c.logger.Info("expired memories purged", "count", purged)
	}
	return purged, nil
}

// ProviderHealth returns the current health snapshot for every embedding
// provider.
func (c *Client) ProviderHealth() []embedding.ProviderStatus {
	return c.embeddings.Health()
}

// ProviderUsage returns accumulated request and cost counters per provider.
// Cost is approximated from input characters, not token-exact billing.
func (c *Client) ProviderUsage() map[string]embedding.Usage {
	return c.embeddings.Usage()
}

// ResetDailyUsage zeroes the daily quota windows. Called by the external
// scheduler that owns day boundaries.
func (c *Client) ResetDailyUsage() {
	c.embeddings.ResetDailyUsage()
}

// ResetMonthlyUsage zeroes the monthly quota windows.
func (c *Client) ResetMonthlyUsage() {
	c.embeddings.ResetMonthlyUsage()
}

// Ping verifies the storage backend is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close stops the health probe loop and releases every resource the client
// owns. Subsequent operations report ErrClosed.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error
	if err := c.embeddings.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.llm != nil {
		if err := c.llm.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// applyOverrides applies the caller's explicit tier decisions over the
// classifier's. A tier override without a retention override keeps the
// classifier's retention only when it is compatible with the new tier.
func applyOverrides(cls *intelligence.Classification, input *WriteInput) {
	if input.MemoryType != "" {
		cls.Tier = input.MemoryType
		cls.Reason = "caller override"
	}
	if input.Priority != "" {
		cls.Priority = input.Priority
	}
	if input.Retention != "" {
		cls.Retention = input.Retention
	}
	if input.Kind != "" {
		cls.Kind = input.Kind
	}
}

// mergeRevisions merges the set fields of input into the payload and
// reports whether the content text changed.
func mergeRevisions(in *Interaction, input *UpdateInput) bool {
	contentChanged := false
	if input.Content != nil && *input.Content != in.Content {
		in.Content = *input.Content
		contentChanged = true
	}
	if input.Response != nil {
		in.Response = *input.Response
	}
	if input.Message != nil {
		in.Message = *input.Message
	}
	if input.Topic != nil {
		in.Topic = *input.Topic
	}
	if input.Tags != nil {
		in.Tags = input.Tags
	}
	if input.Priority != nil {
		in.Priority = *input.Priority
	}
	if input.Kind != nil {
		in.MemoryKind = *input.Kind
	}
	if input.LearningObjective != nil {
		in.LearningObjective = *input.LearningObjective
	}
	if input.Confidence != nil {
		in.Confidence = *input.Confidence
	}
	if len(input.Context) > 0 {
		if in.Context == nil {
			in.Context = make(map[string]interface{}, len(input.Context))
		}
		for k, v := range input.Context {
			in.Context[k] = v
		}
	}
	return contentChanged
}

// stampProvenance records the update trail: the revision counter advances
// and the pre-update timestamp is retained rather than discarded.
func stampProvenance(in *Interaction, previousUpdatedAt time.Time) {
	prev := previousUpdatedAt
	if in.Provenance == nil {
		in.Provenance = &Provenance{}
	}
	in.Provenance.Revision++
	in.Provenance.PreviousUpdatedAt = &prev
}

// initStorage initializes the storage backend.
func initStorage(cfg StorageConfig) (storage.Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:    cfg.SQLite.DBPath,
			TableName: cfg.TableName,
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:       cfg.Postgres.Host,
			Port:       cfg.Postgres.Port,
			User:       cfg.Postgres.User,
			Password:   cfg.Postgres.Password,
			DBName:     cfg.Postgres.DBName,
			SSLMode:    cfg.Postgres.SSLMode,
			TableName:  cfg.TableName,
			Dimensions: cfg.Postgres.Dimensions,
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:      cfg.MySQL.Host,
			Port:      cfg.MySQL.Port,
			User:      cfg.MySQL.User,
			Password:  cfg.MySQL.Password,
			DBName:    cfg.MySQL.DBName,
			TableName: cfg.TableName,
		})
	default:
		return nil, NewMemoryError("initStorage",
			fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, cfg.Provider))
	}
}

// initEmbedders builds the provider registry from the configured adapter
// list.
func initEmbedders(cfgs []EmbedderConfig) (*embedder.Registry, error) {
	registry := embedder.NewRegistry()

	for _, cfg := range cfgs {
		provider, err := initEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		registry.Register(provider)
	}

	return registry, nil
}

// initEmbedder initializes one embedding provider adapter.
func initEmbedder(cfg EmbedderConfig) (embedder.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiEmbedder.NewClient(&openaiEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "cohere":
		return cohereEmbedder.NewClient(&cohereEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "mistral":
		return mistralEmbedder.NewClient(&mistralEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "google":
		return googleEmbedder.NewClient(&googleEmbedder.Config{
			ProjectID:  cfg.ProjectID,
			Location:   cfg.Location,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "voyage":
		return voyageEmbedder.NewClient(&voyageEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	case "bedrock":
		return bedrockEmbedder.NewClient(context.Background(), &bedrockEmbedder.Config{
			Region:     cfg.Region,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case "qwen":
		return qwenEmbedder.NewClient(&qwenEmbedder.Config{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, NewMemoryError("initEmbedder",
			fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, cfg.Provider))
	}
}

// initCache initializes the embedding cache backend.
func initCache(cfg CacheConfig, logger *slog.Logger) (embedding.Cache, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second

	switch cfg.Backend {
	case "", "memory":
		return embedding.NewMemoryCache(cfg.Size, ttl)
	case "redis":
		return embedding.NewRedisCache(embedding.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      ttl,
		}, logger)
	default:
		return nil, NewMemoryError("initCache",
			fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, cfg.Backend))
	}
}

// initLLM initializes the LLM provider used by the optional model-based
// classifier. OpenAI-compatible services (DeepSeek, Qwen, vLLM) are reached
// through the openai provider with their base URL.
func initLLM(cfg LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "anthropic":
		return anthropicLLM.NewClient(&anthropicLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return ollamaLLM.NewClient(&ollamaLLM.Config{
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, NewMemoryError("initLLM",
			fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, cfg.Provider))
	}
}
