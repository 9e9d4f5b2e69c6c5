// Package postgres provides the PostgreSQL + pgvector storage backend.
//
// Similarity search runs server-side through pgvector's cosine distance
// operator, so this backend scales past the in-memory scan the SQLite
// backend uses.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/studyloop/recall/pkg/storage"
)

// Client is a PostgreSQL + pgvector storage backend.
type Client struct {
	db         *sql.DB
	tableName  string
	dimensions int
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// TableName is the memories table. Default "memories".
	TableName string

	// Dimensions is the width of the embedding column.
	Dimensions int
}

// NewClient opens a connection, enables pgvector, and creates the memories
// table if needed.
func NewClient(cfg *Config) (*Client, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "memories"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{
		db:         db,
		tableName:  tableName,
		dimensions: cfg.Dimensions,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("initTables: create extension: %w", err)
	}

	// The embedding column is nullable: session memories are stored
	// without vectors and never enter similarity search.
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			conversation_id VARCHAR(255) NOT NULL DEFAULT '',
			memory_type VARCHAR(32) NOT NULL,
			interaction_data JSONB NOT NULL,
			quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at TIMESTAMPTZ NOT NULL
		)
	`, c.tableName, c.dimensions)

	_, err = c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_conversation
		ON %s(user_id, conversation_id)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: create index: %w", err)
	}

	expiresQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_expires_at ON %s(expires_at)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, expiresQuery); err != nil {
		return fmt.Errorf("initTables: create index: %w", err)
	}

	return nil
}

// Insert persists a new memory.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	storage.StampNew(memory, time.Now())

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, conversation_id, memory_type, interaction_data,
		 quality_score, relevance_score, embedding, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, c.tableName)

	interactionJSON, err := json.Marshal(memory.Interaction)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	_, err = c.db.ExecContext(ctx, query,
		memory.ID,
		memory.UserID,
		memory.ConversationID,
		memory.MemoryType,
		string(interactionJSON),
		memory.QualityScore,
		memory.RelevanceScore,
		vectorValue(memory.Embedding),
		memory.CreatedAt,
		memory.UpdatedAt,
		memory.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	return nil
}

// Get retrieves a memory by ID, honoring the ownership check.
func (c *Client) Get(ctx context.Context, id int64, opts *storage.GetOptions) (*storage.Memory, error) {
	if opts == nil {
		opts = &storage.GetOptions{}
	}

	whereClause := "WHERE id = $1"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = $2"
		args = append(args, opts.UserID)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, conversation_id, memory_type, interaction_data,
		       quality_score, relevance_score, embedding,
		       created_at, updated_at, expires_at
		FROM %s
		%s
	`, c.tableName, whereClause)

	row := c.db.QueryRowContext(ctx, query, args...)

	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Get: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	return memory, nil
}

// Update replaces the stored payload, scores, and embedding. The expiry is
// never touched; it was derived once at creation.
func (c *Client) Update(ctx context.Context, memory *storage.Memory, opts *storage.UpdateOptions) error {
	if opts == nil {
		opts = &storage.UpdateOptions{}
	}

	interactionJSON, err := json.Marshal(memory.Interaction)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	whereClause := "WHERE id = $7"
	args := []interface{}{
		memory.MemoryType,
		string(interactionJSON),
		memory.QualityScore,
		memory.RelevanceScore,
		vectorValue(memory.Embedding),
		time.Now(),
		memory.ID,
	}
	if opts.UserID != "" {
		whereClause += " AND user_id = $8"
		args = append(args, opts.UserID)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET memory_type = $1, interaction_data = $2, quality_score = $3,
		    relevance_score = $4, embedding = $5, updated_at = $6
		%s
	`, c.tableName, whereClause)

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Update: %w", storage.ErrNotFound)
	}

	return nil
}

// Delete removes a memory by ID, honoring the ownership check.
func (c *Client) Delete(ctx context.Context, id int64, opts *storage.DeleteOptions) error {
	if opts == nil {
		opts = &storage.DeleteOptions{}
	}

	whereClause := "WHERE id = $1"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = $2"
		args = append(args, opts.UserID)
	}

	query := fmt.Sprintf("DELETE FROM %s %s", c.tableName, whereClause)

	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Delete: %w", storage.ErrNotFound)
	}

	return nil
}

// List retrieves memories newest first with pagination.
func (c *Client) List(ctx context.Context, opts *storage.ListOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	b := newCondBuilder()
	if opts.UserID != "" {
		b.add("user_id = %s", opts.UserID)
	}
	if opts.ConversationID != "" {
		b.add("conversation_id = %s", opts.ConversationID)
	}
	if opts.MemoryType != "" {
		b.add("memory_type = %s", opts.MemoryType)
	}
	if !opts.IncludeExpired {
		b.add("expires_at > %s", time.Now())
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, conversation_id, memory_type, interaction_data,
		       quality_score, relevance_score, embedding,
		       created_at, updated_at, expires_at
		FROM %s
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, c.tableName, b.whereClause(), b.next(), b.next()+1)

	args := append(b.args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMemories(rows, false)
}

// SearchSimilar runs a cosine similarity query through pgvector.
//
// The scope is the user's unexpired universal memories, plus the session
// memories of the given conversation when one is set. Rows without an
// embedding never match.
func (c *Client) SearchSimilar(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.SearchOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	queryVector := vectorToString(embedding)

	// $1 is the query vector; scope conditions start at $2.
	b := newCondBuilderAt(2)
	b.add("user_id = %s", opts.UserID)
	b.add("expires_at > %s", time.Now())
	b.raw("embedding IS NOT NULL")
	addScope(b, opts.ConversationID)
	if opts.MinSimilarity > 0 {
		b.add("1 - (embedding <=> $1) >= %s", opts.MinSimilarity)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, conversation_id, memory_type, interaction_data,
		       quality_score, relevance_score, embedding,
		       created_at, updated_at, expires_at,
		       GREATEST(0, 1 - (embedding <=> $1)) AS similarity
		FROM %s
		%s
		ORDER BY embedding <=> $1
		LIMIT $%d
	`, c.tableName, b.whereClause(), b.next())

	allArgs := []interface{}{queryVector}
	allArgs = append(allArgs, b.args...)
	allArgs = append(allArgs, limit)

	rows, err := c.db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMemories(rows, true)
}

// Candidates loads a user's unexpired memories for lexical scoring, newest
// first.
func (c *Client) Candidates(ctx context.Context, opts *storage.CandidateOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.CandidateOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}

	b := newCondBuilder()
	b.add("user_id = %s", opts.UserID)
	b.add("expires_at > %s", time.Now())
	addScope(b, opts.ConversationID)

	query := fmt.Sprintf(`
		SELECT id, user_id, conversation_id, memory_type, interaction_data,
		       quality_score, relevance_score, embedding,
		       created_at, updated_at, expires_at
		FROM %s
		%s
		ORDER BY created_at DESC
		LIMIT $%d
	`, c.tableName, b.whereClause(), b.next())

	args := append(b.args, limit)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMemories(rows, false)
}

// PurgeExpired deletes rows whose expiry is before the given time.
func (c *Client) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at <= $1", c.tableName)

	result, err := c.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: %w", err)
	}

	return purged, nil
}

// CreateIndex creates a vector index over the embedding column.
func (c *Client) CreateIndex(ctx context.Context, cfg *storage.IndexConfig) error {
	if cfg == nil {
		cfg = &storage.IndexConfig{}
	}
	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("idx_%s_embedding", c.tableName)
	}

	switch cfg.Type {
	case "", "hnsw":
		m := cfg.M
		if m <= 0 {
			m = 16
		}
		efConstruction := cfg.EfConstruction
		if efConstruction <= 0 {
			efConstruction = 64
		}
		query := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s
			USING hnsw (embedding vector_cosine_ops)
			WITH (m = %d, ef_construction = %d)
		`, name, c.tableName, m, efConstruction)
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("CreateIndex: %w", err)
		}
		return nil
	case "ivfflat":
		lists := cfg.Lists
		if lists <= 0 {
			lists = 100
		}
		query := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = %d)
		`, name, c.tableName, lists)
		if _, err := c.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("CreateIndex: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("CreateIndex: unsupported index type: %s", cfg.Type)
	}
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
