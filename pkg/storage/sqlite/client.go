// Package sqlite provides the SQLite storage backend.
//
// SQLite is a file-based database suited to local development and small
// deployments. Vectors are stored as JSON strings in TEXT columns and
// similarity search computes cosine similarity in memory after loading the
// scoped rows.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studyloop/recall/pkg/storage"
)

// Client implements storage.Store backed by SQLite.
type Client struct {
	db        *sql.DB
	tableName string
}

// Config contains configuration for the SQLite backend.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the memories table. Default "memories".
	TableName string
}

// NewClient opens (creating if needed) the database file and initializes
// the memories table.
func NewClient(cfg *Config) (*Client, error) {
	tableName := cfg.TableName
	if tableName == "" {
		tableName = "memories"
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL DEFAULT '',
			memory_type TEXT NOT NULL,
			interaction_data TEXT NOT NULL,
			quality_score REAL NOT NULL DEFAULT 0,
			relevance_score REAL NOT NULL DEFAULT 0,
			embedding TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_conversation
		ON %s(user_id, conversation_id)
	`, c.tableName, c.tableName)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Insert persists a new memory.
//
// Timestamps are stored in UTC so SQLite's text-based comparisons order
// them correctly.
func (c *Client) Insert(ctx context.Context, memory *storage.Memory) error {
	storage.StampNew(memory, time.Now())

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, conversation_id, memory_type, interaction_data,
		 quality_score, relevance_score, embedding, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
		embeddingValue(memory.Embedding),
		memory.CreatedAt.UTC(),
		memory.UpdatedAt.UTC(),
		memory.ExpiresAt.UTC(),
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

	whereClause := "WHERE id = ?"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
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

	whereClause := "WHERE id = ?"
	args := []interface{}{
		memory.MemoryType,
		string(interactionJSON),
		memory.QualityScore,
		memory.RelevanceScore,
		embeddingValue(memory.Embedding),
		time.Now().UTC(),
		memory.ID,
	}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, opts.UserID)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET memory_type = ?, interaction_data = ?, quality_score = ?,
		    relevance_score = ?, embedding = ?, updated_at = ?
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

	whereClause := "WHERE id = ?"
	args := []interface{}{id}
	if opts.UserID != "" {
		whereClause += " AND user_id = ?"
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

	b := &condBuilder{}
	if opts.UserID != "" {
		b.add("user_id = ?", opts.UserID)
	}
	if opts.ConversationID != "" {
		b.add("conversation_id = ?", opts.ConversationID)
	}
	if opts.MemoryType != "" {
		b.add("memory_type = ?", opts.MemoryType)
	}
	if !opts.IncludeExpired {
		b.add("expires_at > ?", time.Now().UTC())
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, conversation_id, memory_type, interaction_data,
		       quality_score, relevance_score, embedding,
		       created_at, updated_at, expires_at
		FROM %s
		%s
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, c.tableName, b.whereClause())

	args := append(b.args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanMemories(rows)
}

// SearchSimilar performs vector similarity search.
//
// SQLite has no native vector operations, so the scoped rows are loaded
// and cosine similarity is computed in memory. Rows without an embedding
// never match; a row whose vector length differs from the query's reports
// storage.ErrDimensionMismatch.
func (c *Client) SearchSimilar(ctx context.Context, embedding []float64, opts *storage.SearchOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.SearchOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	rows, err := c.scopedRows(ctx, opts.UserID, opts.ConversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("SearchSimilar: %w", err)
	}

	var matched []*storage.Memory
	for _, memory := range rows {
		if len(memory.Embedding) == 0 {
			continue
		}
		if len(memory.Embedding) != len(embedding) {
			return nil, fmt.Errorf("SearchSimilar: %w: memory %d has %d dimensions, query has %d",
				storage.ErrDimensionMismatch, memory.ID, len(memory.Embedding), len(embedding))
		}
		score := cosineSimilarity(embedding, memory.Embedding)
		if score < opts.MinSimilarity {
			continue
		}
		memory.Score = score
		matched = append(matched, memory)
	}

	sortByScore(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
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

	rows, err := c.scopedRows(ctx, opts.UserID, opts.ConversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("Candidates: %w", err)
	}
	return rows, nil
}

// scopedRows loads the retrieval scope: the user's unexpired universal
// memories plus one conversation's session memories, newest first. A
// limit of 0 loads all rows in scope.
func (c *Client) scopedRows(ctx context.Context, userID, conversationID string, limit int) ([]*storage.Memory, error) {
	b := &condBuilder{}
	b.add("user_id = ?", userID)
	b.add("expires_at > ?", time.Now().UTC())
	b.addScope(conversationID)

	limitClause := ""
	if limit > 0 {
		limitClause = fmt.Sprintf("LIMIT %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, conversation_id, memory_type, interaction_data,
		       quality_score, relevance_score, embedding,
		       created_at, updated_at, expires_at
		FROM %s
		%s
		ORDER BY created_at DESC
		%s
	`, c.tableName, b.whereClause(), limitClause)

	rows, err := c.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMemories(rows)
}

// PurgeExpired deletes rows whose expiry is before the given time.
func (c *Client) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at <= ?", c.tableName)

	result, err := c.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: %w", err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("PurgeExpired: %w", err)
	}

	return purged, nil
}

// CreateIndex is a no-op: SQLite has no vector indexes, similarity search
// scans the scoped rows.
func (c *Client) CreateIndex(ctx context.Context, cfg *storage.IndexConfig) error {
	return nil
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
