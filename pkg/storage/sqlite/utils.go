package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/studyloop/recall/pkg/storage"
)

// condBuilder accumulates WHERE conditions with ? placeholders.
type condBuilder struct {
	conds []string
	args  []interface{}
}

func (b *condBuilder) add(expr string, arg interface{}) {
	b.conds = append(b.conds, expr)
	b.args = append(b.args, arg)
}

// addScope restricts rows to the retrieval scope: the user's universal
// memories, plus one conversation's session memories when a conversation
// is given.
func (b *condBuilder) addScope(conversationID string) {
	if conversationID == "" {
		b.add("memory_type = ?", storage.TierUniversal)
		return
	}
	b.conds = append(b.conds, "(memory_type = ? OR (memory_type = ? AND conversation_id = ?))")
	b.args = append(b.args, storage.TierUniversal, storage.TierSession, conversationID)
}

func (b *condBuilder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// embeddingValue renders an embedding as a JSON string, or SQL NULL when
// the memory carries no vector.
func embeddingValue(vector []float64) interface{} {
	if len(vector) == 0 {
		return nil
	}
	data, err := json.Marshal(vector)
	if err != nil {
		return nil
	}
	return string(data)
}

func scanMemory(row *sql.Row) (*storage.Memory, error) {
	var memory storage.Memory
	var interactionJSON string
	var embeddingJSON sql.NullString

	err := row.Scan(
		&memory.ID,
		&memory.UserID,
		&memory.ConversationID,
		&memory.MemoryType,
		&interactionJSON,
		&memory.QualityScore,
		&memory.RelevanceScore,
		&embeddingJSON,
		&memory.CreatedAt,
		&memory.UpdatedAt,
		&memory.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeRow(&memory, interactionJSON, embeddingJSON); err != nil {
		return nil, err
	}
	return &memory, nil
}

func scanMemories(rows *sql.Rows) ([]*storage.Memory, error) {
	var memories []*storage.Memory

	for rows.Next() {
		var memory storage.Memory
		var interactionJSON string
		var embeddingJSON sql.NullString

		err := rows.Scan(
			&memory.ID,
			&memory.UserID,
			&memory.ConversationID,
			&memory.MemoryType,
			&interactionJSON,
			&memory.QualityScore,
			&memory.RelevanceScore,
			&embeddingJSON,
			&memory.CreatedAt,
			&memory.UpdatedAt,
			&memory.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		if err := decodeRow(&memory, interactionJSON, embeddingJSON); err != nil {
			return nil, err
		}

		memories = append(memories, &memory)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memories, nil
}

func decodeRow(memory *storage.Memory, interactionJSON string, embeddingJSON sql.NullString) error {
	if interactionJSON != "" {
		if err := json.Unmarshal([]byte(interactionJSON), &memory.Interaction); err != nil {
			return fmt.Errorf("parse interaction: %w", err)
		}
	}

	if embeddingJSON.Valid && embeddingJSON.String != "" {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &memory.Embedding); err != nil {
			return fmt.Errorf("parse embedding: %w", err)
		}
	}

	return nil
}

// cosineSimilarity computes the cosine similarity between two equal-length
// vectors, clamped to [0,1]. Zero vectors score 0; the caller checks
// dimensionality before calling.
func cosineSimilarity(a, b []float64) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return math.Min(1, math.Max(0, dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))))
}

// sortByScore orders memories by score, highest first.
func sortByScore(memories []*storage.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Score > memories[j].Score
	})
}
