package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/studyloop/recall/pkg/storage"
)

// condBuilder accumulates WHERE conditions with positional parameters.
// The %s verb in an expression is replaced with the next $N placeholder.
type condBuilder struct {
	conds    []string
	args     []interface{}
	argIndex int
}

func newCondBuilder() *condBuilder {
	return newCondBuilderAt(1)
}

func newCondBuilderAt(start int) *condBuilder {
	return &condBuilder{argIndex: start}
}

func (b *condBuilder) add(expr string, arg interface{}) {
	b.conds = append(b.conds, fmt.Sprintf(expr, fmt.Sprintf("$%d", b.argIndex)))
	b.args = append(b.args, arg)
	b.argIndex++
}

// raw appends a condition that takes no parameters.
func (b *condBuilder) raw(expr string) {
	b.conds = append(b.conds, expr)
}

// next returns the next free positional parameter index.
func (b *condBuilder) next() int {
	return b.argIndex
}

func (b *condBuilder) whereClause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// addScope restricts rows to the retrieval scope: the user's universal
// memories, plus one conversation's session memories when a conversation
// is given.
func addScope(b *condBuilder, conversationID string) {
	if conversationID == "" {
		b.add("memory_type = %s", storage.TierUniversal)
		return
	}
	cond := fmt.Sprintf("(memory_type = $%d OR (memory_type = $%d AND conversation_id = $%d))",
		b.argIndex, b.argIndex+1, b.argIndex+2)
	b.conds = append(b.conds, cond)
	b.args = append(b.args, storage.TierUniversal, storage.TierSession, conversationID)
	b.argIndex += 3
}

// vectorValue renders an embedding as a pgvector literal, or SQL NULL when
// the memory carries no vector.
func vectorValue(vector []float64) interface{} {
	if len(vector) == 0 {
		return nil
	}
	return vectorToString(vector)
}

// vectorToString converts a vector to pgvector text format: "[0.1,0.2,...]".
func vectorToString(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}

	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// parseVectorString parses pgvector text format back into a slice.
func parseVectorString(s string) ([]float64, error) {
	s = strings.Trim(s, "[]")
	if s == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	result := make([]float64, len(parts))

	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		result[i] = val
	}

	return result, nil
}

func scanMemory(row *sql.Row) (*storage.Memory, error) {
	var memory storage.Memory
	var interactionJSON []byte
	var embeddingStr sql.NullString

	err := row.Scan(
		&memory.ID,
		&memory.UserID,
		&memory.ConversationID,
		&memory.MemoryType,
		&interactionJSON,
		&memory.QualityScore,
		&memory.RelevanceScore,
		&embeddingStr,
		&memory.CreatedAt,
		&memory.UpdatedAt,
		&memory.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeRow(&memory, interactionJSON, embeddingStr); err != nil {
		return nil, err
	}
	return &memory, nil
}

func scanMemories(rows *sql.Rows, hasScore bool) ([]*storage.Memory, error) {
	var memories []*storage.Memory

	for rows.Next() {
		var memory storage.Memory
		var interactionJSON []byte
		var embeddingStr sql.NullString

		dest := []interface{}{
			&memory.ID,
			&memory.UserID,
			&memory.ConversationID,
			&memory.MemoryType,
			&interactionJSON,
			&memory.QualityScore,
			&memory.RelevanceScore,
			&embeddingStr,
			&memory.CreatedAt,
			&memory.UpdatedAt,
			&memory.ExpiresAt,
		}
		if hasScore {
			dest = append(dest, &memory.Score)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if err := decodeRow(&memory, interactionJSON, embeddingStr); err != nil {
			return nil, err
		}

		memories = append(memories, &memory)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memories, nil
}

func decodeRow(memory *storage.Memory, interactionJSON []byte, embeddingStr sql.NullString) error {
	if len(interactionJSON) > 0 {
		if err := json.Unmarshal(interactionJSON, &memory.Interaction); err != nil {
			return fmt.Errorf("parse interaction: %w", err)
		}
	}

	if embeddingStr.Valid && embeddingStr.String != "" {
		embedding, err := parseVectorString(embeddingStr.String)
		if err != nil {
			return fmt.Errorf("parse embedding: %w", err)
		}
		memory.Embedding = embedding
	}

	return nil
}
