// Package core provides the recall client facade over storage, embedding,
// classification, and search.
package core

import (
	"github.com/studyloop/recall/pkg/storage"
)

// toStorageMemory converts a core.Memory to storage.Memory.
//
// This function is used internally to convert between the public API type
// and the persistence type.
func toStorageMemory(m *Memory) *storage.Memory {
	return &storage.Memory{
		ID:             m.ID,
		UserID:         m.UserID,
		ConversationID: m.ConversationID,
		MemoryType:     m.MemoryType,
		Interaction:    toStorageInteraction(m.Interaction),
		QualityScore:   m.QualityScore,
		RelevanceScore: m.RelevanceScore,
		Embedding:      m.Embedding,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		ExpiresAt:      m.ExpiresAt,
		Score:          m.Score,
	}
}

// fromStorageMemory converts a storage.Memory to core.Memory.
func fromStorageMemory(m *storage.Memory) *Memory {
	return &Memory{
		ID:             m.ID,
		UserID:         m.UserID,
		ConversationID: m.ConversationID,
		MemoryType:     m.MemoryType,
		Interaction:    fromStorageInteraction(m.Interaction),
		QualityScore:   m.QualityScore,
		RelevanceScore: m.RelevanceScore,
		Embedding:      m.Embedding,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		ExpiresAt:      m.ExpiresAt,
		Score:          m.Score,
	}
}

// fromStorageMemories converts a slice of storage.Memory to core.Memory.
func fromStorageMemories(memories []*storage.Memory) []*Memory {
	result := make([]*Memory, len(memories))
	for i, m := range memories {
		result[i] = fromStorageMemory(m)
	}
	return result
}

func toStorageInteraction(in Interaction) storage.InteractionData {
	return storage.InteractionData{
		Content:           in.Content,
		Response:          in.Response,
		Message:           in.Message,
		Topic:             in.Topic,
		Tags:              in.Tags,
		Priority:          in.Priority,
		Retention:         in.Retention,
		LearningObjective: in.LearningObjective,
		Confidence:        in.Confidence,
		ProcessingTimeMs:  in.ProcessingTimeMs,
		TokenCount:        in.TokenCount,
		MemoryKind:        in.MemoryKind,
		Context:           in.Context,
		Provenance:        toStorageProvenance(in.Provenance),
	}
}

func fromStorageInteraction(in storage.InteractionData) Interaction {
	return Interaction{
		Content:           in.Content,
		Response:          in.Response,
		Message:           in.Message,
		Topic:             in.Topic,
		Tags:              in.Tags,
		Priority:          in.Priority,
		Retention:         in.Retention,
		LearningObjective: in.LearningObjective,
		Confidence:        in.Confidence,
		ProcessingTimeMs:  in.ProcessingTimeMs,
		TokenCount:        in.TokenCount,
		MemoryKind:        in.MemoryKind,
		Context:           in.Context,
		Provenance:        fromStorageProvenance(in.Provenance),
	}
}

func toStorageProvenance(p *Provenance) *storage.Provenance {
	if p == nil {
		return nil
	}
	return &storage.Provenance{
		Revision:          p.Revision,
		PreviousUpdatedAt: p.PreviousUpdatedAt,
	}
}

func fromStorageProvenance(p *storage.Provenance) *Provenance {
	if p == nil {
		return nil
	}
	return &Provenance{
		Revision:          p.Revision,
		PreviousUpdatedAt: p.PreviousUpdatedAt,
	}
}
