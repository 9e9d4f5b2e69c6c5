package search

import (
	"math"
	"strings"
	"unicode"

	"github.com/studyloop/recall/pkg/storage"
)

// Lexical scoring constants. The values are heuristic: verbatim substring
// match dominates, word overlap fills in below it. They are tunable as long
// as scores stay monotonic in overlap and verbatim stays highest.
const (
	verbatimScore  = 0.9
	overlapCeiling = 0.8
	overlapWeight  = 0.7
	positionBonus  = 0.1

	// minTokenLen drops short query tokens ("to", "a") that match almost
	// anything and dilute the overlap ratio.
	minTokenLen = 3
)

// lexicalScore computes the cheap text-match score between a query and one
// memory's text in [0,1].
//
// A verbatim case-insensitive substring match scores 0.9 outright.
// Otherwise the score is the fraction of query tokens that overlap a
// content token (substring containment in either direction), scaled by
// overlapWeight, with a small bonus when the leading query token matched,
// capped at overlapCeiling. This is an explainable approximation used when
// vector search is unavailable, not a substitute for it.
func lexicalScore(query, content string) float64 {
	query = strings.ToLower(strings.TrimSpace(query))
	content = strings.ToLower(content)
	if query == "" || content == "" {
		return 0
	}

	if strings.Contains(content, query) {
		return verbatimScore
	}

	queryTokens := tokenize(query, minTokenLen)
	contentTokens := tokenize(content, 1)
	if len(queryTokens) == 0 || len(contentTokens) == 0 {
		return 0
	}

	matched := 0
	firstMatched := false
	for i, qt := range queryTokens {
		if overlaps(qt, contentTokens) {
			matched++
			if i == 0 {
				firstMatched = true
			}
		}
	}
	if matched == 0 {
		return 0
	}

	score := float64(matched) / float64(len(queryTokens)) * overlapWeight
	if firstMatched {
		score += positionBonus
	}
	return math.Min(overlapCeiling, score)
}

// overlaps reports whether token shares a substring relation with any
// content token, in either direction.
func overlaps(token string, contentTokens []string) bool {
	for _, ct := range contentTokens {
		if strings.Contains(ct, token) || strings.Contains(token, ct) {
			return true
		}
	}
	return false
}

// tokenize splits text on non-letter/non-digit runs and drops tokens
// shorter than minLen.
func tokenize(text string, minLen int) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= minLen {
			out = append(out, f)
		}
	}
	return out
}

// memoryText extracts the text to score for a memory, trying content,
// message, then response in that priority.
func memoryText(m *storage.Memory) string {
	if m.Interaction.Content != "" {
		return m.Interaction.Content
	}
	if m.Interaction.Message != "" {
		return m.Interaction.Message
	}
	return m.Interaction.Response
}
