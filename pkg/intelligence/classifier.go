// Package intelligence provides tier classification and scoring heuristics
// for memory content.
package intelligence

import (
	"context"
	"strings"
)

// Tier, priority, retention, and kind values produced by classification.
// They mirror the storage package constants; intelligence keeps its own
// copies so it has no dependency on the persistence layer.
const (
	TierSession   = "session"
	TierUniversal = "universal"

	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"

	RetentionSession   = "session"
	RetentionShortTerm = "short_term"
	RetentionLongTerm  = "long_term"
	RetentionPermanent = "permanent"

	KindInsight    = "insight"
	KindCorrection = "correction"
	KindConcept    = "concept"
	KindPreference = "preference"
	KindGeneral    = "general"
)

// Signals is the classification input extracted from one chat turn.
type Signals struct {
	// Content is the user's query text.
	Content string

	// Response is the assistant's answer, when captured.
	Response string

	// HasConversation reports whether the turn carries a conversation ID.
	HasConversation bool
}

// Classification is the tier decision for one chat turn.
type Classification struct {
	// Tier is TierSession or TierUniversal.
	Tier string

	// Priority is one of the Priority* constants.
	Priority string

	// Retention is one of the Retention* constants.
	Retention string

	// Kind categorizes the content (insight, correction, concept,
	// preference, general).
	Kind string

	// Reason names the rule that fired, for logging.
	Reason string
}

// Classifier decides the memory tier for a chat turn.
//
// The keyword heuristic is the default implementation; callers may swap in
// a model-based classifier without touching the write path.
type Classifier interface {
	Classify(ctx context.Context, sig Signals) Classification
}

// KeywordClassifier classifies by substring matching against marker lists.
//
// Marker precedence: correction/insight markers escalate to critical,
// personal-fact and durability markers escalate to high. Either escalation
// forces the universal tier with permanent retention regardless of
// conversation context. Unescalated turns inside a conversation become
// session memories; unescalated turns without one become universal.
type KeywordClassifier struct {
	personalMarkers   []string
	durabilityMarkers []string
	correctionMarkers []string
	insightMarkers    []string
	conceptMarkers    []string
	preferenceMarkers []string
}

// NewKeywordClassifier creates a classifier with the default marker lists.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		personalMarkers: []string{
			"my name", "i am ", "i'm ", "call me", "i work",
			"i live", "my favorite", "my goal", "i prefer", "i like",
			"i dislike", "i hate", "i love", "i struggle with",
		},
		durabilityMarkers: []string{
			"remember", "key concept", "always", "never forget",
			"keep in mind", "important to know", "fundamental",
		},
		correctionMarkers: []string{
			"actually", "correction", "i meant", "that's wrong",
			"that is wrong", "not quite", "mistake",
		},
		insightMarkers: []string{
			"important distinction", "key insight", "i realize",
			"now i understand", "it clicked", "connection between",
		},
		conceptMarkers: []string{
			"key concept", "definition", "is defined as", "means that",
			"fundamental",
		},
		preferenceMarkers: []string{
			"i prefer", "i like", "i dislike", "i hate", "i love",
			"my favorite", "works best for me",
		},
	}
}

// Classify inspects content and response text for tier markers.
func (c *KeywordClassifier) Classify(_ context.Context, sig Signals) Classification {
	text := strings.ToLower(sig.Content + " " + sig.Response)

	if marker, ok := matchAny(text, c.correctionMarkers); ok {
		return Classification{
			Tier:      TierUniversal,
			Priority:  PriorityCritical,
			Retention: RetentionPermanent,
			Kind:      KindCorrection,
			Reason:    "correction marker: " + marker,
		}
	}
	if marker, ok := matchAny(text, c.insightMarkers); ok {
		return Classification{
			Tier:      TierUniversal,
			Priority:  PriorityCritical,
			Retention: RetentionPermanent,
			Kind:      KindInsight,
			Reason:    "insight marker: " + marker,
		}
	}
	if marker, ok := matchAny(text, c.personalMarkers); ok {
		kind := KindGeneral
		if _, pref := matchAny(text, c.preferenceMarkers); pref {
			kind = KindPreference
		}
		return Classification{
			Tier:      TierUniversal,
			Priority:  PriorityHigh,
			Retention: RetentionPermanent,
			Kind:      kind,
			Reason:    "personal marker: " + marker,
		}
	}
	if marker, ok := matchAny(text, c.durabilityMarkers); ok {
		kind := KindGeneral
		if _, concept := matchAny(text, c.conceptMarkers); concept {
			kind = KindConcept
		}
		return Classification{
			Tier:      TierUniversal,
			Priority:  PriorityHigh,
			Retention: RetentionPermanent,
			Kind:      kind,
			Reason:    "durability marker: " + marker,
		}
	}

	if sig.HasConversation {
		return Classification{
			Tier:      TierSession,
			Priority:  PriorityMedium,
			Retention: RetentionLongTerm,
			Kind:      KindGeneral,
			Reason:    "conversation-scoped turn",
		}
	}
	return Classification{
		Tier:      TierUniversal,
		Priority:  PriorityMedium,
		Retention: RetentionLongTerm,
		Kind:      KindGeneral,
		Reason:    "no session context",
	}
}

// matchAny returns the first marker contained in text.
func matchAny(text string, markers []string) (string, bool) {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}
