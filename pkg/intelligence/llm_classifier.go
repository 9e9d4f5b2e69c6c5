package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/studyloop/recall/pkg/llm"
)

// LLMClassifier classifies memory tiers using an LLM, falling back to the
// keyword classifier when the model call fails or returns an unusable
// answer. The fallback keeps classification available when the model
// provider is down.
type LLMClassifier struct {
	llm      llm.Provider
	fallback *KeywordClassifier
}

// NewLLMClassifier creates an LLM-backed classifier.
//
// Parameters:
//   - provider: LLM provider used for classification (must not be nil)
//
// Returns a new LLMClassifier with a keyword fallback.
func NewLLMClassifier(provider llm.Provider) *LLMClassifier {
	return &LLMClassifier{
		llm:      provider,
		fallback: NewKeywordClassifier(),
	}
}

// Classify asks the LLM for a tier decision and validates the answer.
func (c *LLMClassifier) Classify(ctx context.Context, sig Signals) Classification {
	if c.llm == nil {
		return c.fallback.Classify(ctx, sig)
	}

	systemPrompt := `You are a memory tier classifier for a tutoring system.
Classify the given chat turn and return a JSON object with these fields:
  "tier": "session" or "universal"
  "priority": "low", "medium", "high", or "critical"
  "retention": "session", "short_term", "long_term", or "permanent"
  "kind": "insight", "correction", "concept", "preference", or "general"
Personal facts, corrections, and insights must be "universal" with "permanent" retention.`

	userPrompt := fmt.Sprintf("Content: %s\nResponse: %s\nIn conversation: %t\n\nReturn only the JSON object.",
		sig.Content, sig.Response, sig.HasConversation)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	response, err := c.llm.GenerateWithMessages(ctx, messages)
	if err != nil {
		return c.fallback.Classify(ctx, sig)
	}

	cls, ok := parseClassification(response)
	if !ok {
		return c.fallback.Classify(ctx, sig)
	}
	return cls
}

// parseClassification extracts and validates a Classification from an LLM
// response. Responses with out-of-vocabulary values are rejected so a
// hallucinated label never reaches storage.
func parseClassification(response string) (Classification, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}") + 1
	if start < 0 || end <= start {
		return Classification{}, false
	}

	var raw struct {
		Tier      string `json:"tier"`
		Priority  string `json:"priority"`
		Retention string `json:"retention"`
		Kind      string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(response[start:end]), &raw); err != nil {
		return Classification{}, false
	}

	if !oneOf(raw.Tier, TierSession, TierUniversal) {
		return Classification{}, false
	}
	if !oneOf(raw.Priority, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical) {
		return Classification{}, false
	}
	if !oneOf(raw.Retention, RetentionSession, RetentionShortTerm, RetentionLongTerm, RetentionPermanent) {
		return Classification{}, false
	}
	if !oneOf(raw.Kind, KindInsight, KindCorrection, KindConcept, KindPreference, KindGeneral) {
		return Classification{}, false
	}

	return Classification{
		Tier:      raw.Tier,
		Priority:  raw.Priority,
		Retention: raw.Retention,
		Kind:      raw.Kind,
		Reason:    "llm classification",
	}, true
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
