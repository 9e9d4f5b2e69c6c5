package intelligence

import "math"

// TurnSignals captures the per-turn fields that feed the scoring heuristics.
type TurnSignals struct {
	Content           string
	Response          string
	Message           string
	Topic             string
	Tags              []string
	Priority          string
	Kind              string
	Confidence        float64
	LearningObjective string
	ProcessingTimeMs  int64
	TokenCount        int
}

// QualityScore estimates how useful a memory is, in [0,1].
//
// The score is a weighted sum of independent signals on top of a 0.5 base:
// each signal adds a fixed amount and the total is capped at 1.0. More
// signal always means a higher (or equal, once capped) score. This is a
// heuristic proxy, not a learned score.
func QualityScore(sig TurnSignals) float64 {
	score := 0.5

	// Non-trivial content length
	if len(sig.Content) > 50 {
		score += 0.1
	}

	// A captured response is the strongest usefulness signal
	if sig.Response != "" {
		score += 0.2
		if sig.Confidence > 0.8 {
			score += 0.1
		}
	}

	if sig.LearningObjective != "" {
		score += 0.1
	}

	if sig.Topic != "" {
		score += 0.05
	}

	// Fast turns and short answers tend to be well-scoped exchanges
	if sig.ProcessingTimeMs > 0 && sig.ProcessingTimeMs < 2000 {
		score += 0.05
	}
	if sig.TokenCount > 0 && sig.TokenCount < 500 {
		score += 0.05
	}

	return math.Min(score, 1.0)
}

// RelevanceScore estimates retrieval importance, in [0,1].
//
// Base 0.3, plus a priority weight, fixed bonuses for message/topic/tags
// presence, and a kind weight favoring insights and corrections.
func RelevanceScore(sig TurnSignals) float64 {
	score := 0.3

	score += priorityWeight(sig.Priority)

	if sig.Message != "" {
		score += 0.2
	}
	if sig.Topic != "" {
		score += 0.1
	}
	if len(sig.Tags) > 0 {
		score += 0.1
	}

	score += kindWeight(sig.Kind)

	return math.Min(score, 1.0)
}

// priorityWeight maps a priority label to its relevance contribution.
// Unknown labels weigh the same as medium.
func priorityWeight(priority string) float64 {
	switch priority {
	case PriorityLow:
		return 0.1
	case PriorityHigh:
		return 0.3
	case PriorityCritical:
		return 0.4
	default:
		return 0.2
	}
}

// kindWeight maps a memory kind to its relevance contribution. Insights and
// corrections carry the most weight; unknown kinds weigh as general.
func kindWeight(kind string) float64 {
	switch kind {
	case KindInsight:
		return 0.35
	case KindCorrection:
		return 0.3
	case KindConcept:
		return 0.25
	case KindPreference:
		return 0.2
	default:
		return 0.15
	}
}
