package search

// Diversity filter sizes.
const (
	lightKeep        = 2
	balancedPool     = 4
	balancedPerTopic = 2
	defaultKeep      = 3
)

// applyContextLevel applies the context-level diversity filter over the
// truncated result list. An empty level leaves the list untouched.
func applyContextLevel(results []Result, level string) []Result {
	switch level {
	case "":
		return results
	case ContextLight:
		return truncate(results, lightKeep)
	case ContextBalanced:
		return balancedSelect(results)
	case ContextComprehensive:
		return results
	default:
		return truncate(results, defaultKeep)
	}
}

// balancedSelect walks the top candidates in rank order, admitting up to
// two results per topic key and otherwise preferring topic diversity: a
// candidate whose topic is already represented is skipped once at least
// two results have been chosen.
func balancedSelect(results []Result) []Result {
	pool := truncate(results, balancedPool)
	selected := make([]Result, 0, len(pool))
	topicCount := make(map[string]int)

	for _, r := range pool {
		topic := r.Memory.Interaction.Topic
		count := topicCount[topic]
		if count >= balancedPerTopic {
			continue
		}
		if count > 0 && len(selected) >= 2 {
			continue
		}
		topicCount[topic]++
		selected = append(selected, r)
	}
	return selected
}

func truncate(results []Result, n int) []Result {
	if len(results) <= n {
		return results
	}
	return results[:n]
}
