package pipeline

import "strings"

// greetingSet holds normalized shortcut phrases that are answered with the
// canned reply instead of a backend call. Matching is exact after trim and
// case-fold; no fuzzy or partial matching.
type greetingSet map[string]struct{}

func newGreetingSet(phrases []string) greetingSet {
	set := make(greetingSet, len(phrases))
	for _, phrase := range phrases {
		normalized := normalizePhrase(phrase)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}

	return set
}

func (g greetingSet) match(text string) bool {
	_, ok := g[normalizePhrase(text)]
	return ok
}

func normalizePhrase(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
