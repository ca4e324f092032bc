package pipeline

import (
	"fmt"
	"strings"
)

const (
	// maxAnswerLength caps outbound replies; longer answers are cut to
	// truncateLength and the ellipsis marker is appended.
	maxAnswerLength = 1000
	truncateLength  = 997
	ellipsisMarker  = "..."
)

// Suppression reasons, in check order.
const (
	ReasonEmpty      = "empty"
	ReasonLeakSignal = "leak-signal"
	ReasonRepetition = "runaway-repetition"
)

// Sanitizer applies outbound answer policy: shape coercion, length clamp,
// config-leak detection, and the runaway-repetition heuristic.
type Sanitizer struct {
	instanceID  string
	repeatToken string
	repeatLimit int
}

// NewSanitizer builds a sanitizer. instanceID is the platform credential
// fragment whose presence in an answer marks a config leak. repeatToken is
// optional; when empty the repetition check is disabled.
func NewSanitizer(instanceID, repeatToken string, repeatLimit int) *Sanitizer {
	if repeatLimit <= 0 {
		repeatLimit = 4
	}

	return &Sanitizer{
		instanceID:  strings.TrimSpace(instanceID),
		repeatToken: strings.ToLower(strings.TrimSpace(repeatToken)),
		repeatLimit: repeatLimit,
	}
}

// Sanitize turns the backend's raw answer into reply text. A non-empty
// reason means the answer is suppressed and nothing may be sent; the first
// violated check determines the reason.
func (s *Sanitizer) Sanitize(raw any) (text string, reason string) {
	text = coerceText(raw)
	if strings.TrimSpace(text) == "" {
		return "", ReasonEmpty
	}

	text = clamp(text)

	if s.instanceID != "" && strings.Contains(text, s.instanceID) {
		return "", ReasonLeakSignal
	}

	if s.repeatToken != "" {
		occurrences := strings.Count(strings.ToLower(text), s.repeatToken)
		if occurrences > s.repeatLimit {
			return "", ReasonRepetition
		}
	}

	return text, ""
}

// coerceText flattens the backend answer into plain text. List-shaped
// answers become one newline-delimited string.
func coerceText(raw any) string {
	switch value := raw.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		return strings.Join(value, "\n")
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if text, ok := item.(string); ok {
				parts = append(parts, text)
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(value)
	}
}

// clamp truncates oversized answers. Counted in runes so multi-byte text
// is not cut mid-character.
func clamp(text string) string {
	runes := []rune(text)
	if len(runes) <= maxAnswerLength {
		return text
	}

	return string(runes[:truncateLength]) + ellipsisMarker
}
