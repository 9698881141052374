package fusion

import (
	"strings"

	"distill/internal/synth"
)

// summaryFallbackRunes bounds the summary synthesized from extracted text
// when the provider produced none.
const summaryFallbackRunes = 200

// Normalize post-processes provider output: deduplicates keywords and key
// points, trims whitespace, and backfills a summary from the extracted text
// when the provider produced none.
func Normalize(knowledge *synth.Knowledge, extractedText string) {
	if knowledge == nil {
		return
	}
	knowledge.Keywords = dedupeStrings(knowledge.Keywords)
	knowledge.KeyPoints = dedupeStrings(knowledge.KeyPoints)
	knowledge.Summary = strings.TrimSpace(knowledge.Summary)

	if knowledge.Summary == "" {
		text := strings.TrimSpace(extractedText)
		runes := []rune(text)
		if len(runes) > summaryFallbackRunes {
			text = string(runes[:summaryFallbackRunes]) + "..."
		}
		knowledge.Summary = text
	}
}

// dedupeStrings removes empty and case-insensitively repeated entries,
// keeping first occurrences in order.
func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
