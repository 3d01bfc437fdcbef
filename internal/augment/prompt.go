package augment

import (
	"fmt"
	"strings"
)

// taskDirective is the dynamically generated instruction appended to
// the combined prompt: one master-category label plus quota-1 free
// keywords, returned as a bare comma-separated list.
func taskDirective(quota int) string {
	return fmt.Sprintf(
		"Select exactly 1 label from the master category list above and generate exactly %d additional keywords describing the text below. Return all %d as a single flat comma-separated list with no other content.",
		quota-1, quota)
}

// composePrompt assembles the full prompt sent to the model.
func composePrompt(combined, text string, quota int) string {
	var b strings.Builder
	b.WriteString(combined)
	b.WriteString("\n\n")
	b.WriteString(taskDirective(quota))
	b.WriteString("\n\nText:\n")
	b.WriteString(text)
	return b.String()
}

// splitCandidates turns the model's comma-separated reply into raw
// candidate labels. Empty pieces are dropped.
func splitCandidates(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
