package tagging

import (
	"strings"

	"github.com/tenderpulse/tagger/internal/core/domain"
)

// FallbackLabels derives the deterministic baseline label set from a
// record's structured fields: the variant name, the province, and the
// variant-specific fields. Empty fields are skipped; duplicates are
// folded case-insensitively. Never fails.
func FallbackLabels(r domain.Record) []string {
	fields := make([]string, 0, 6)
	fields = append(fields, string(r.Variant()))
	fields = append(fields, r.Ref().Province)
	fields = append(fields, r.FallbackFields()...)

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}
