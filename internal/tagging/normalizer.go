package tagging

import (
	"strings"

	"github.com/tenderpulse/tagger/internal/core/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Characters stripped from label edges before any other rule runs.
const labelCutset = " \t\r\n\"'`.,;:!?()[]{}-"

// Normalizer is the label quality gate: trim, reject short and
// block-listed candidates, canonicalize via the mapping table or
// title-casing, and deduplicate under plural folding. Pure and
// deterministic for a fixed rule set.
type Normalizer struct {
	snap *domain.ConfigSnapshot
}

// NewNormalizer builds a normalizer over a configuration snapshot.
func NewNormalizer(snap *domain.ConfigSnapshot) *Normalizer {
	return &Normalizer{snap: snap}
}

// Normalize applies the quality gate to a raw candidate sequence.
// Membership of the result is order-independent; input order decides
// only which of two colliding surface forms survives.
func (n *Normalizer) Normalize(candidates []string) []string {
	titler := cases.Title(language.English)

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))

	for _, raw := range candidates {
		c := strings.Trim(raw, labelCutset)
		if len(c) <= 2 {
			continue
		}
		lower := strings.ToLower(c)
		if n.snap.Blocked(lower) {
			continue
		}

		label, ok := n.snap.Mapping[lower]
		if !ok {
			label = titler.String(c)
		}

		// Plural folding: "Service" and "Services" are one label,
		// whichever surfaces first is kept.
		key := strings.ToLower(label)
		singular := strings.TrimSuffix(key, "s")
		if _, dup := seen[singular]; dup {
			continue
		}
		if _, dup := seen[singular+"s"]; dup {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, label)
	}

	return out
}
