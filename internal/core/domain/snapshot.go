package domain

import (
	"fmt"
	"strings"
)

// ConfigSnapshot holds the tagging rules resolved from the remote
// parameter store. Fetched once per process lifetime and shared
// read-only by all engine invocations.
type ConfigSnapshot struct {
	// Blocklist holds lowercase labels that never survive the gate.
	Blocklist map[string]struct{}

	// Mapping maps lowercase surface forms to their canonical label.
	Mapping map[string]string

	// Categories is the master category list injected into prompts.
	Categories []string

	// Prompts holds the combined instruction prompt per variant
	// (base prompt + master category list + variant instruction).
	Prompts map[Variant]string
}

// Prompt returns the combined prompt for a variant.
func (s *ConfigSnapshot) Prompt(v Variant) (string, error) {
	p, ok := s.Prompts[v]
	if !ok || strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("prompt for variant %q: %w", v, ErrMissingConfig)
	}
	return p, nil
}

// Blocked reports whether a label is block-listed, ignoring case.
func (s *ConfigSnapshot) Blocked(label string) bool {
	_, ok := s.Blocklist[strings.ToLower(label)]
	return ok
}
