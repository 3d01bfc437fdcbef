package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tenderpulse/tagger/internal/core/domain"
)

const (
	// LabelCap is the hard ceiling on labels per record.
	LabelCap = 10

	// maxAugmentInput bounds the text blob handed to augmentation.
	maxAugmentInput = 10000
)

// ConfigSource resolves the tagging rule snapshot. Resolution failure
// propagates to the caller as a record-level failure.
type ConfigSource interface {
	Snapshot(ctx context.Context) (*domain.ConfigSnapshot, error)
}

// Augmenter produces up to quota raw candidate labels for a text blob.
type Augmenter interface {
	Suggest(ctx context.Context, prompt, text string, quota int) ([]string, error)
}

// Engine attaches the final label set to a record: normalized fallback
// labels first, then AI-suggested candidates up to the cap.
type Engine struct {
	cfg ConfigSource
	aug Augmenter
	log *slog.Logger
}

// NewEngine creates a tagging engine.
func NewEngine(cfg ConfigSource, aug Augmenter, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, aug: aug, log: log}
}

// Tag rebuilds the record's label sequence in place. Augmentation
// failure is never fatal: the record keeps its baseline labels. The
// only terminal error is a configuration resolution failure.
func (e *Engine) Tag(ctx context.Context, r domain.Record) error {
	snap, err := e.cfg.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("resolve tagging rules: %w", err)
	}
	norm := NewNormalizer(snap)

	base := r.Ref()
	base.Labels = nil

	fallback := FallbackLabels(r)
	labels := norm.Normalize(fallback)

	if remaining := LabelCap - len(labels); remaining > 0 {
		if text := augmentInput(r); text != "" {
			prompt, err := snap.Prompt(r.Variant())
			if err != nil {
				return err
			}
			cands, err := e.aug.Suggest(ctx, prompt, text, remaining)
			if err != nil {
				e.log.Warn("augmentation failed, keeping fallback labels",
					"record", base.ID, "variant", r.Variant(), "error", err)
			} else if len(cands) > 0 {
				// Re-running the gate over fallback plus candidates
				// folds duplicates across both sets while keeping
				// first-produced order.
				labels = norm.Normalize(append(fallback, cands...))
			}
		}
	}

	if len(labels) > LabelCap {
		labels = labels[:LabelCap]
	}
	sort.Strings(labels)
	base.Labels = labels
	return nil
}

// augmentInput concatenates the record's free-text fields into the
// blob sent for augmentation, truncated to maxAugmentInput runes.
// Empty output means augmentation is skipped, which is benign.
func augmentInput(r domain.Record) string {
	base := r.Ref()
	var b strings.Builder
	writeSection(&b, "Title", base.Title)
	writeSection(&b, "Description", base.Description)
	writeSection(&b, "Summary", base.Summary)
	writeSection(&b, "Details", r.Body())

	text := strings.TrimSpace(b.String())
	if runes := []rune(text); len(runes) > maxAugmentInput {
		text = string(runes[:maxAugmentInput]) + "..."
	}
	return text
}

func writeSection(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
