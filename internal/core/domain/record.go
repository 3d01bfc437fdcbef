package domain

import (
	"encoding/json"
	"fmt"
)

// Variant identifies the shape of a record. The set is closed: the
// pipeline only ever sees these three document kinds.
type Variant string

const (
	VariantTender  Variant = "tender"
	VariantBursary Variant = "bursary"
	VariantEvent   Variant = "event"
)

// Base holds the fields shared by every record variant.
type Base struct {
	Kind        Variant  `json:"variant"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Summary     string   `json:"summary"`
	Province    string   `json:"province"`
	Labels      []string `json:"labels"`
}

// Ref exposes the shared fields for mutation (the tagging engine
// rebuilds Labels in place).
func (b *Base) Ref() *Base { return b }

// Record is one unit of work flowing through the pipeline.
type Record interface {
	Ref() *Base
	Variant() Variant

	// FallbackFields returns the variant-specific structured fields
	// that feed the deterministic fallback labels. Empty fields are
	// allowed; the extractor skips them.
	FallbackFields() []string

	// Body returns the long-form text, empty on variants without one.
	Body() string
}

// Tender is a procurement notice. The only variant carrying a
// long-form body.
type Tender struct {
	Base
	Institution string `json:"institution"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	FullText    string `json:"body,omitempty"`
}

func (t *Tender) Variant() Variant { return VariantTender }

func (t *Tender) FallbackFields() []string {
	return []string{t.Institution, t.Category, t.Status}
}

func (t *Tender) Body() string { return t.FullText }

// Bursary is a funding opportunity notice.
type Bursary struct {
	Base
	Audience string `json:"audience"`
}

func (b *Bursary) Variant() Variant { return VariantBursary }

func (b *Bursary) FallbackFields() []string { return []string{b.Audience} }

func (b *Bursary) Body() string { return "" }

// Event is a scheduled session notice. The briefing flag contributes a
// literal label rather than a field value.
type Event struct {
	Base
	Briefing bool `json:"briefing"`
}

func (e *Event) Variant() Variant { return VariantEvent }

func (e *Event) FallbackFields() []string {
	if e.Briefing {
		return []string{"Briefing Session"}
	}
	return nil
}

func (e *Event) Body() string { return "" }

// DecodeRecord deserializes a record into its typed variant based on
// the "variant" discriminant field.
func DecodeRecord(data []byte) (Record, error) {
	var probe struct {
		Kind Variant `json:"variant"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}

	var rec Record
	switch probe.Kind {
	case VariantTender:
		rec = &Tender{}
	case VariantBursary:
		rec = &Bursary{}
	case VariantEvent:
		rec = &Event{}
	default:
		return nil, fmt.Errorf("unknown record variant %q", probe.Kind)
	}

	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s record: %w", probe.Kind, err)
	}
	if rec.Ref().ID == "" {
		return nil, fmt.Errorf("record has no id")
	}
	return rec, nil
}

// EncodeRecord serializes a record with its discriminant intact.
func EncodeRecord(r Record) ([]byte, error) {
	r.Ref().Kind = r.Variant()
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", r.Ref().ID, err)
	}
	return data, nil
}
