package domain

import "errors"

// Sentinel errors for the failure taxonomy. Record-level failures are
// wrapped with context; callers classify with errors.Is.
var (
	// ErrMissingConfig signals an absent remote parameter. Tagging
	// cannot proceed without rules, so this is fatal for the record.
	ErrMissingConfig = errors.New("missing configuration parameter")

	// ErrInvalidConfig signals a malformed remote parameter value.
	ErrInvalidConfig = errors.New("invalid configuration parameter")

	// ErrAugmentationFailed signals that the text-generation call
	// exhausted its retries or failed terminally. Never fatal for the
	// record; the engine falls back to baseline labels.
	ErrAugmentationFailed = errors.New("augmentation failed")
)

// FailureKind tags a failure envelope with the stage that produced it.
type FailureKind string

const (
	FailureDeserialization FailureKind = "deserialization"
	FailureTagging         FailureKind = "tagging"
	FailureDelivery        FailureKind = "delivery"
)
