package domain

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

// FailureEnvelope carries a failed record to the failure destination
// with enough context to inspect or replay it.
type FailureEnvelope struct {
	ID       string          `json:"id"`
	Source   string          `json:"source"`
	Kind     FailureKind     `json:"kind"`
	Message  string          `json:"message"`
	Stack    string          `json:"stack,omitempty"`
	GroupKey string          `json:"group_key"`
	Body     json.RawMessage `json:"body"`
	FailedAt time.Time       `json:"failed_at"`
}

// NewFailureEnvelope wraps the original serialized body of a failed
// record. Source names the producing component.
func NewFailureEnvelope(source string, kind FailureKind, err error, rec QueueRecord) FailureEnvelope {
	body := json.RawMessage(rec.Body)
	if !json.Valid(body) {
		// Deserialization failures carry arbitrary bytes; quote them
		// so the envelope itself stays encodable.
		body, _ = json.Marshal(string(rec.Body))
	}
	return FailureEnvelope{
		ID:       uuid.New().String(),
		Source:   source,
		Kind:     kind,
		Message:  err.Error(),
		Stack:    string(debug.Stack()),
		GroupKey: rec.GroupKey,
		Body:     body,
		FailedAt: time.Now().UTC(),
	}
}

// Encode serializes the envelope for the failure destination.
func (e FailureEnvelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode failure envelope: %w", err)
	}
	return data, nil
}
