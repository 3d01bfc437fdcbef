package domain

// QueueRecord wraps one delivered queue entry. The ID doubles as the
// acknowledgment token; a record left unacknowledged is redelivered by
// the queue after its visibility timeout.
type QueueRecord struct {
	ID         string
	GroupKey   string
	Body       []byte
	Attributes map[string]string
}

// Payload is an outbound queue entry.
type Payload struct {
	GroupKey string
	Body     []byte
}
