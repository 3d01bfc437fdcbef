package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tenderpulse/tagger/internal/core/domain"
)

type mockQueue struct {
	receives  [][]domain.QueueRecord
	recvCalls int
	recvErr   error

	sends    map[string][][]domain.Payload
	sendErrs map[string]error

	deleted   [][]string
	deleteErr error
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		sends:    map[string][][]domain.Payload{},
		sendErrs: map[string]error{},
	}
}

func (m *mockQueue) Receive(ctx context.Context, stream string, max int64) ([]domain.QueueRecord, error) {
	if m.recvErr != nil {
		return nil, m.recvErr
	}
	m.recvCalls++
	if m.recvCalls > len(m.receives) {
		return nil, nil
	}
	return m.receives[m.recvCalls-1], nil
}

func (m *mockQueue) SendBatch(ctx context.Context, stream string, payloads []domain.Payload) error {
	if err := m.sendErrs[stream]; err != nil {
		return err
	}
	m.sends[stream] = append(m.sends[stream], payloads)
	return nil
}

func (m *mockQueue) DeleteBatch(ctx context.Context, stream string, ids []string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, ids)
	return nil
}

type fakeTagger struct {
	errFor map[string]error
	tagged []string
}

func (f *fakeTagger) Tag(ctx context.Context, r domain.Record) error {
	id := r.Ref().ID
	f.tagged = append(f.tagged, id)
	if err := f.errFor[id]; err != nil {
		return err
	}
	r.Ref().Labels = []string{"Tagged"}
	return nil
}

func testOrchestrator(q Queue, tag Tagger) *Orchestrator {
	return New(q, tag, Config{
		SourceStream:   "src",
		EnrichedStream: "enriched",
		FailedStream:   "failed",
		BatchSize:      10,
		SafetyMargin:   time.Second,
	}, nil)
}

func tenderRecord(id string) domain.QueueRecord {
	body, _ := json.Marshal(map[string]any{
		"variant": "tender", "id": id, "title": "T-" + id, "province": "Gauteng",
	})
	return domain.QueueRecord{ID: "q-" + id, GroupKey: "tenders", Body: body}
}

func TestRun_RoutesAndDeletes(t *testing.T) {
	q := newMockQueue()
	seed := []domain.QueueRecord{
		tenderRecord("r1"),
		{ID: "q-r2", GroupKey: "tenders", Body: []byte("not json")},
		tenderRecord("r3"),
	}

	sum, err := testOrchestrator(q, &fakeTagger{}).Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sum.Processed != 2 || sum.Failed != 1 || sum.Deleted != 3 || sum.Batches != 1 {
		t.Errorf("summary = %+v, want processed=2 failed=1 deleted=3 batches=1", sum)
	}

	if got := len(q.sends["enriched"]); got != 1 {
		t.Fatalf("enriched sends = %d, want 1", got)
	}
	if got := len(q.sends["enriched"][0]); got != 2 {
		t.Errorf("enriched payloads = %d, want 2", got)
	}
	if got := len(q.sends["failed"]); got != 1 {
		t.Fatalf("failed sends = %d, want 1", got)
	}

	var env domain.FailureEnvelope
	if err := json.Unmarshal(q.sends["failed"][0][0].Body, &env); err != nil {
		t.Fatalf("failure envelope not decodable: %v", err)
	}
	if env.Kind != domain.FailureDeserialization {
		t.Errorf("envelope kind = %s, want deserialization", env.Kind)
	}
	var original string
	if err := json.Unmarshal(env.Body, &original); err != nil || original != "not json" {
		t.Errorf("envelope body = %q, want quoted original payload", env.Body)
	}
	if env.GroupKey != "tenders" {
		t.Errorf("envelope group key = %q", env.GroupKey)
	}

	if len(q.deleted) != 1 || len(q.deleted[0]) != 3 {
		t.Errorf("deleted = %v, want all three entry ids", q.deleted)
	}
}

func TestRun_EnrichedPayloadCarriesLabels(t *testing.T) {
	q := newMockQueue()
	sum, err := testOrchestrator(q, &fakeTagger{}).Run(context.Background(),
		[]domain.QueueRecord{tenderRecord("r1")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Processed != 1 {
		t.Fatalf("processed = %d, want 1", sum.Processed)
	}

	rec, err := domain.DecodeRecord(q.sends["enriched"][0][0].Body)
	if err != nil {
		t.Fatalf("enriched payload not decodable: %v", err)
	}
	labels := rec.Ref().Labels
	if len(labels) != 1 || labels[0] != "Tagged" {
		t.Errorf("labels = %v, want [Tagged]", labels)
	}
}

func TestRun_TaggingErrorIsolatesRecord(t *testing.T) {
	q := newMockQueue()
	tag := &fakeTagger{errFor: map[string]error{"r2": domain.ErrMissingConfig}}
	seed := []domain.QueueRecord{tenderRecord("r1"), tenderRecord("r2"), tenderRecord("r3")}

	sum, err := testOrchestrator(q, tag).Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Processed != 2 || sum.Failed != 1 || sum.Deleted != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if len(tag.tagged) != 3 {
		t.Errorf("tagged = %v, want all three attempted", tag.tagged)
	}
}

func TestRun_SuccessSendFailureDemotesBatch(t *testing.T) {
	q := newMockQueue()
	q.sendErrs["enriched"] = errors.New("downstream unavailable")
	seed := []domain.QueueRecord{tenderRecord("r1"), tenderRecord("r2")}

	sum, err := testOrchestrator(q, &fakeTagger{}).Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Processed != 0 || sum.Failed != 2 || sum.Deleted != 2 {
		t.Errorf("summary = %+v, want processed=0 failed=2 deleted=2", sum)
	}

	if got := len(q.sends["failed"][0]); got != 2 {
		t.Fatalf("failed payloads = %d, want 2", got)
	}
	var env domain.FailureEnvelope
	if err := json.Unmarshal(q.sends["failed"][0][0].Body, &env); err != nil {
		t.Fatalf("envelope not decodable: %v", err)
	}
	if env.Kind != domain.FailureDelivery {
		t.Errorf("envelope kind = %s, want delivery", env.Kind)
	}
}

func TestRun_FailureSendFailureAborts(t *testing.T) {
	q := newMockQueue()
	q.sendErrs["failed"] = errors.New("failure queue down")
	seed := []domain.QueueRecord{
		tenderRecord("r1"),
		{ID: "q-bad", Body: []byte("not json")},
	}

	sum, err := testOrchestrator(q, &fakeTagger{}).Run(context.Background(), seed)
	if err == nil {
		t.Fatal("expected invocation abort")
	}
	if sum.Failed != 0 {
		t.Errorf("failed = %d, want 0 (nothing routed)", sum.Failed)
	}
	if len(q.deleted) != 0 {
		t.Errorf("deleted = %v, want nothing deleted", q.deleted)
	}
	// The enriched send already committed before the abort.
	if got := len(q.sends["enriched"]); got != 1 {
		t.Errorf("enriched sends = %d, want 1", got)
	}
}

func TestRun_DeleteFailureIsNotFatal(t *testing.T) {
	q := newMockQueue()
	q.deleteErr = errors.New("ack lost")

	sum, err := testOrchestrator(q, &fakeTagger{}).Run(context.Background(),
		[]domain.QueueRecord{tenderRecord("r1")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Processed != 1 || sum.Deleted != 0 {
		t.Errorf("summary = %+v, want processed=1 deleted=0", sum)
	}
}

func TestRun_DrainsUntilEmpty(t *testing.T) {
	q := newMockQueue()
	q.receives = [][]domain.QueueRecord{
		{tenderRecord("r2"), tenderRecord("r3")},
		{tenderRecord("r4")},
	}

	sum, err := testOrchestrator(q, &fakeTagger{}).Run(context.Background(),
		[]domain.QueueRecord{tenderRecord("r1")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Batches != 3 || sum.Processed != 4 || sum.Deleted != 4 {
		t.Errorf("summary = %+v, want batches=3 processed=4 deleted=4", sum)
	}
	if q.recvCalls != 3 {
		t.Errorf("receive calls = %d, want 3 (last reports empty)", q.recvCalls)
	}
}

func TestRun_StopsWhenBudgetExhausted(t *testing.T) {
	q := newMockQueue()
	q.receives = [][]domain.QueueRecord{{tenderRecord("r2")}}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Safety margin larger than the remaining budget: the seed batch
	// still runs, further polling does not.
	orch := New(q, &fakeTagger{}, Config{
		SourceStream:   "src",
		EnrichedStream: "enriched",
		FailedStream:   "failed",
		BatchSize:      10,
		SafetyMargin:   time.Minute,
	}, nil)

	sum, err := orch.Run(ctx, []domain.QueueRecord{tenderRecord("r1")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sum.Batches != 1 || sum.Processed != 1 {
		t.Errorf("summary = %+v, want a single seed batch", sum)
	}
	if q.recvCalls != 0 {
		t.Errorf("receive calls = %d, want 0", q.recvCalls)
	}
}

func TestRun_ReceiveErrorAborts(t *testing.T) {
	q := newMockQueue()
	q.recvErr = fmt.Errorf("connection reset")

	_, err := testOrchestrator(q, &fakeTagger{}).Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected receive error to abort the invocation")
	}
}

func TestSummary_String(t *testing.T) {
	s := Summary{Batches: 2, Processed: 5, Failed: 1, Deleted: 6, Duration: 1500 * time.Millisecond}
	got := s.String()
	want := "batches=2 processed=5 failed=1 deleted=6 duration=1.5s"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
