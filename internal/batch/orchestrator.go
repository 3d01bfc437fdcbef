package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tenderpulse/tagger/internal/core/domain"
	"github.com/tenderpulse/tagger/internal/metrics"
)

// component tags failure envelopes with their producer.
const component = "tagger"

// Queue is the queue collaborator consumed by the orchestrator.
type Queue interface {
	Receive(ctx context.Context, stream string, max int64) ([]domain.QueueRecord, error)
	SendBatch(ctx context.Context, stream string, payloads []domain.Payload) error
	DeleteBatch(ctx context.Context, stream string, ids []string) error
}

// Tagger enriches one record in place.
type Tagger interface {
	Tag(ctx context.Context, r domain.Record) error
}

// Config holds the orchestrator's routing targets and drain settings.
type Config struct {
	SourceStream   string
	EnrichedStream string
	FailedStream   string
	BatchSize      int64
	SafetyMargin   time.Duration
}

// Orchestrator turns an inbound batch into three disjoint outcomes:
// enriched records sent downstream, failure envelopes sent to the
// failure destination, and unrouted records left on the source for
// redelivery. Records are processed strictly sequentially.
type Orchestrator struct {
	queue  Queue
	engine Tagger
	cfg    Config
	log    *slog.Logger
}

// New creates an orchestrator.
func New(queue Queue, engine Tagger, cfg Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.SafetyMargin == 0 {
		cfg.SafetyMargin = 15 * time.Second
	}
	return &Orchestrator{queue: queue, engine: engine, cfg: cfg, log: log}
}

// Summary is the per-invocation result.
type Summary struct {
	Batches   int
	Processed int
	Failed    int
	Deleted   int
	Duration  time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("batches=%d processed=%d failed=%d deleted=%d duration=%s",
		s.Batches, s.Processed, s.Failed, s.Deleted, s.Duration.Round(time.Millisecond))
}

// failure pairs a record with the error that isolated it.
type failure struct {
	rec  domain.QueueRecord
	kind domain.FailureKind
	err  error
}

// Run executes one invocation: the triggering batch first, then
// continued polling until the source reports empty or the remaining
// time budget falls under the safety margin. A failure-destination
// send failure aborts the invocation; everything else is absorbed at
// record or batch granularity.
func (o *Orchestrator) Run(ctx context.Context, seed []domain.QueueRecord) (Summary, error) {
	start := time.Now()
	var sum Summary
	defer func() {
		metrics.InvocationDuration.Observe(time.Since(start).Seconds())
	}()

	batch := seed
	for {
		if len(batch) > 0 {
			sum.Batches++
			metrics.BatchesTotal.Inc()

			processed, failed, deleted, err := o.handleBatch(ctx, batch)
			sum.Processed += processed
			sum.Failed += failed
			sum.Deleted += deleted
			if err != nil {
				sum.Duration = time.Since(start)
				return sum, err
			}
		}

		if !o.budgetRemaining(ctx) {
			break
		}

		var err error
		batch, err = o.queue.Receive(ctx, o.cfg.SourceStream, o.cfg.BatchSize)
		if err != nil {
			sum.Duration = time.Since(start)
			return sum, fmt.Errorf("receive failed: %w", err)
		}
		if len(batch) == 0 {
			break
		}
	}

	sum.Duration = time.Since(start)
	o.log.Info("invocation complete", "summary", sum.String())
	return sum, nil
}

func (o *Orchestrator) handleBatch(ctx context.Context, batch []domain.QueueRecord) (processed, failed, deleted int, err error) {
	var (
		failures []failure
		enriched []domain.Payload
		routed   []string
		okRecs   []domain.QueueRecord
	)

	for _, qr := range batch {
		rec, decErr := domain.DecodeRecord(qr.Body)
		if decErr != nil {
			failures = append(failures, failure{qr, domain.FailureDeserialization, decErr})
			continue
		}
		if tagErr := o.engine.Tag(ctx, rec); tagErr != nil {
			failures = append(failures, failure{qr, domain.FailureTagging, tagErr})
			continue
		}
		body, encErr := domain.EncodeRecord(rec)
		if encErr != nil {
			failures = append(failures, failure{qr, domain.FailureTagging, encErr})
			continue
		}
		enriched = append(enriched, domain.Payload{GroupKey: qr.GroupKey, Body: body})
		okRecs = append(okRecs, qr)
	}

	if len(enriched) > 0 {
		if sendErr := o.queue.SendBatch(ctx, o.cfg.EnrichedStream, enriched); sendErr != nil {
			// The whole batch is demoted to the failure path rather
			// than silently dropped.
			o.log.Error("enriched send failed, demoting batch",
				"count", len(okRecs), "error", sendErr)
			for _, qr := range okRecs {
				failures = append(failures, failure{qr, domain.FailureDelivery, sendErr})
			}
			okRecs = nil
		} else {
			processed = len(okRecs)
			metrics.RecordsProcessed.Add(float64(processed))
			for _, qr := range okRecs {
				routed = append(routed, qr.ID)
			}
		}
	}

	if len(failures) > 0 {
		payloads := make([]domain.Payload, 0, len(failures))
		for _, f := range failures {
			env := domain.NewFailureEnvelope(component, f.kind, f.err, f.rec)
			body, encErr := env.Encode()
			if encErr != nil {
				return processed, failed, deleted, encErr
			}
			payloads = append(payloads, domain.Payload{GroupKey: f.rec.GroupKey, Body: body})
			o.log.Warn("record failed", "record", f.rec.ID, "kind", f.kind, "error", f.err)
		}

		if sendErr := o.queue.SendBatch(ctx, o.cfg.FailedStream, payloads); sendErr != nil {
			// Critical by design: acknowledging records whose error
			// report never arrived would lose them silently. Abort
			// without deleting and let the source redeliver.
			return processed, failed, deleted,
				fmt.Errorf("failure-destination send failed: %w", sendErr)
		}
		failed = len(failures)
		for _, f := range failures {
			metrics.RecordsFailed.WithLabelValues(string(f.kind)).Inc()
			routed = append(routed, f.rec.ID)
		}
	}

	if len(routed) > 0 {
		if delErr := o.queue.DeleteBatch(ctx, o.cfg.SourceStream, routed); delErr != nil {
			// Self-healing: unacknowledged records come back via the
			// visibility timeout.
			o.log.Warn("delete failed, records will be redelivered",
				"count", len(routed), "error", delErr)
		} else {
			deleted = len(routed)
			metrics.RecordsDeleted.Add(float64(deleted))
		}
	}

	return processed, failed, deleted, nil
}

// budgetRemaining reports whether the invocation still has more than
// the safety margin before its deadline. No deadline means no budget
// pressure.
func (o *Orchestrator) budgetRemaining(ctx context.Context) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) > o.cfg.SafetyMargin
}
