package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tenderpulse/tagger/internal/core/domain"
)

const (
	fieldBody  = "body"
	fieldGroup = "group"
)

// streamReader is the stream-consumption subset of the client used by
// the receive path.
type streamReader interface {
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
}

// Queue implements the queue collaborator on Redis Streams. The source
// stream is consumed through a consumer group: unacknowledged entries
// stay pending and are reclaimed once their idle time exceeds the
// visibility timeout, which gives at-least-once delivery without any
// local state.
type Queue struct {
	rdb        *redis.Client
	streams    streamReader
	group      string
	consumer   string
	visibility time.Duration
}

// QueueConfig holds stream consumption settings.
type QueueConfig struct {
	Group      string        `yaml:"group"`
	Consumer   string        `yaml:"consumer"`
	Visibility time.Duration `yaml:"visibility"`
}

// NewQueue creates a stream-backed queue.
func NewQueue(client *Client, cfg QueueConfig) *Queue {
	if cfg.Visibility == 0 {
		cfg.Visibility = 5 * time.Minute
	}
	return &Queue{
		rdb:        client.rdb,
		streams:    client.rdb,
		group:      cfg.Group,
		consumer:   cfg.Consumer,
		visibility: cfg.Visibility,
	}
}

// EnsureGroup creates the consumer group on the source stream if it
// does not exist yet.
func (q *Queue) EnsureGroup(ctx context.Context, stream string) error {
	err := q.rdb.XGroupCreateMkStream(ctx, stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group on %s: %w", stream, err)
	}
	return nil
}

// Receive drains up to max records without blocking: stale pending
// entries from dead consumers first, then new deliveries. Returns an
// empty slice when the stream reports empty.
func (q *Queue) Receive(ctx context.Context, stream string, max int64) ([]domain.QueueRecord, error) {
	return q.receive(ctx, stream, max, -1)
}

// Wait blocks up to the given duration for new records. Used by the
// control loop between invocations.
func (q *Queue) Wait(ctx context.Context, stream string, max int64, block time.Duration) ([]domain.QueueRecord, error) {
	return q.receive(ctx, stream, max, block)
}

func (q *Queue) receive(ctx context.Context, stream string, max int64, block time.Duration) ([]domain.QueueRecord, error) {
	claimed, _, err := q.streams.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    q.group,
		Consumer: q.consumer,
		MinIdle:  q.visibility,
		Start:    "0-0",
		Count:    max,
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim failed: %w", err)
	}

	records := toRecords(claimed)
	remaining := max - int64(len(records))
	if remaining <= 0 {
		return records, nil
	}

	streams, err := q.streams.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{stream, ">"},
		Count:    remaining,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return records, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup failed: %w", err)
	}

	for _, s := range streams {
		records = append(records, toRecords(s.Messages)...)
	}
	return records, nil
}

// SendBatch appends all payloads to the destination stream in one
// pipeline. Either every entry is queued on the server or the batch is
// reported failed as a whole.
func (q *Queue) SendBatch(ctx context.Context, stream string, payloads []domain.Payload) error {
	if len(payloads) == 0 {
		return nil
	}

	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range payloads {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: stream,
				Values: map[string]interface{}{
					fieldBody:  string(p.Body),
					fieldGroup: p.GroupKey,
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to send batch to %s: %w", stream, err)
	}
	return nil
}

// DeleteBatch acknowledges and removes the given entries from the
// source stream.
func (q *Queue) DeleteBatch(ctx context.Context, stream string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := q.rdb.XAck(ctx, stream, q.group, ids...).Err(); err != nil {
		return fmt.Errorf("xack failed: %w", err)
	}
	if err := q.rdb.XDel(ctx, stream, ids...).Err(); err != nil {
		return fmt.Errorf("xdel failed: %w", err)
	}
	return nil
}

// Depth returns the stream length, for health reporting.
func (q *Queue) Depth(ctx context.Context, stream string) (int64, error) {
	return q.rdb.XLen(ctx, stream).Result()
}

func toRecords(msgs []redis.XMessage) []domain.QueueRecord {
	records := make([]domain.QueueRecord, 0, len(msgs))
	for _, m := range msgs {
		rec := domain.QueueRecord{ID: m.ID, Attributes: map[string]string{}}
		for k, v := range m.Values {
			s, _ := v.(string)
			switch k {
			case fieldBody:
				rec.Body = []byte(s)
			case fieldGroup:
				rec.GroupKey = s
			default:
				rec.Attributes[k] = s
			}
		}
		records = append(records, rec)
	}
	return records
}
