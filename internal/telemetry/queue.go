// Package telemetry implements the three external-collaborator
// interfaces the Audit Sink hands signed envelopes to: a fast
// non-blocking queue, a slower durable archive, and an ops-notification
// hook fired only on FAILSAFE/EMERGENCY_DESCENT. All three are
// fire-and-forget from the supervisor loop's point of view, grounded on
// the teacher's "never block the hot path" PubSubEventBus.Emit pattern
// (internal/events/pubsub_bus.go).
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is the non-blocking telemetry transport the Audit Sink enqueues
// signed envelopes into. A full or unreachable queue must never block
// the caller past its own internal timeout.
type Queue interface {
	Enqueue(ctx context.Context, envelope []byte) error
}

// RedisQueue backs the telemetry queue with a Redis list: RPUSH is O(1)
// and the list is capped so a stalled downstream consumer degrades to
// dropped-oldest rather than unbounded memory growth on the broker.
type RedisQueue struct {
	client   *redis.Client
	key      string
	maxLen   int64
	pushWait time.Duration
}

// RedisQueueConfig configures a RedisQueue.
type RedisQueueConfig struct {
	Addr     string
	Key      string // defaults to "aegissuit:audit:envelopes"
	MaxLen   int64  // defaults to 10000
	PushWait time.Duration // defaults to 20ms — the non-blocking budget
}

func NewRedisQueue(cfg RedisQueueConfig) *RedisQueue {
	if cfg.Key == "" {
		cfg.Key = "aegissuit:audit:envelopes"
	}
	if cfg.MaxLen == 0 {
		cfg.MaxLen = 10000
	}
	if cfg.PushWait == 0 {
		cfg.PushWait = 20 * time.Millisecond
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	return &RedisQueue{client: client, key: cfg.Key, maxLen: cfg.MaxLen, pushWait: cfg.PushWait}
}

// Enqueue pushes envelope onto the list and trims it to MaxLen in the
// same pipeline, bounded by PushWait so a slow or down Redis instance
// never stalls the supervisor loop.
func (q *RedisQueue) Enqueue(ctx context.Context, envelope []byte) error {
	ctx, cancel := context.WithTimeout(ctx, q.pushWait)
	defer cancel()

	pipe := q.client.Pipeline()
	pipe.RPush(ctx, q.key, envelope)
	pipe.LTrim(ctx, q.key, -q.maxLen, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("telemetry: redis enqueue failed: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Memory is an in-process bounded Queue used by tests and the bench
// harness in place of a real Redis instance. Pushing past Cap drops the
// oldest entry, mirroring RedisQueue's LTrim behavior.
type Memory struct {
	Cap     int
	entries [][]byte
}

func NewMemory(cap int) *Memory {
	return &Memory{Cap: cap}
}

func (m *Memory) Enqueue(_ context.Context, envelope []byte) error {
	m.entries = append(m.entries, envelope)
	if len(m.entries) > m.Cap {
		m.entries = m.entries[len(m.entries)-m.Cap:]
	}
	return nil
}

func (m *Memory) Entries() [][]byte {
	return m.entries
}

// AlwaysFull is a Queue that always reports itself full, used to
// exercise the Audit Sink's TelemetryQueueFull path in tests.
type AlwaysFull struct{}

func (AlwaysFull) Enqueue(context.Context, []byte) error {
	return fmt.Errorf("telemetry: queue full")
}
