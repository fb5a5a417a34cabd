package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// envelope wraps a message body with a unique id so that list elements are
// distinct even when two logical messages carry identical bodies (LREM
// removes by value)
type envelope struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

// RedisQueue implements Queue on a Redis list. Pending messages live in the
// main list; a received message is atomically moved to a processing list and
// registered in a sorted set whose score is its visibility deadline.
// ReclaimExpired sweeps that set to recover deliveries whose consumer died.
type RedisQueue struct {
	client     *redis.Client
	name       string
	batchSize  int
	visibility time.Duration
}

// NewRedisQueue creates a queue from a Redis URL
func NewRedisQueue(redisURL, name string, batchSize int, visibility time.Duration) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &RedisQueue{
		client:     redis.NewClient(opts),
		name:       name,
		batchSize:  batchSize,
		visibility: visibility,
	}, nil
}

// Ping verifies connectivity at startup
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) pendingKey() string    { return "queue:" + q.name }
func (q *RedisQueue) processingKey() string { return "queue:" + q.name + ":processing" }
func (q *RedisQueue) inflightKey() string   { return "queue:" + q.name + ":inflight" }

// SendBatch enqueues bodies in chunks of the queue's maximum batch size,
// one pipelined push per chunk
func (q *RedisQueue) SendBatch(ctx context.Context, bodies [][]byte) error {
	for _, chunk := range ChunkBodies(bodies, q.batchSize) {
		pipe := q.client.Pipeline()
		for _, body := range chunk {
			raw, err := json.Marshal(envelope{ID: uuid.NewString(), Body: body})
			if err != nil {
				return fmt.Errorf("failed to marshal queue envelope: %w", err)
			}
			pipe.LPush(ctx, q.pendingKey(), raw)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to send message batch: %w", err)
		}
	}
	return nil
}

// Receive blocks up to wait for one message, moving it to the processing
// list and stamping its visibility deadline
func (q *RedisQueue) Receive(ctx context.Context, wait time.Duration) (*Message, error) {
	raw, err := q.client.BLMove(ctx, q.pendingKey(), q.processingKey(), "RIGHT", "LEFT", wait).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}

	deadline := float64(time.Now().Add(q.visibility).UnixMilli())
	if err := q.client.ZAdd(ctx, q.inflightKey(), redis.Z{Score: deadline, Member: raw}).Err(); err != nil {
		return nil, fmt.Errorf("failed to register in-flight message: %w", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// a poison element would wedge the queue; drop it rather than loop
		log.Printf("queue: dropping undecodable message: %v", err)
		q.remove(ctx, raw)
		return nil, nil
	}

	return &Message{ID: env.ID, Body: env.Body, ReceiptHandle: raw}, nil
}

func (q *RedisQueue) remove(ctx context.Context, raw string) error {
	pipe := q.client.Pipeline()
	pipe.LRem(ctx, q.processingKey(), 1, raw)
	pipe.ZRem(ctx, q.inflightKey(), raw)
	_, err := pipe.Exec(ctx)
	return err
}

// Delete acknowledges a delivery
func (q *RedisQueue) Delete(ctx context.Context, receiptHandle string) error {
	if err := q.remove(ctx, receiptHandle); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// ExtendVisibility pushes out the redelivery deadline of an in-flight message
func (q *RedisQueue) ExtendVisibility(ctx context.Context, receiptHandle string, d time.Duration) error {
	deadline := float64(time.Now().Add(d).UnixMilli())
	err := q.client.ZAddXX(ctx, q.inflightKey(), redis.Z{Score: deadline, Member: receiptHandle}).Err()
	if err != nil {
		return fmt.Errorf("failed to extend message visibility: %w", err)
	}
	return nil
}

// Requeue makes a delivery available again immediately
func (q *RedisQueue) Requeue(ctx context.Context, receiptHandle string) error {
	pipe := q.client.Pipeline()
	pipe.LRem(ctx, q.processingKey(), 1, receiptHandle)
	pipe.ZRem(ctx, q.inflightKey(), receiptHandle)
	pipe.LPush(ctx, q.pendingKey(), receiptHandle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue message: %w", err)
	}
	return nil
}

// ReclaimExpired returns lapsed in-flight messages to the pending list so
// they are redelivered. Processing past the visibility window therefore
// yields duplicate delivery of the same file, which the worker's guarded
// status transitions tolerate.
func (q *RedisQueue) ReclaimExpired(ctx context.Context) (int, error) {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	expired, err := q.client.ZRangeByScore(ctx, q.inflightKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan for expired messages: %w", err)
	}

	reclaimed := 0
	for _, raw := range expired {
		if err := q.Requeue(ctx, raw); err != nil {
			return reclaimed, err
		}
		reclaimed++
	}

	// a consumer that died between the list move and the deadline stamp
	// leaves a processing entry with no in-flight member. Stamp those now
	// with a fresh deadline: if the owner is alive its own ZAdd already won,
	// and if it is dead the expiry sweep above recovers the message later.
	members, err := q.client.LRange(ctx, q.processingKey(), 0, -1).Result()
	if err != nil {
		return reclaimed, fmt.Errorf("failed to scan processing list: %w", err)
	}
	if len(members) > 0 {
		scores, err := q.client.ZMScore(ctx, q.inflightKey(), members...).Result()
		if err != nil {
			return reclaimed, fmt.Errorf("failed to look up in-flight deadlines: %w", err)
		}
		deadline := float64(time.Now().Add(q.visibility).UnixMilli())
		for _, raw := range unstampedMembers(members, scores) {
			if err := q.client.ZAddNX(ctx, q.inflightKey(), redis.Z{Score: deadline, Member: raw}).Err(); err != nil {
				return reclaimed, fmt.Errorf("failed to stamp orphaned delivery: %w", err)
			}
		}
	}
	return reclaimed, nil
}

// unstampedMembers pairs ZMScore results with their members and returns the
// members absent from the in-flight set. Deadlines are unix milliseconds and
// never zero, which is the score ZMScore reports for a missing member.
func unstampedMembers(members []string, scores []float64) []string {
	var missing []string
	for i, raw := range members {
		if i < len(scores) && scores[i] == 0 {
			missing = append(missing, raw)
		}
	}
	return missing
}
