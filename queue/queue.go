package queue

import (
	"context"
	"time"
)

// Message is one delivery pulled from the queue. ReceiptHandle identifies
// the in-flight delivery for Delete/ExtendVisibility/Requeue and is only
// valid until the visibility window lapses.
type Message struct {
	ID            string
	Body          []byte
	ReceiptHandle string
}

// Queue is the at-least-once message queue contract used by the dispatcher
// (producer side) and the import worker pool (consumer side). Deliveries not
// deleted before their visibility timeout are redelivered, possibly to a
// different consumer.
type Queue interface {
	// SendBatch enqueues message bodies, issuing multiple send calls when
	// the batch exceeds the queue's maximum batch size
	SendBatch(ctx context.Context, bodies [][]byte) error

	// Receive long-polls for a single message; a nil message means the wait
	// elapsed with nothing available
	Receive(ctx context.Context, wait time.Duration) (*Message, error)

	// Delete acknowledges a delivery so it is never redelivered
	Delete(ctx context.Context, receiptHandle string) error

	// ExtendVisibility pushes out the redelivery deadline of an in-flight
	// message while its file is still being worked on
	ExtendVisibility(ctx context.Context, receiptHandle string, d time.Duration) error

	// Requeue surfaces a retryable failure: the delivery is made available
	// again immediately
	Requeue(ctx context.Context, receiptHandle string) error

	// ReclaimExpired returns messages whose visibility window lapsed (their
	// consumer crashed or stalled) to the queue, reporting how many moved
	ReclaimExpired(ctx context.Context) (int, error)
}

// ChunkBodies splits a message batch into send-call-sized chunks
func ChunkBodies(bodies [][]byte, batchSize int) [][][]byte {
	if batchSize <= 0 {
		batchSize = 1
	}
	var chunks [][][]byte
	for start := 0; start < len(bodies); start += batchSize {
		end := start + batchSize
		if end > len(bodies) {
			end = len(bodies)
		}
		chunks = append(chunks, bodies[start:end])
	}
	return chunks
}
