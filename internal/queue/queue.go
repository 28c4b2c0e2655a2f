// Package queue provides the in-process FIFO job queue feeding the single
// fanout worker. Ordering is the contract: an update job for a transaction
// is never dequeued before its preceding create job, so there is exactly one
// lane and exactly one consumer.
package queue

import (
	"context"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// Queue is a bounded FIFO of fanout jobs.
//
// Enqueue is non-blocking: the write path that triggered the transaction
// must never stall on notification work. When the buffer is full the job is
// dropped with ErrQueueFull — the queue is in-memory and best-effort by
// design, so there is no overflow spill.
type Queue struct {
	jobs chan domain.Job
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Queue{jobs: make(chan domain.Job, capacity)}
}

// Enqueue appends a job without blocking. Returns ErrQueueFull when the
// buffer is saturated.
func (q *Queue) Enqueue(job domain.Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until a job is available or ctx is cancelled.
// Returns (Job{}, false) on cancellation — the graceful shutdown signal.
func (q *Queue) Dequeue(ctx context.Context) (domain.Job, bool) {
	select {
	case job := <-q.jobs:
		return job, true
	case <-ctx.Done():
		return domain.Job{}, false
	}
}

// Depth returns the number of jobs currently waiting.
// Used by the metrics gauge.
func (q *Queue) Depth() int {
	return len(q.jobs)
}
