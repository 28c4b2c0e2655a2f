package domain

import "errors"

// Sentinel errors used throughout the engine.
// The HTTP layer translates these via a single mapError function; the worker
// treats all of them as job-level conditions to log, never to retry.
var (
	ErrNotFound      = errors.New("not found")
	ErrQueueFull     = errors.New("queue is at capacity")
	ErrInvalidAction = errors.New("invalid action: must be create, update, or delete")
	// ErrMissingRecord signals the transaction row vanished between enqueue
	// and processing; the job is abandoned.
	ErrMissingRecord = errors.New("transaction record no longer exists")
)
