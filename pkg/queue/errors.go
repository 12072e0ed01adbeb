package queue

import "errors"

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrStopped     = errors.New("task queue stopped")
	ErrUnknownKind = errors.New("no handler for task kind")
	ErrInvalidTask = errors.New("invalid task")
)
