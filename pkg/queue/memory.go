package queue

import (
	"context"
	"sync"
)

type memoryTransport struct {
	tasks chan Task

	mu     sync.RWMutex
	closed bool
}

func newMemoryTransport(buffer int) *memoryTransport {
	return &memoryTransport{tasks: make(chan Task, buffer)}
}

func (m *memoryTransport) send(ctx context.Context, t Task) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStopped
	}

	select {
	case m.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (m *memoryTransport) receive(ctx context.Context, out chan<- delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-m.tasks:
			select {
			case out <- delivery{task: t, ack: func(context.Context) {}}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (m *memoryTransport) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}
