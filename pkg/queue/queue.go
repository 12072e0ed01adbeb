// Package queue delivers pipeline tasks to a pool of workers. Tasks carry a
// kind and a target id; handlers are registered per kind. The transport is
// either an in-process channel or an SQS queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/JaimeStill/horarium/pkg/lifecycle"
)

// Task is one unit of work for a target entity.
type Task struct {
	ID         ulid.ULID `json:"id"`
	Kind       string    `json:"kind"`
	Target     uuid.UUID `json:"target"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTask stamps a task with a fresh id.
func NewTask(kind string, target uuid.UUID) Task {
	now := time.Now().UTC()
	return Task{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		Kind:       kind,
		Target:     target,
		EnqueuedAt: now,
	}
}

func (t Task) validate() error {
	if t.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidTask)
	}
	if t.Target == uuid.Nil {
		return fmt.Errorf("%w: empty target", ErrInvalidTask)
	}
	return nil
}

// Enqueuer schedules a task for a target. Enqueue does not wait for the task
// to run.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, target uuid.UUID) error
}

// HandlerFunc runs one task. Errors are logged; tasks are never retried.
type HandlerFunc func(ctx context.Context, t Task) error

// System is a task queue with a worker pool.
type System interface {
	Enqueuer
	// Handle registers fn for kind. It must be called before Start.
	Handle(kind string, fn HandlerFunc)
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type delivery struct {
	task Task
	ack  func(ctx context.Context)
}

// transport moves encoded tasks between Enqueue and the worker pool.
type transport interface {
	send(ctx context.Context, t Task) error
	// receive delivers tasks into out until ctx is done.
	receive(ctx context.Context, out chan<- delivery)
	close()
}

type queue struct {
	cfg       *Config
	transport transport
	logger    *slog.Logger

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	wg sync.WaitGroup
}

// New creates a queue over the configured transport. Workers start with Start.
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (System, error) {
	var (
		t   transport
		err error
	)
	switch cfg.Transport {
	case TransportSQS:
		t, err = newSQSTransport(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("sqs transport: %w", err)
		}
	default:
		t = newMemoryTransport(cfg.Buffer)
	}

	return newQueue(cfg, t, logger), nil
}

func newQueue(cfg *Config, t transport, logger *slog.Logger) *queue {
	return &queue{
		cfg:       cfg,
		transport: t,
		logger:    logger.With("system", "queue"),
		handlers:  make(map[string]HandlerFunc),
	}
}

func (q *queue) Handle(kind string, fn HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = fn
}

func (q *queue) Enqueue(ctx context.Context, kind string, target uuid.UUID) error {
	t := NewTask(kind, target)
	if err := t.validate(); err != nil {
		return err
	}

	q.mu.RLock()
	_, ok := q.handlers[kind]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	if err := q.transport.send(ctx, t); err != nil {
		return err
	}

	q.logger.Debug("task enqueued", "task_id", t.ID, "kind", kind, "target", target)
	return nil
}

func (q *queue) Start(lc *lifecycle.Coordinator) error {
	q.logger.Info("starting task workers", "transport", q.cfg.Transport, "workers", q.cfg.Workers)

	deliveries := make(chan delivery)
	ctx := lc.Context()

	q.wg.Go(func() {
		q.transport.receive(ctx, deliveries)
	})

	for i := range q.cfg.Workers {
		q.wg.Go(func() {
			q.worker(ctx, i, deliveries)
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		q.logger.Info("stopping task workers")
		q.wg.Wait()
		q.transport.close()
		q.logger.Info("task workers stopped")
	})

	return nil
}

func (q *queue) worker(ctx context.Context, id int, deliveries <-chan delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-deliveries:
			q.execute(ctx, id, d)
		}
	}
}

// execute runs a task under its own timeout. The task context is detached
// from shutdown so a running stage finishes its commit.
func (q *queue) execute(ctx context.Context, workerID int, d delivery) {
	defer d.ack(context.WithoutCancel(ctx))

	q.mu.RLock()
	fn, ok := q.handlers[d.task.Kind]
	q.mu.RUnlock()
	if !ok {
		q.logger.Warn("task dropped", "task_id", d.task.ID, "kind", d.task.Kind, "error", ErrUnknownKind)
		return
	}

	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.cfg.TaskTimeoutDuration())
	defer cancel()

	if err := fn(taskCtx, d.task); err != nil {
		q.logger.Error(
			"task failed",
			"worker_id", workerID,
			"task_id", d.task.ID,
			"kind", d.task.Kind,
			"target", d.task.Target,
			"error", err,
		)
	}
}

func encodeTask(t Task) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeTask(body string) (Task, error) {
	var t Task
	if err := json.Unmarshal([]byte(body), &t); err != nil {
		return t, fmt.Errorf("%w: %w", ErrInvalidTask, err)
	}
	return t, t.validate()
}
