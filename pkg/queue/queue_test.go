package queue_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JaimeStill/horarium/pkg/lifecycle"
	"github.com/JaimeStill/horarium/pkg/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newMemoryQueue(t *testing.T, workers int) queue.System {
	t.Helper()
	cfg := &queue.Config{Workers: workers}
	require.NoError(t, cfg.Finalize(nil))

	q, err := queue.New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	return q
}

func TestQueueDeliversTasks(t *testing.T) {
	q := newMemoryQueue(t, 2)

	var (
		mu   sync.Mutex
		got  []uuid.UUID
		done = make(chan struct{}, 3)
	)
	q.Handle("prune", func(ctx context.Context, task queue.Task) error {
		mu.Lock()
		got = append(got, task.Target)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	lc := lifecycle.New()
	require.NoError(t, q.Start(lc))

	targets := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range targets {
		require.NoError(t, q.Enqueue(context.Background(), "prune", id))
	}

	for range targets {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}

	require.NoError(t, lc.Shutdown(2*time.Second))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, targets, got)
}

func TestQueueHandlerErrorDoesNotStopWorkers(t *testing.T) {
	q := newMemoryQueue(t, 1)

	calls := make(chan struct{}, 2)
	q.Handle("parse", func(ctx context.Context, task queue.Task) error {
		calls <- struct{}{}
		return errors.New("boom")
	})

	lc := lifecycle.New()
	require.NoError(t, q.Start(lc))

	require.NoError(t, q.Enqueue(context.Background(), "parse", uuid.New()))
	require.NoError(t, q.Enqueue(context.Background(), "parse", uuid.New()))

	for range 2 {
		select {
		case <-calls:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}

	require.NoError(t, lc.Shutdown(2*time.Second))
}

func TestQueueRejectsUnknownKind(t *testing.T) {
	q := newMemoryQueue(t, 1)

	err := q.Enqueue(context.Background(), "unknown", uuid.New())
	assert.ErrorIs(t, err, queue.ErrUnknownKind)
}

func TestQueueRejectsNilTarget(t *testing.T) {
	q := newMemoryQueue(t, 1)
	q.Handle("index", func(context.Context, queue.Task) error { return nil })

	err := q.Enqueue(context.Background(), "index", uuid.Nil)
	assert.ErrorIs(t, err, queue.ErrInvalidTask)
}

func TestQueueFull(t *testing.T) {
	cfg := &queue.Config{Workers: 1, Buffer: 1}
	require.NoError(t, cfg.Finalize(nil))
	q, err := queue.New(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	q.Handle("match", func(context.Context, queue.Task) error { return nil })

	require.NoError(t, q.Enqueue(context.Background(), "match", uuid.New()))
	err = q.Enqueue(context.Background(), "match", uuid.New())
	assert.ErrorIs(t, err, queue.ErrQueueFull)
}

func TestNewTaskIDsAreOrdered(t *testing.T) {
	a := queue.NewTask("prune", uuid.New())
	time.Sleep(2 * time.Millisecond)
	b := queue.NewTask("prune", uuid.New())

	assert.Negative(t, a.ID.Compare(b.ID))
	assert.False(t, a.EnqueuedAt.After(b.EnqueuedAt))
}
