// Package tasklog buffers the log records of one task and writes them to the
// underlying handler in a single flush, so records of concurrent tasks do not
// interleave in the output.
package tasklog

import (
	"context"
	"log/slog"
	"sync"
)

type entry struct {
	handler slog.Handler
	record  slog.Record
}

type buffer struct {
	mu      sync.Mutex
	entries []entry
	flushed bool
}

// Handler is a slog.Handler that holds records until Flush. Handlers derived
// through WithAttrs and WithGroup share the same buffer.
type Handler struct {
	next slog.Handler
	buf  *buffer
}

// New returns a buffering handler in front of next.
func New(next slog.Handler) *Handler {
	return &Handler{next: next, buf: &buffer{}}
}

// Logger returns a task logger and the handler to flush once the task ends.
func Logger(base *slog.Logger) (*slog.Logger, *Handler) {
	h := New(base.Handler())
	return slog.New(h), h
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle buffers r. After Flush, records go straight to the next handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.buf.mu.Lock()
	if h.buf.flushed {
		h.buf.mu.Unlock()
		return h.next.Handle(ctx, r)
	}
	h.buf.entries = append(h.buf.entries, entry{handler: h.next, record: r.Clone()})
	h.buf.mu.Unlock()
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs), buf: h.buf}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), buf: h.buf}
}

// Len returns the number of buffered records.
func (h *Handler) Len() int {
	h.buf.mu.Lock()
	defer h.buf.mu.Unlock()
	return len(h.buf.entries)
}

// Flush writes every buffered record in order and returns the first write
// error. Flush is idempotent.
func (h *Handler) Flush(ctx context.Context) error {
	h.buf.mu.Lock()
	entries := h.buf.entries
	h.buf.entries = nil
	h.buf.flushed = true
	h.buf.mu.Unlock()

	var first error
	for _, e := range entries {
		if err := e.handler.Handle(ctx, e.record); err != nil && first == nil {
			first = err
		}
	}
	return first
}
