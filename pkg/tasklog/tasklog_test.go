package tasklog_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaimeStill/horarium/pkg/tasklog"
)

func TestHandlerBuffersUntilFlush(t *testing.T) {
	var out bytes.Buffer
	base := slog.New(slog.NewTextHandler(&out, nil))

	logger, h := tasklog.Logger(base)
	logger.With("task", "prune").Info("stage started")
	logger.Info("stage finished", "count", 3)

	if out.Len() != 0 {
		t.Fatalf("output before Flush = %q, want empty", out.String())
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}

	if err := h.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], "task=prune") {
		t.Errorf("line 0 = %q, want task=prune attribute", lines[0])
	}
	if !strings.Contains(lines[1], "count=3") {
		t.Errorf("line 1 = %q, want count=3", lines[1])
	}
}

func TestHandlerAfterFlushWritesThrough(t *testing.T) {
	var out bytes.Buffer
	logger, h := tasklog.Logger(slog.New(slog.NewTextHandler(&out, nil)))

	if err := h.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	logger.Warn("late record")

	if !strings.Contains(out.String(), "late record") {
		t.Errorf("output = %q, want late record written through", out.String())
	}
}

func TestHandlerRespectsLevel(t *testing.T) {
	var out bytes.Buffer
	base := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger, h := tasklog.Logger(base)

	logger.Info("dropped")
	logger.Error("kept")

	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}
