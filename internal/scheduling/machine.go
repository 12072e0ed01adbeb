package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/horarium/pkg/queue"
	"github.com/JaimeStill/horarium/pkg/tasklog"
)

const instrumentation = "github.com/JaimeStill/horarium/internal/scheduling"

// Stage outcomes recorded on the stage counter.
const (
	outcomeCommitted  = "committed"
	outcomeSuperseded = "superseded"
	outcomeFailed     = "failed"
	outcomePanicked   = "panicked"
)

// Machine drives runs through the pipeline. Init starts a run; Run executes
// one stage task delivered by the queue.
type Machine struct {
	rt       *Runtime
	tracer   trace.Tracer
	stages   metric.Int64Counter
	duration metric.Float64Histogram
	logger   *slog.Logger
}

// NewMachine creates a Machine. tracer and meter come from the telemetry
// system and may be no-op implementations.
func NewMachine(rt *Runtime, tracer trace.Tracer, meter metric.Meter) (*Machine, error) {
	stages, err := meter.Int64Counter(
		"horarium.scheduling.stages",
		metric.WithDescription("Stage executions by stage and outcome."),
	)
	if err != nil {
		return nil, fmt.Errorf("create stage counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"horarium.scheduling.stage.duration",
		metric.WithDescription("Stage execution time."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stage histogram: %w", err)
	}

	return &Machine{
		rt:       rt,
		tracer:   tracer,
		stages:   stages,
		duration: duration,
		logger:   rt.Logger.With("system", "scheduling"),
	}, nil
}

// Register routes every stage kind of q to Run.
func (m *Machine) Register(q queue.System) {
	for _, s := range Stages() {
		q.Handle(string(s), m.Run)
	}
}

// Init creates a run for the website and triggers its prune stage.
func (m *Machine) Init(ctx context.Context, websiteID uuid.UUID, opts InitOptions) (*Scheduling, error) {
	s, err := m.rt.Store.Init(ctx, websiteID, opts)
	if err != nil {
		return nil, err
	}
	m.enqueue(ctx, m.logger, StagePrune, s.ID)
	return s, nil
}

// Run executes one stage task. Records go to a per-task buffer flushed once
// the stage ends. A superseded run is not an error. A panic is recovered and
// reported as ErrStagePanic; the run keeps its status either way.
func (m *Machine) Run(ctx context.Context, task queue.Task) (err error) {
	stage, err := ParseStage(task.Kind)
	if err != nil {
		return err
	}

	logger, buf := tasklog.Logger(m.logger)
	logger = logger.With(
		"task_id", task.ID.String(),
		"stage", stage,
		"scheduling_id", task.Target,
	)
	defer func() {
		if ferr := buf.Flush(context.WithoutCancel(ctx)); ferr != nil {
			m.logger.Error("task log flush failed", "task_id", task.ID.String(), "error", ferr)
		}
	}()

	ctx, span := m.tracer.Start(ctx, "scheduling."+string(stage), trace.WithAttributes(
		attribute.String("scheduling.id", task.Target.String()),
		attribute.String("scheduling.stage", string(stage)),
	))
	defer span.End()

	start := time.Now()
	outcome := outcomeCommitted

	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
			outcome = outcomePanicked
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		attrs := metric.WithAttributes(
			attribute.String("stage", string(stage)),
			attribute.String("outcome", outcome),
		)
		m.stages.Add(ctx, 1, attrs)
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	err = m.execute(ctx, logger, stage, task.Target)
	switch {
	case errors.Is(err, ErrSuperseded):
		outcome = outcomeSuperseded
		logger.InfoContext(ctx, "scheduling superseded", "reason", err)
		return nil
	case err != nil:
		outcome = outcomeFailed
		logger.ErrorContext(ctx, "stage failed", "error", err)
		return err
	}
	return nil
}

func (m *Machine) execute(ctx context.Context, logger *slog.Logger, stage Stage, id uuid.UUID) error {
	run, err := m.rt.Store.Find(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: run deleted", ErrSuperseded)
		}
		return err
	}
	if run.Status != stage.From() {
		return fmt.Errorf("%w: status %s", ErrSuperseded, run.Status)
	}

	tc := &taskContext{Runtime: m.rt, run: run, logger: logger}

	switch stage {
	case StagePrune:
		err = tc.prune(ctx)
	case StageParse:
		err = tc.parse(ctx)
	case StageMatch:
		err = tc.match(ctx)
	case StageIndex:
		err = tc.index(ctx)
	}
	if err != nil {
		return err
	}

	if next, ok := stage.Next(); ok {
		m.enqueue(ctx, logger, next, id)
	}
	return nil
}

// enqueue triggers a stage. The commit is already durable, so a failed
// enqueue is logged and the run stays at its status until the next init.
func (m *Machine) enqueue(ctx context.Context, logger *slog.Logger, stage Stage, id uuid.UUID) {
	if err := m.rt.Queue.Enqueue(ctx, string(stage), id); err != nil {
		logger.ErrorContext(ctx, "enqueue failed", "stage", stage, "scheduling_id", id, "error", err)
	}
}
