// Package janitor runs the periodic maintenance of the pipeline on a cron
// schedule: purging cancelled runs, reporting stalled runs, rolling the
// published window forward and closing orphaned parsing moderations.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/JaimeStill/horarium/internal/scheduling"
	"github.com/JaimeStill/horarium/pkg/lifecycle"
)

// Runs is the part of the run store the janitor maintains.
type Runs interface {
	PurgeCancelled(ctx context.Context, cutoff time.Time) (int64, error)
	Stale(ctx context.Context, cutoff time.Time) ([]scheduling.Scheduling, error)
	RefreshCandidates(ctx context.Context, day time.Time) ([]uuid.UUID, error)
}

// Initiator starts runs.
type Initiator interface {
	Init(ctx context.Context, websiteID uuid.UUID, opts scheduling.InitOptions) (*scheduling.Scheduling, error)
}

// ModerationCleaner closes parsing moderations no live run reaches.
type ModerationCleaner interface {
	CleanupModerations(ctx context.Context) (int64, error)
}

// Janitor owns the cron scheduler and the maintenance jobs.
type Janitor struct {
	cfg       *Config
	runs      Runs
	initiator Initiator
	cleaner   ModerationCleaner
	location  *time.Location
	now       func() time.Time
	cron      *cron.Cron
	logger    *slog.Logger
}

// New creates a Janitor and registers its jobs. Jobs do not run until Start.
func New(cfg *Config, runs Runs, initiator Initiator, cleaner ModerationCleaner, location *time.Location, logger *slog.Logger) (*Janitor, error) {
	j := &Janitor{
		cfg:       cfg,
		runs:      runs,
		initiator: initiator,
		cleaner:   cleaner,
		location:  location,
		now:       time.Now,
		logger:    logger.With("system", "janitor"),
	}

	j.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"purge", cfg.PurgeSchedule, j.purge},
		{"stale", cfg.StaleSchedule, j.stale},
		{"refresh", cfg.RefreshSchedule, j.refresh},
		{"cleanup", cfg.CleanupSchedule, j.cleanup},
	}
	for _, job := range jobs {
		if _, err := j.cron.AddFunc(job.spec, j.wrap(job.name, job.run)); err != nil {
			return nil, fmt.Errorf("schedule %s job: %w", job.name, err)
		}
	}

	return j, nil
}

// Start runs the scheduler until the coordinator shuts down. A disabled
// janitor registers nothing.
func (j *Janitor) Start(lc *lifecycle.Coordinator) error {
	if !j.cfg.IsEnabled() {
		j.logger.Info("janitor disabled")
		return nil
	}

	j.cron.Start()
	j.logger.Info("janitor started", "jobs", len(j.cron.Entries()), "tz", j.location.String())

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		<-j.cron.Stop().Done()
		j.logger.Info("janitor stopped")
	})
	return nil
}

func (j *Janitor) wrap(name string, run func(context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				j.logger.Error("job panicked",
					slog.String("job", name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()

		if err := run(context.Background()); err != nil {
			j.logger.Error("job failed", "job", name, "error", err)
		}
	}
}

func (j *Janitor) purge(ctx context.Context) error {
	n, err := j.runs.PurgeCancelled(ctx, j.now().Add(-j.cfg.RetentionDuration()))
	if err != nil {
		return err
	}
	j.logger.Info("cancelled runs purged", "count", n)
	return nil
}

// stale logs every run stuck in flight. A stalled run is recovered by a
// fresh init, which the refresh job or an upstream change triggers.
func (j *Janitor) stale(ctx context.Context) error {
	runs, err := j.runs.Stale(ctx, j.now().Add(-j.cfg.StaleAfterDuration()))
	if err != nil {
		return err
	}
	for _, r := range runs {
		j.logger.Warn("run stalled",
			"scheduling_id", r.ID,
			"website_id", r.WebsiteID,
			"status", r.Status,
			"updated_at", r.UpdatedAt,
		)
	}
	return nil
}

// refresh restarts the pipeline of every website whose published window
// starts before today, so the horizon rolls forward.
func (j *Janitor) refresh(ctx context.Context) error {
	t := j.now().In(j.location)
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	websites, err := j.runs.RefreshCandidates(ctx, today)
	if err != nil {
		return err
	}

	var started int
	for _, id := range websites {
		if _, err := j.initiator.Init(ctx, id, scheduling.InitOptions{}); err != nil {
			j.logger.Warn("refresh init failed", "website_id", id, "error", err)
			continue
		}
		started++
	}

	j.logger.Info("published windows refreshed", "candidates", len(websites), "started", started)
	return nil
}

func (j *Janitor) cleanup(ctx context.Context) error {
	n, err := j.cleaner.CleanupModerations(ctx)
	if err != nil {
		return err
	}
	j.logger.Info("parsing moderations cleaned up", "count", n)
	return nil
}
