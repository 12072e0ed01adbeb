package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/snapshot"
	"github.com/JaimeStill/horarium/pkg/pagination"
)

// Store persists runs. Every Commit method locks the run, verifies it still
// holds the stage's starting status and returns ErrSuperseded otherwise.
type Store interface {
	// Init locks the website, captures its snapshot, cancels in-flight runs,
	// optionally deletes the published run, and creates a built run.
	Init(ctx context.Context, websiteID uuid.UUID, opts InitOptions) (*Scheduling, error)

	Find(ctx context.Context, id uuid.UUID) (*Scheduling, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Scheduling], error)
	Contents(ctx context.Context, id uuid.UUID) (*snapshot.Contents, error)

	CommitPrune(ctx context.Context, id uuid.UUID, refs []PruningRef) error
	PruningRefs(ctx context.Context, id uuid.UUID) ([]PruningRef, error)

	CommitParse(ctx context.Context, id uuid.UUID, churchMap map[int]uuid.UUID, refs []ParsingRef) error
	ParsingRefs(ctx context.Context, id uuid.UUID) ([]ParsingRef, error)

	CommitMatch(ctx context.Context, id uuid.UUID, matchingID *uuid.UUID) error

	// Publish commits the index stage. A publication whose hash equals the
	// published run's cancels the run and leaves the published events alone.
	Publish(ctx context.Context, id uuid.UUID, pub Publication) (PublishOutcome, error)

	// PurgeCancelled deletes cancelled runs last updated before cutoff.
	PurgeCancelled(ctx context.Context, cutoff time.Time) (int64, error)
	// Stale lists in-flight runs last updated before cutoff.
	Stale(ctx context.Context, cutoff time.Time) ([]Scheduling, error)
	// RefreshCandidates lists websites whose published window starts before
	// day and that have no run in flight.
	RefreshCandidates(ctx context.Context, day time.Time) ([]uuid.UUID, error)
}
