// Package scheduling runs the pipeline that turns a website's crawled
// content into published confession events.
//
// A run pins a snapshot of the website on creation, then advances through
// prune, parse, match and index stages, one queue task per stage. Each
// stage computes outside any lock and commits only if the run still holds
// the status it started from; a run cancelled or replaced in the meantime
// is left alone.
package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/index"
	"github.com/JaimeStill/horarium/internal/schedule"
)

// Scheduling is one pipeline run for a website.
type Scheduling struct {
	ID              uuid.UUID               `json:"id"`
	WebsiteID       uuid.UUID               `json:"website_id"`
	Status          Status                  `json:"status"`
	MergedSchedules []schedule.ScheduleItem `json:"merged_schedules"`
	IndexedHash     *string                 `json:"indexed_hash"`
	ChurchMap       map[int]uuid.UUID       `json:"church_map"`
	MatchingID      *uuid.UUID              `json:"matching_id"`
	WindowStart     *time.Time              `json:"window_start"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// InitOptions control run creation. Deindex removes the published run
// before the new one starts, so the website shows nothing until it
// publishes.
type InitOptions struct {
	Deindex bool `json:"deindex"`
}

// PruningRef links a pinned source version to its pruning.
type PruningRef struct {
	SourceKind      string    `json:"source_kind"`
	SourceVersionID int64     `json:"source_version_id"`
	PruningID       uuid.UUID `json:"pruning_id"`
}

// ParsingRef links a pruning of the run to its parsing.
type ParsingRef struct {
	PruningID uuid.UUID `json:"pruning_id"`
	ParsingID uuid.UUID `json:"parsing_id"`
}

// Publication is what the index stage commits.
type Publication struct {
	Merged      []schedule.ScheduleItem
	Hash        string
	WindowStart time.Time
	Events      []index.Event
	Category    index.Category
}

// PublishOutcome reports what Publish did.
type PublishOutcome string

const (
	// OutcomePublished replaced the website's published run.
	OutcomePublished PublishOutcome = "published"
	// OutcomeDuplicate cancelled the run: the published run has the same hash.
	OutcomeDuplicate PublishOutcome = "duplicate"
)
