// Package index materializes merged schedules into dated events over a
// rolling horizon and serves them, as JSON or as an iCalendar feed.
package index

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/schedule"
)

// Event is one indexed confession slot. IndexedEnd is the explicit end, or
// the start plus the default duration, and drives searches; DisplayedEnd is
// only the explicit end.
type Event struct {
	ID                int64               `json:"id"`
	SchedulingID      uuid.UUID           `json:"scheduling_id"`
	WebsiteID         uuid.UUID           `json:"website_id"`
	ChurchID          *uuid.UUID          `json:"church_id"`
	Day               time.Time           `json:"day"`
	Start             *schedule.TimeOfDay `json:"start_time"`
	IndexedEnd        *time.Time          `json:"indexed_end"`
	DisplayedEnd      *schedule.TimeOfDay `json:"displayed_end"`
	IsExplicitlyOther bool                `json:"is_explicitly_other"`
	HasBeenModerated  bool                `json:"has_been_moderated"`
	ChurchColor       *string             `json:"church_color"`
}

// Church is what the materializer needs to know about a roster church.
type Church struct {
	ID        uuid.UUID
	Color     *string
	Moderated bool
}

// Category is a website moderation category raised by indexing.
type Category string

const (
	CategoryNone       Category = ""
	CategoryNoSource   Category = "no_source"
	CategoryNoSchedule Category = "no_schedule"
	CategoryConflict   Category = "conflict"
)
