package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/calendar"
	"github.com/JaimeStill/horarium/internal/recurrence"
	"github.com/JaimeStill/horarium/internal/schedule"
)

// Materializer expands merged schedule items over [today, today+Horizon).
type Materializer struct {
	Engine          *recurrence.Engine
	Horizon         int
	DefaultDuration time.Duration
}

func NewMaterializer(engine *recurrence.Engine, horizon int, defaultDuration time.Duration) *Materializer {
	return &Materializer{
		Engine:          engine,
		Horizon:         horizon,
		DefaultDuration: defaultDuration,
	}
}

// Result is a materialization ready to publish.
type Result struct {
	Window    calendar.DateRange
	Events    []Event
	Conflicts []recurrence.Conflict
	Hash      string
	// Err joins the items that failed to expand. The other items still
	// produced events.
	Err error
}

// Window returns the materialization window starting on today's date.
func (m *Materializer) Window(today time.Time) calendar.DateRange {
	start := calendar.Truncate(today)
	return calendar.NewDateRange(start, start.AddDate(0, 0, m.Horizon))
}

// Materialize expands items, attributing roster indices through churches.
// Events carry no scheduling id; Publish assigns it.
func (m *Materializer) Materialize(websiteID uuid.UUID, items []schedule.ScheduleItem, churches map[int]Church, unattributedModerated bool, today time.Time) Result {
	window := m.Window(today)
	res := Result{Window: window}

	occs, err := m.Engine.Expand(items, window, window.Start.Year())
	res.Err = err
	res.Conflicts = recurrence.Conflicts(occs)

	res.Events = make([]Event, 0, len(occs))
	for _, o := range occs {
		res.Events = append(res.Events, m.event(websiteID, o, churches, unattributedModerated))
	}
	res.Hash = Hash(res.Events, window.Start)
	return res
}

func (m *Materializer) event(websiteID uuid.UUID, o recurrence.Occurrence, churches map[int]Church, unattributedModerated bool) Event {
	e := Event{
		WebsiteID:         websiteID,
		Day:               o.Day(),
		IsExplicitlyOther: o.IsOtherChurch,
		HasBeenModerated:  unattributedModerated,
	}

	if o.ChurchID != nil {
		if c, ok := churches[*o.ChurchID]; ok {
			id := c.ID
			e.ChurchID = &id
			e.ChurchColor = c.Color
			e.HasBeenModerated = c.Moderated
		}
	}

	if o.HasTime {
		start := o.Item.Start
		e.Start = start

		end := o.Start.Add(m.DefaultDuration)
		if o.End != nil {
			end = *o.End
			e.DisplayedEnd = o.Item.End
		}
		e.IndexedEnd = &end
	}

	return e
}

type hashedEvent struct {
	ChurchID          *uuid.UUID          `json:"church_id"`
	Day               string              `json:"day"`
	Start             *schedule.TimeOfDay `json:"start_time"`
	IndexedEnd        *time.Time          `json:"indexed_end"`
	DisplayedEnd      *schedule.TimeOfDay `json:"displayed_end"`
	IsExplicitlyOther bool                `json:"is_explicitly_other"`
	HasBeenModerated  bool                `json:"has_been_moderated"`
	ChurchColor       *string             `json:"church_color"`
}

type hashInput struct {
	Events      []hashedEvent `json:"events"`
	WindowStart string        `json:"window_start"`
}

// Hash identifies a publication by its materialized events and window start.
// Row identity is left out, so two runs with the same hash publish the same
// events. Events must be in materialization order.
func Hash(events []Event, windowStart time.Time) string {
	in := hashInput{
		Events:      make([]hashedEvent, len(events)),
		WindowStart: windowStart.Format(time.DateOnly),
	}
	for i, e := range events {
		in.Events[i] = hashedEvent{
			ChurchID:          e.ChurchID,
			Day:               e.Day.Format(time.DateOnly),
			Start:             e.Start,
			IndexedEnd:        e.IndexedEnd,
			DisplayedEnd:      e.DisplayedEnd,
			IsExplicitlyOther: e.IsExplicitlyOther,
			HasBeenModerated:  e.HasBeenModerated,
			ChurchColor:       e.ChurchColor,
		}
	}
	data, _ := json.Marshal(in)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Categorize picks the website moderation category of a publication.
// hasSource is false when the run had no parsable text and no external time.
// A run whose schedules yield no event inside the window has no schedule.
func Categorize(hasSource bool, events []Event, conflicts []recurrence.Conflict) Category {
	switch {
	case !hasSource:
		return CategoryNoSource
	case len(events) == 0:
		return CategoryNoSchedule
	case len(conflicts) > 0:
		return CategoryConflict
	default:
		return CategoryNone
	}
}
