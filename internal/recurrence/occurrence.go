package recurrence

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/JaimeStill/horarium/internal/calendar"
	"github.com/JaimeStill/horarium/internal/schedule"
)

// Occurrence is one dated instance of a schedule item. Start and End are civil
// wall-clock times expressed in UTC. End is set only when the item has an
// explicit end time.
type Occurrence struct {
	Item           schedule.ScheduleItem
	ChurchID       *int
	IsOtherChurch  bool
	IsCancellation bool
	HasTime        bool
	Start          time.Time
	End            *time.Time
}

// Day returns the civil date of the occurrence.
func (o Occurrence) Day() time.Time {
	return calendar.Truncate(o.Start)
}

func newOccurrence(item schedule.ScheduleItem, start time.Time) Occurrence {
	o := Occurrence{
		Item:           item,
		ChurchID:       item.ChurchID,
		IsOtherChurch:  item.IsOtherChurch,
		IsCancellation: item.IsCancellation,
		HasTime:        item.Start != nil,
		Start:          start,
	}
	if d := item.Duration(); d > 0 {
		end := start.Add(d)
		o.End = &end
	}
	return o
}

func churchKey(id *int, other bool) string {
	switch {
	case id != nil:
		return fmt.Sprintf("church:%d", *id)
	case other:
		return "other"
	}
	return "unattributed"
}

func (o Occurrence) key() string {
	end := ""
	if o.End != nil {
		end = o.End.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s|%s|%t|%s", churchKey(o.ChurchID, o.IsOtherChurch), o.Start.Format(time.RFC3339), o.HasTime, end)
}

// compareChurch orders attributed churches by index, unattributed last.
func compareChurch(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// Sort orders occurrences by start, then church with unattributed last.
func Sort(occs []Occurrence) {
	slices.SortStableFunc(occs, func(a, b Occurrence) int {
		return cmp.Or(
			a.Start.Compare(b.Start),
			compareChurch(a.ChurchID, b.ChurchID),
			cmp.Compare(a.key(), b.key()),
		)
	})
}

// Dedupe drops occurrences sharing church, start and end, keeping the first.
func Dedupe(occs []Occurrence) []Occurrence {
	seen := make(map[string]bool, len(occs))
	out := make([]Occurrence, 0, len(occs))
	for _, o := range occs {
		k := o.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, o)
	}
	return out
}

// cancels reports whether cancellation c removes occurrence o: same church,
// same day, and same start time when c has one.
func cancels(c, o Occurrence) bool {
	if churchKey(c.ChurchID, c.IsOtherChurch) != churchKey(o.ChurchID, o.IsOtherChurch) {
		return false
	}
	if !c.Day().Equal(o.Day()) {
		return false
	}
	return !c.HasTime || c.Start.Equal(o.Start)
}
