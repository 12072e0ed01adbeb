package index

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

// Calendar renders events as an iCalendar feed. Timed events are placed in
// loc; events without a time become all-day events.
func Calendar(name string, events []Event, churches map[uuid.UUID]string, loc *time.Location, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//horarium//confessions//FR")
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	for _, e := range events {
		ev := cal.AddEvent(eventUID(e))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(summary(e, churches))

		if e.Start == nil {
			ev.SetAllDayStartAt(e.Day)
			ev.SetAllDayEndAt(e.Day.AddDate(0, 0, 1))
			continue
		}

		start := civil(e.Day, e.Start.Hour, e.Start.Minute, loc)
		ev.SetStartAt(start)
		if e.IndexedEnd != nil {
			end := *e.IndexedEnd
			ev.SetEndAt(civil(end, end.Hour(), end.Minute(), loc))
		}
		if e.DisplayedEnd == nil {
			ev.SetDescription("End time not announced")
		}
	}

	return cal.Serialize()
}

func summary(e Event, churches map[uuid.UUID]string) string {
	var sb strings.Builder
	sb.WriteString("Confessions")
	switch {
	case e.ChurchID != nil:
		if n, ok := churches[*e.ChurchID]; ok {
			fmt.Fprintf(&sb, " - %s", n)
		}
	case e.IsExplicitlyOther:
		sb.WriteString(" - other church")
	}
	return sb.String()
}

func eventUID(e Event) string {
	start := "allday"
	if e.Start != nil {
		start = strings.ReplaceAll(e.Start.String(), ":", "")
	}
	church := "none"
	if e.ChurchID != nil {
		church = e.ChurchID.String()
	}
	return fmt.Sprintf("%s-%s-%s-%s@horarium", e.WebsiteID, church, e.Day.Format("20060102"), start)
}

// civil reads the wall-clock date of day and places h:m in loc.
func civil(day time.Time, h, m int, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc)
}
