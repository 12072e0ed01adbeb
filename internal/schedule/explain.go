package schedule

import (
	"fmt"
	"strings"
)

var positionNames = map[int]string{
	1:  "first",
	2:  "second",
	3:  "third",
	4:  "fourth",
	5:  "fifth",
	-1: "last",
}

// Explain renders a human-readable description of the item, without its church.
func Explain(i ScheduleItem) string {
	var sb strings.Builder
	sb.WriteString(BaseExplanation(i))
	if r, ok := i.Regular(); ok {
		sb.WriteString(qualifiers(r))
	}
	return sb.String()
}

// BaseExplanation is Explain without period and date exceptions.
func BaseExplanation(i ScheduleItem) string {
	var sb strings.Builder
	if i.IsCancellation {
		sb.WriteString("cancelled: ")
	}

	switch r := i.DateRule.(type) {
	case OneOffRule:
		sb.WriteString("on ")
		sb.WriteString(explainDate(r))
	case RegularRule:
		sb.WriteString(explainRecurrence(r.Recurrence))
	}

	switch {
	case i.Start != nil && i.End != nil:
		fmt.Fprintf(&sb, " from %s to %s", i.Start, i.End)
	case i.Start != nil:
		fmt.Fprintf(&sb, " at %s", i.Start)
	}
	return sb.String()
}

func explainRecurrence(rec Recurrence) string {
	switch r := rec.(type) {
	case Daily:
		return "every day"
	case Weekly:
		names := make([]string, len(r.Weekdays))
		for i, d := range r.Weekdays {
			names[i] = d.String()
		}
		return "every " + joinList(names)
	case Monthly:
		names := make([]string, len(r.Positions))
		for i, p := range r.Positions {
			names[i] = positionNames[p.Position] + " " + p.Weekday.String()
		}
		return "every " + joinList(names) + " of the month"
	}
	return "unknown recurrence"
}

func explainDate(r OneOffRule) string {
	if r.LiturgicalDay != "" {
		s := strings.ReplaceAll(string(r.LiturgicalDay), "_", " ")
		if r.Year != 0 {
			s = fmt.Sprintf("%s %d", s, r.Year)
		}
		return s
	}

	var sb strings.Builder
	if r.WeekdayISO != 0 {
		sb.WriteString(fromISOWeekday(r.WeekdayISO).String())
		sb.WriteString(" ")
	}
	fmt.Fprintf(&sb, "%s %d", r.Month, r.Day)
	if r.Year != 0 {
		fmt.Fprintf(&sb, " %d", r.Year)
	}
	return sb.String()
}

func qualifiers(r RegularRule) string {
	var sb strings.Builder
	if len(r.OnlyInPeriods) > 0 {
		sb.WriteString(", only during ")
		sb.WriteString(joinList(periodNames(r)))
	}
	if len(r.NotInPeriods) > 0 {
		names := make([]string, len(r.NotInPeriods))
		for i, p := range r.NotInPeriods {
			names[i] = p.String()
		}
		sb.WriteString(", except during ")
		sb.WriteString(joinList(names))
	}
	if len(r.NotOnDates) > 0 {
		names := make([]string, len(r.NotOnDates))
		for i, d := range r.NotOnDates {
			names[i] = explainDate(d)
		}
		sb.WriteString(", except on ")
		sb.WriteString(joinList(names))
	}
	return sb.String()
}

func periodNames(r RegularRule) []string {
	names := make([]string, len(r.OnlyInPeriods))
	for i, p := range r.OnlyInPeriods {
		names[i] = p.String()
	}
	return names
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
