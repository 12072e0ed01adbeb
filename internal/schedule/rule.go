package schedule

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/JaimeStill/horarium/internal/calendar"
)

// DateRule is either a OneOffRule or a RegularRule.
type DateRule interface {
	isDateRule()
	validate() error
	normalize() DateRule
}

// OneOffRule is a single date. Year may be zero (unknown), in which case the
// year is guessed from WeekdayISO. A LiturgicalDay replaces Month and Day.
type OneOffRule struct {
	Year          int
	Month         time.Month
	Day           int
	WeekdayISO    int
	LiturgicalDay calendar.LiturgicalDay
}

func (OneOffRule) isDateRule() {}

func (r OneOffRule) normalize() DateRule { return r }

func (r OneOffRule) validate() error {
	if r.LiturgicalDay != "" {
		if !r.LiturgicalDay.Valid() {
			return fmt.Errorf("%w: unknown liturgical day %q", ErrInvalidRule, r.LiturgicalDay)
		}
		if r.Month != 0 || r.Day != 0 || r.WeekdayISO != 0 {
			return fmt.Errorf("%w: liturgical day %q with explicit date", ErrInvalidRule, r.LiturgicalDay)
		}
		return nil
	}

	md := calendar.MonthDay{Month: r.Month, Day: r.Day}
	if !md.Valid() {
		return fmt.Errorf("%w: date %d-%d", ErrInvalidRule, r.Month, r.Day)
	}
	if r.WeekdayISO < 0 || r.WeekdayISO > 7 {
		return fmt.Errorf("%w: weekday %d", ErrInvalidRule, r.WeekdayISO)
	}
	if r.Year != 0 {
		if r.Day > calendar.DaysIn(r.Year, r.Month) {
			return fmt.Errorf("%w: %d-%02d-%02d does not exist", ErrInvalidRule, r.Year, r.Month, r.Day)
		}
		if r.WeekdayISO != 0 && isoWeekday(calendar.Date(r.Year, r.Month, r.Day).Weekday()) != r.WeekdayISO {
			return fmt.Errorf(
				"%w: %d-%02d-%02d is not weekday %d",
				ErrInvalidRule, r.Year, r.Month, r.Day, r.WeekdayISO,
			)
		}
	}
	return nil
}

// Recurrence is the inclusion pattern of a RegularRule: Daily, Weekly or Monthly.
type Recurrence interface {
	isRecurrence()
	validate() error
	normalize() Recurrence
}

// Daily repeats every day.
type Daily struct{}

func (Daily) isRecurrence() {}

func (Daily) validate() error { return nil }

func (d Daily) normalize() Recurrence { return d }

// Weekly repeats on a set of weekdays.
type Weekly struct {
	Weekdays []time.Weekday
}

func (Weekly) isRecurrence() {}

func (w Weekly) validate() error {
	if len(w.Weekdays) == 0 {
		return fmt.Errorf("%w: weekly rule without weekday", ErrInvalidRule)
	}
	for _, d := range w.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidRule, d)
		}
	}
	return nil
}

func (w Weekly) normalize() Recurrence {
	days := slices.Clone(w.Weekdays)
	slices.SortFunc(days, func(a, b time.Weekday) int {
		return cmp.Compare(isoWeekday(a), isoWeekday(b))
	})
	return Weekly{Weekdays: slices.Compact(days)}
}

// NthWeekday is the Position-th Weekday of a month. Position is 1 to 5, or -1
// for the last one.
type NthWeekday struct {
	Position int
	Weekday  time.Weekday
}

// Monthly repeats on nth weekdays of every month.
type Monthly struct {
	Positions []NthWeekday
}

func (Monthly) isRecurrence() {}

func (m Monthly) validate() error {
	if len(m.Positions) == 0 {
		return fmt.Errorf("%w: monthly rule without position", ErrInvalidRule)
	}
	for _, p := range m.Positions {
		if p.Position == 0 || p.Position < -1 || p.Position > 5 {
			return fmt.Errorf("%w: position %d", ErrInvalidRule, p.Position)
		}
		if p.Weekday < time.Sunday || p.Weekday > time.Saturday {
			return fmt.Errorf("%w: weekday %d", ErrInvalidRule, p.Weekday)
		}
	}
	return nil
}

func (m Monthly) normalize() Recurrence {
	pos := slices.Clone(m.Positions)
	slices.SortFunc(pos, func(a, b NthWeekday) int {
		return cmp.Or(
			cmp.Compare(positionOrder(a.Position), positionOrder(b.Position)),
			cmp.Compare(isoWeekday(a.Weekday), isoWeekday(b.Weekday)),
		)
	})
	return Monthly{Positions: slices.Compact(pos)}
}

func positionOrder(p int) int {
	if p == -1 {
		return 6
	}
	return p
}

// RegularRule is a recurring pattern qualified by periods and excluded dates.
type RegularRule struct {
	Recurrence    Recurrence
	OnlyInPeriods []calendar.Period
	NotInPeriods  []calendar.Period
	NotOnDates    []OneOffRule
}

func (RegularRule) isDateRule() {}

// HasQualifiers reports whether the rule carries any period or date exception.
func (r RegularRule) HasQualifiers() bool {
	return len(r.OnlyInPeriods) > 0 || len(r.NotInPeriods) > 0 || len(r.NotOnDates) > 0
}

func (r RegularRule) validate() error {
	if r.Recurrence == nil {
		return fmt.Errorf("%w: regular rule without recurrence", ErrInvalidRule)
	}
	if err := r.Recurrence.validate(); err != nil {
		return err
	}
	for _, p := range slices.Concat(r.OnlyInPeriods, r.NotInPeriods) {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRule, err)
		}
	}
	for _, d := range r.NotOnDates {
		if err := d.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r RegularRule) normalize() DateRule {
	out := RegularRule{
		OnlyInPeriods: normalizePeriods(r.OnlyInPeriods),
		NotInPeriods:  normalizePeriods(r.NotInPeriods),
		NotOnDates:    normalizeDates(r.NotOnDates),
	}
	if r.Recurrence != nil {
		out.Recurrence = r.Recurrence.normalize()
	}
	return out
}

func normalizePeriods(periods []calendar.Period) []calendar.Period {
	if len(periods) == 0 {
		return nil
	}
	out := slices.Clone(periods)
	slices.SortFunc(out, func(a, b calendar.Period) int {
		return cmp.Or(
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.Start.Month, b.Start.Month),
			cmp.Compare(a.Start.Day, b.Start.Day),
			cmp.Compare(a.End.Month, b.End.Month),
			cmp.Compare(a.End.Day, b.End.Day),
		)
	})
	return slices.Compact(out)
}

func normalizeDates(dates []OneOffRule) []OneOffRule {
	if len(dates) == 0 {
		return nil
	}
	out := slices.Clone(dates)
	slices.SortFunc(out, func(a, b OneOffRule) int {
		return cmp.Or(
			cmp.Compare(a.Year, b.Year),
			cmp.Compare(a.Month, b.Month),
			cmp.Compare(a.Day, b.Day),
			cmp.Compare(a.WeekdayISO, b.WeekdayISO),
			cmp.Compare(a.LiturgicalDay, b.LiturgicalDay),
		)
	})
	return slices.Compact(out)
}

// isoWeekday maps time.Weekday to ISO 8601 numbering (Monday=1 ... Sunday=7).
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}

func fromISOWeekday(iso int) time.Weekday {
	return time.Weekday(iso % 7)
}
