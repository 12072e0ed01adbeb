// Package recurrence expands schedule items into dated occurrences over a
// window, merges redundant items and detects conflicting occurrences.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/JaimeStill/horarium/internal/calendar"
	"github.com/JaimeStill/horarium/internal/schedule"
)

// Engine expands schedule items. Zone selects the school-holiday zone used to
// resolve holiday periods.
type Engine struct {
	Zone        calendar.Zone
	MaxLookback int
}

func NewEngine(zone calendar.Zone, lookback int) *Engine {
	return &Engine{Zone: zone, MaxLookback: lookback}
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Occurrences returns every occurrence of item whose day falls in window.
// Year-less one-off dates resolve against defaultYear.
func (e *Engine) Occurrences(item schedule.ScheduleItem, window calendar.DateRange, defaultYear int) ([]Occurrence, error) {
	if window.Empty() {
		return nil, nil
	}

	switch r := item.DateRule.(type) {
	case schedule.OneOffRule:
		day, err := r.Resolve(defaultYear, e.MaxLookback)
		if err != nil {
			return nil, err
		}
		if !window.Contains(day) {
			return nil, nil
		}
		return []Occurrence{newOccurrence(item, startOn(item, day))}, nil
	case schedule.RegularRule:
		return e.regular(item, r, window, defaultYear)
	}
	return nil, fmt.Errorf("%w: no date rule", schedule.ErrInvalidRule)
}

func (e *Engine) regular(item schedule.ScheduleItem, r schedule.RegularRule, window calendar.DateRange, defaultYear int) ([]Occurrence, error) {
	until := window.End.Add(-time.Second)

	include, err := inclusionRule(r.Recurrence, startOn(item, window.Start), until)
	if err != nil {
		return nil, err
	}

	set := &rrule.Set{}
	set.RRule(include)

	excluded, err := e.excludedRanges(r, window)
	if err != nil {
		return nil, err
	}
	for _, rng := range excluded {
		for d := rng.Start; d.Before(rng.End); d = d.AddDate(0, 0, 1) {
			set.ExDate(startOn(item, d))
		}
	}

	days, err := e.excludedDates(r.NotOnDates, window, defaultYear)
	if err != nil {
		return nil, err
	}
	for _, day := range days {
		set.ExDate(startOn(item, day))
	}

	times := set.Between(window.Start, until, true)
	occs := make([]Occurrence, 0, len(times))
	for _, t := range times {
		occs = append(occs, newOccurrence(item, t.UTC()))
	}
	return occs, nil
}

func inclusionRule(rec schedule.Recurrence, dtstart, until time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{Dtstart: dtstart, Until: until}

	switch r := rec.(type) {
	case schedule.Daily:
		opt.Freq = rrule.DAILY
	case schedule.Weekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range r.Weekdays {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case schedule.Monthly:
		opt.Freq = rrule.MONTHLY
		for _, p := range r.Positions {
			wd := rruleWeekdays[p.Weekday]
			opt.Byweekday = append(opt.Byweekday, wd.Nth(p.Position))
		}
	default:
		return nil, fmt.Errorf("%w: unknown recurrence %T", schedule.ErrInvalidRule, rec)
	}

	return rrule.NewRRule(opt)
}

// excludedRanges unions the complement of the only-in periods with the
// not-in periods.
func (e *Engine) excludedRanges(r schedule.RegularRule, window calendar.DateRange) ([]calendar.DateRange, error) {
	var excluded []calendar.DateRange

	if len(r.OnlyInPeriods) > 0 {
		allowed, err := calendar.ResolveAll(r.OnlyInPeriods, window, e.Zone)
		if err != nil {
			return nil, err
		}
		excluded = append(excluded, calendar.Complement(allowed, window)...)
	}

	if len(r.NotInPeriods) > 0 {
		denied, err := calendar.ResolveAll(r.NotInPeriods, window, e.Zone)
		if err != nil {
			return nil, err
		}
		excluded = append(excluded, denied...)
	}

	return calendar.Union(excluded), nil
}

// excludedDates resolves the not-on dates. Dates with neither year nor
// weekday repeat in every year of the window; a February 29 is skipped in
// common years. Dates that cannot be resolved fail the item.
func (e *Engine) excludedDates(dates []schedule.OneOffRule, window calendar.DateRange, defaultYear int) ([]time.Time, error) {
	var days []time.Time
	for _, d := range dates {
		switch {
		case d.Year != 0 || d.WeekdayISO != 0:
			day, err := d.Resolve(defaultYear, e.MaxLookback)
			if err != nil {
				return nil, fmt.Errorf("not on date: %w", err)
			}
			days = append(days, day)
		case d.LiturgicalDay != "":
			for _, year := range window.Years() {
				day, err := d.LiturgicalDay.In(year)
				if err != nil {
					return nil, fmt.Errorf("not on %s: %w", d.LiturgicalDay, err)
				}
				days = append(days, day)
			}
		default:
			for _, year := range window.Years() {
				if d.Day > calendar.DaysIn(year, d.Month) {
					continue
				}
				days = append(days, calendar.Date(year, d.Month, d.Day))
			}
		}
	}
	return days, nil
}

func startOn(item schedule.ScheduleItem, day time.Time) time.Time {
	if item.Start == nil {
		return calendar.Truncate(day)
	}
	return item.Start.On(day)
}

// Expand computes the occurrences of every item over window. Cancellation
// occurrences remove matching regular occurrences and are not returned.
// Items that fail to expand are reported in the joined error; occurrences
// of the remaining items are still returned.
func (e *Engine) Expand(items []schedule.ScheduleItem, window calendar.DateRange, defaultYear int) ([]Occurrence, error) {
	var (
		positive []Occurrence
		cancel   []Occurrence
		errs     []error
	)

	for _, item := range items {
		occs, err := e.Occurrences(item, window, defaultYear)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", schedule.Explain(item), err))
			continue
		}
		if item.IsCancellation {
			cancel = append(cancel, occs...)
		} else {
			positive = append(positive, occs...)
		}
	}

	kept := positive[:0]
	for _, o := range positive {
		cancelled := false
		for _, c := range cancel {
			if cancels(c, o) {
				cancelled = true
				break
			}
		}
		if !cancelled {
			kept = append(kept, o)
		}
	}

	Sort(kept)
	return Dedupe(kept), errors.Join(errs...)
}
