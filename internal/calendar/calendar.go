// Package calendar computes the fixed and moveable calendar intervals used to
// qualify schedule rules: months, seasons, liturgical periods relative to Easter,
// school holidays per zone, and custom month/day periods.
//
// All dates are civil dates represented as time.Time values at midnight UTC.
package calendar

import (
	"slices"
	"time"
)

// Date returns the civil date y-m-d as midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day from t, keeping its wall-clock date.
func Truncate(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// DateRange is a half-open interval of civil dates [Start, End).
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange returns the range [start, end) with both bounds truncated to dates.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Truncate(start), End: Truncate(end)}
}

// Empty reports whether the range contains no day.
func (r DateRange) Empty() bool {
	return !r.Start.Before(r.End)
}

// Contains reports whether the date of t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Truncate(t)
	return !d.Before(r.Start) && d.Before(r.End)
}

// Overlaps reports whether two ranges share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Clip returns the intersection of r and within. The result may be empty.
func (r DateRange) Clip(within DateRange) DateRange {
	out := r
	if out.Start.Before(within.Start) {
		out.Start = within.Start
	}
	if out.End.After(within.End) {
		out.End = within.End
	}
	return out
}

// Years returns every calendar year the range touches, in order.
func (r DateRange) Years() []int {
	if r.Empty() {
		return nil
	}
	last := r.End.AddDate(0, 0, -1).Year()
	years := make([]int, 0, last-r.Start.Year()+1)
	for y := r.Start.Year(); y <= last; y++ {
		years = append(years, y)
	}
	return years
}

// Union merges overlapping and adjacent ranges. Empty ranges are dropped and
// the result is sorted by start.
func Union(ranges []DateRange) []DateRange {
	sorted := make([]DateRange, 0, len(ranges))
	for _, r := range ranges {
		if !r.Empty() {
			sorted = append(sorted, r)
		}
	}
	slices.SortFunc(sorted, func(a, b DateRange) int {
		return a.Start.Compare(b.Start)
	})

	out := make([]DateRange, 0, len(sorted))
	for _, r := range sorted {
		if n := len(out); n > 0 && !r.Start.After(out[n-1].End) {
			if r.End.After(out[n-1].End) {
				out[n-1].End = r.End
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Complement returns the parts of within not covered by ranges.
func Complement(ranges []DateRange, within DateRange) []DateRange {
	out := make([]DateRange, 0)
	cursor := within.Start
	for _, r := range Union(ranges) {
		r = r.Clip(within)
		if r.Empty() {
			continue
		}
		if cursor.Before(r.Start) {
			out = append(out, DateRange{Start: cursor, End: r.Start})
		}
		if r.End.After(cursor) {
			cursor = r.End
		}
	}
	if cursor.Before(within.End) {
		out = append(out, DateRange{Start: cursor, End: within.End})
	}
	return out
}
