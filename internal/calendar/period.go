package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// PeriodName identifies a named period. Custom periods use PeriodCustom with
// explicit month/day bounds.
type PeriodName string

const (
	January   PeriodName = "january"
	February  PeriodName = "february"
	March     PeriodName = "march"
	April     PeriodName = "april"
	May       PeriodName = "may"
	June      PeriodName = "june"
	July      PeriodName = "july"
	August    PeriodName = "august"
	September PeriodName = "september"
	October   PeriodName = "october"
	November  PeriodName = "november"
	December  PeriodName = "december"

	Spring PeriodName = "spring"
	Summer PeriodName = "summer"
	Autumn PeriodName = "autumn"
	Winter PeriodName = "winter"

	Advent     PeriodName = "advent"
	Lent       PeriodName = "lent"
	HolyWeek   PeriodName = "holy_week"
	EasterTime PeriodName = "easter_time"

	SchoolHolidays    PeriodName = "school_holidays"
	AllSaintsHolidays PeriodName = "all_saints_holidays"
	ChristmasHolidays PeriodName = "christmas_holidays"
	WinterHolidays    PeriodName = "winter_holidays"
	SpringHolidays    PeriodName = "spring_holidays"
	SummerHolidays    PeriodName = "summer_holidays"

	PeriodCustom PeriodName = "custom"
)

type periodKind int

const (
	kindMonth periodKind = iota
	kindSeason
	kindLiturgical
	kindSchool
	kindCustom
)

var periodKinds = map[PeriodName]periodKind{
	January: kindMonth, February: kindMonth, March: kindMonth, April: kindMonth,
	May: kindMonth, June: kindMonth, July: kindMonth, August: kindMonth,
	September: kindMonth, October: kindMonth, November: kindMonth, December: kindMonth,

	Spring: kindSeason, Summer: kindSeason, Autumn: kindSeason, Winter: kindSeason,

	Advent: kindLiturgical, Lent: kindLiturgical, HolyWeek: kindLiturgical, EasterTime: kindLiturgical,

	SchoolHolidays: kindSchool, AllSaintsHolidays: kindSchool, ChristmasHolidays: kindSchool,
	WinterHolidays: kindSchool, SpringHolidays: kindSchool, SummerHolidays: kindSchool,

	PeriodCustom: kindCustom,
}

var monthPeriods = map[PeriodName]time.Month{
	January: time.January, February: time.February, March: time.March,
	April: time.April, May: time.May, June: time.June,
	July: time.July, August: time.August, September: time.September,
	October: time.October, November: time.November, December: time.December,
}

// season bounds as [start, end) month/days; winter wraps into the next year
var seasons = map[PeriodName][2]MonthDay{
	Spring: {{time.March, 20}, {time.June, 21}},
	Summer: {{time.June, 21}, {time.September, 23}},
	Autumn: {{time.September, 23}, {time.December, 21}},
	Winter: {{time.December, 21}, {time.March, 20}},
}

// MonthDay is a year-less calendar day.
type MonthDay struct {
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// Valid reports whether the day exists in a leap year.
func (md MonthDay) Valid() bool {
	if md.Month < time.January || md.Month > time.December || md.Day < 1 {
		return false
	}
	return md.Day <= DaysIn(2024, md.Month)
}

// In returns the date in year. February 29 in a common year falls on March 1.
func (md MonthDay) In(year int) time.Time {
	return Date(year, md.Month, md.Day)
}

func (md MonthDay) before(o MonthDay) bool {
	return md.Month < o.Month || (md.Month == o.Month && md.Day < o.Day)
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 1).AddDate(0, 0, -1).Day()
}

// Period is a named or custom calendar interval. Start and End are inclusive
// and only meaningful for PeriodCustom.
type Period struct {
	Name  PeriodName `json:"name"`
	Start MonthDay   `json:"start"`
	End   MonthDay   `json:"end"`
}

// Named returns the named period p.
func Named(name PeriodName) Period {
	return Period{Name: name}
}

// Custom returns the inclusive month/day period start..end, wrapping over the
// year end when end precedes start.
func Custom(start, end MonthDay) Period {
	return Period{Name: PeriodCustom, Start: start, End: end}
}

// Validate reports unknown names and malformed custom bounds.
func (p Period) Validate() error {
	kind, ok := periodKinds[p.Name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPeriod, p.Name)
	}
	if kind == kindCustom && (!p.Start.Valid() || !p.End.Valid()) {
		return fmt.Errorf("%w: %v..%v", ErrInvalidCustomRange, p.Start, p.End)
	}
	return nil
}

// IsSchoolHoliday reports whether p depends on the holiday zone tables.
func (p Period) IsSchoolHoliday() bool {
	return periodKinds[p.Name] == kindSchool
}

// String renders the period for explanations.
func (p Period) String() string {
	if p.Name == PeriodCustom {
		return fmt.Sprintf("%s %d to %s %d", p.Start.Month, p.Start.Day, p.End.Month, p.End.Day)
	}
	return string(p.Name)
}

// Intervals returns the concrete date ranges of p that start in year.
// School holidays are looked up in the zone table rather than by year; use
// Resolve for those.
func (p Period) Intervals(year int) ([]DateRange, error) {
	kind, ok := periodKinds[p.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, p.Name)
	}

	switch kind {
	case kindMonth:
		m := monthPeriods[p.Name]
		return []DateRange{{Start: Date(year, m, 1), End: Date(year, m+1, 1)}}, nil
	case kindSeason:
		b := seasons[p.Name]
		return []DateRange{{Start: b[0].In(year), End: yearRange(b[0], b[1], year)}}, nil
	case kindLiturgical:
		return liturgicalIntervals(p.Name, year)
	case kindCustom:
		if err := p.Validate(); err != nil {
			return nil, err
		}
		last := yearRange(p.Start, p.End, year)
		return []DateRange{{Start: p.Start.In(year), End: last.AddDate(0, 0, 1)}}, nil
	}
	return nil, fmt.Errorf("%w: %q has no yearly intervals", ErrUnknownPeriod, p.Name)
}

// yearRange returns end in year, or in year+1 when end precedes start.
func yearRange(start, end MonthDay, year int) time.Time {
	if end.before(start) {
		return end.In(year + 1)
	}
	return end.In(year)
}

// wraps reports whether the yearly intervals of p cross the year end.
func (p Period) wraps() bool {
	switch periodKinds[p.Name] {
	case kindSeason:
		b := seasons[p.Name]
		return b[1].before(b[0])
	case kindCustom:
		return p.End.before(p.Start)
	}
	return false
}

// Resolve returns the unioned date ranges of p overlapping window, clipped to it.
// For periods wrapping over the year end the interval starting in the year
// before the window is included too.
func (p Period) Resolve(window DateRange, zone Zone) ([]DateRange, error) {
	if window.Empty() {
		return nil, nil
	}

	var raw []DateRange
	if p.IsSchoolHoliday() {
		found, err := schoolHolidays(p.Name, zone, window)
		if err != nil {
			return nil, err
		}
		raw = found
	} else {
		years := window.Years()
		if p.wraps() {
			years = append([]int{window.Start.Year() - 1}, years...)
		}
		for _, y := range years {
			found, err := p.Intervals(y)
			if err != nil {
				return nil, err
			}
			raw = append(raw, found...)
		}
	}

	out := make([]DateRange, 0, len(raw))
	for _, r := range raw {
		if c := r.Clip(window); !c.Empty() {
			out = append(out, c)
		}
	}
	return Union(out), nil
}

// ResolveAll unions the ranges of every period over window.
func ResolveAll(periods []Period, window DateRange, zone Zone) ([]DateRange, error) {
	all := make([]DateRange, 0)
	for _, p := range periods {
		ranges, err := p.Resolve(window, zone)
		if err != nil {
			return nil, err
		}
		all = append(all, ranges...)
	}
	return Union(all), nil
}

// MarshalJSON encodes named periods as a bare string and custom periods as an object.
func (p Period) MarshalJSON() ([]byte, error) {
	if p.Name != PeriodCustom {
		return json.Marshal(string(p.Name))
	}
	type custom struct {
		Start MonthDay `json:"start"`
		End   MonthDay `json:"end"`
	}
	return json.Marshal(custom{Start: p.Start, End: p.End})
}

func (p *Period) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		v := Named(PeriodName(name))
		if v.Name == PeriodCustom {
			return fmt.Errorf("%w: custom period requires bounds", ErrInvalidCustomRange)
		}
		if err := v.Validate(); err != nil {
			return err
		}
		*p = v
		return nil
	}

	var custom struct {
		Start MonthDay `json:"start"`
		End   MonthDay `json:"end"`
	}
	if err := json.Unmarshal(data, &custom); err != nil {
		return err
	}
	v := Custom(custom.Start, custom.End)
	if err := v.Validate(); err != nil {
		return err
	}
	*p = v
	return nil
}
