package calendar

import (
	"encoding/json"
	"fmt"
	"time"
)

// LiturgicalDay names a feast a one-off schedule may be anchored to.
type LiturgicalDay string

const (
	AshWednesday         LiturgicalDay = "ash_wednesday"
	PalmSunday           LiturgicalDay = "palm_sunday"
	HolyMonday           LiturgicalDay = "holy_monday"
	HolyTuesday          LiturgicalDay = "holy_tuesday"
	HolyWednesday        LiturgicalDay = "holy_wednesday"
	HolyThursday         LiturgicalDay = "holy_thursday"
	GoodFriday           LiturgicalDay = "good_friday"
	HolySaturday         LiturgicalDay = "holy_saturday"
	EasterSunday         LiturgicalDay = "easter_sunday"
	EasterMonday         LiturgicalDay = "easter_monday"
	DivineMercySunday    LiturgicalDay = "divine_mercy_sunday"
	Ascension            LiturgicalDay = "ascension"
	Pentecost            LiturgicalDay = "pentecost"
	PentecostMonday      LiturgicalDay = "pentecost_monday"
	TrinitySunday        LiturgicalDay = "trinity_sunday"
	CorpusChristi        LiturgicalDay = "corpus_christi"
	MaryMotherOfGod      LiturgicalDay = "mary_mother_of_god"
	Assumption           LiturgicalDay = "assumption"
	AllSaints            LiturgicalDay = "all_saints"
	AllSouls             LiturgicalDay = "all_souls"
	ImmaculateConception LiturgicalDay = "immaculate_conception"
	ChristmasEve         LiturgicalDay = "christmas_eve"
	Christmas            LiturgicalDay = "christmas"
)

// days after Easter Sunday
var easterOffsets = map[LiturgicalDay]int{
	AshWednesday:      -46,
	PalmSunday:        -7,
	HolyMonday:        -6,
	HolyTuesday:       -5,
	HolyWednesday:     -4,
	HolyThursday:      -3,
	GoodFriday:        -2,
	HolySaturday:      -1,
	EasterSunday:      0,
	EasterMonday:      1,
	DivineMercySunday: 7,
	Ascension:         39,
	Pentecost:         49,
	PentecostMonday:   50,
	TrinitySunday:     56,
	CorpusChristi:     63,
}

var fixedFeasts = map[LiturgicalDay]MonthDay{
	MaryMotherOfGod:      {Month: time.January, Day: 1},
	Assumption:           {Month: time.August, Day: 15},
	AllSaints:            {Month: time.November, Day: 1},
	AllSouls:             {Month: time.November, Day: 2},
	ImmaculateConception: {Month: time.December, Day: 8},
	ChristmasEve:         {Month: time.December, Day: 24},
	Christmas:            {Month: time.December, Day: 25},
}

// Valid reports whether d is a known liturgical day.
func (d LiturgicalDay) Valid() bool {
	if _, ok := easterOffsets[d]; ok {
		return true
	}
	_, ok := fixedFeasts[d]
	return ok
}

// Moveable reports whether the day depends on the date of Easter.
func (d LiturgicalDay) Moveable() bool {
	_, ok := easterOffsets[d]
	return ok
}

// In returns the date of the liturgical day in year.
func (d LiturgicalDay) In(year int) (time.Time, error) {
	if md, ok := fixedFeasts[d]; ok {
		return Date(year, md.Month, md.Day), nil
	}
	offset, ok := easterOffsets[d]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownLiturgical, d)
	}
	easter, err := Easter(year)
	if err != nil {
		return time.Time{}, err
	}
	return easter.AddDate(0, 0, offset), nil
}

func (d *LiturgicalDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := LiturgicalDay(raw)
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownLiturgical, raw)
	}
	*d = v
	return nil
}

// FirstSundayOfAdvent returns the fourth Sunday before Christmas of year.
func FirstSundayOfAdvent(year int) time.Time {
	christmas := Date(year, time.December, 25)
	back := int(christmas.Weekday())
	if back == 0 {
		back = 7
	}
	return christmas.AddDate(0, 0, -back-21)
}

func liturgicalIntervals(name PeriodName, year int) ([]DateRange, error) {
	if name == Advent {
		return []DateRange{{
			Start: FirstSundayOfAdvent(year),
			End:   Date(year, time.December, 25),
		}}, nil
	}

	easter, err := Easter(year)
	if err != nil {
		return nil, err
	}

	switch name {
	case Lent:
		return []DateRange{{Start: easter.AddDate(0, 0, -46), End: easter}}, nil
	case HolyWeek:
		return []DateRange{{Start: easter.AddDate(0, 0, -7), End: easter}}, nil
	case EasterTime:
		return []DateRange{{Start: easter, End: easter.AddDate(0, 0, 50)}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, name)
}
