package calendar

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Zone is a French school-holiday zone.
type Zone string

const (
	ZoneA Zone = "A"
	ZoneB Zone = "B"
	ZoneC Zone = "C"
)

const zoneAll = "all"

// ParseZone validates a zone letter.
func ParseZone(s string) (Zone, error) {
	switch z := Zone(s); z {
	case ZoneA, ZoneB, ZoneC:
		return z, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownZone, s)
}

func (z *Zone) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseZone(raw)
	if err != nil {
		return err
	}
	*z = v
	return nil
}

//go:embed data/school_holidays.yaml
var holidaysYAML []byte

type holidayEntry struct {
	Name  PeriodName `yaml:"name"`
	Zone  string     `yaml:"zone"`
	Start time.Time  `yaml:"start"`
	End   time.Time  `yaml:"end"`
}

type holidayTable struct {
	Covers struct {
		From time.Time `yaml:"from"`
		To   time.Time `yaml:"to"`
	} `yaml:"covers"`
	Holidays []holidayEntry `yaml:"holidays"`
}

var (
	holidaysOnce sync.Once
	holidays     holidayTable
	holidaysErr  error
)

func loadHolidays() {
	if err := yaml.Unmarshal(holidaysYAML, &holidays); err != nil {
		holidaysErr = fmt.Errorf("decode school holiday table: %w", err)
	}
}

// HolidayCoverage returns the date range the school holiday table describes.
func HolidayCoverage() (DateRange, error) {
	holidaysOnce.Do(loadHolidays)
	if holidaysErr != nil {
		return DateRange{}, holidaysErr
	}
	return NewDateRange(holidays.Covers.From, holidays.Covers.To), nil
}

// schoolHolidays returns the holiday ranges named name (SchoolHolidays for all)
// of zone that overlap window. Days of window past the table are treated as
// school days; a window entirely outside the table is an error.
func schoolHolidays(name PeriodName, zone Zone, window DateRange) ([]DateRange, error) {
	if _, err := ParseZone(string(zone)); err != nil {
		return nil, err
	}

	coverage, err := HolidayCoverage()
	if err != nil {
		return nil, err
	}
	covered := window.Clip(coverage)
	if covered.Empty() {
		return nil, fmt.Errorf(
			"%w: school holidays %s..%s",
			ErrYearNotCovered,
			window.Start.Format(time.DateOnly),
			window.End.Format(time.DateOnly),
		)
	}

	out := make([]DateRange, 0)
	for _, h := range holidays.Holidays {
		if name != SchoolHolidays && h.Name != name {
			continue
		}
		if h.Zone != zoneAll && Zone(h.Zone) != zone {
			continue
		}
		r := NewDateRange(h.Start, h.End)
		if r.Overlaps(covered) {
			out = append(out, r)
		}
	}
	return out, nil
}
