package calendar_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/JaimeStill/horarium/internal/calendar"
)

// computus is the anonymous Gregorian algorithm, used to cross-check the table.
func computus(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return calendar.Date(year, time.Month(month), day)
}

func TestEasterTable(t *testing.T) {
	for year := 2020; year <= 2035; year++ {
		got, err := calendar.Easter(year)
		if err != nil {
			t.Fatalf("Easter(%d) error: %v", year, err)
		}
		if want := computus(year); !got.Equal(want) {
			t.Errorf("Easter(%d) = %s, want %s", year, got.Format(time.DateOnly), want.Format(time.DateOnly))
		}
	}
}

func TestEasterNotCovered(t *testing.T) {
	_, err := calendar.Easter(1999)
	if !errors.Is(err, calendar.ErrYearNotCovered) {
		t.Errorf("Easter(1999) error = %v, want ErrYearNotCovered", err)
	}
}

func TestLiturgicalDays(t *testing.T) {
	tests := []struct {
		day  calendar.LiturgicalDay
		year int
		want time.Time
	}{
		{calendar.AshWednesday, 2024, calendar.Date(2024, time.February, 14)},
		{calendar.PalmSunday, 2024, calendar.Date(2024, time.March, 24)},
		{calendar.GoodFriday, 2024, calendar.Date(2024, time.March, 29)},
		{calendar.EasterSunday, 2025, calendar.Date(2025, time.April, 20)},
		{calendar.Ascension, 2024, calendar.Date(2024, time.May, 9)},
		{calendar.Pentecost, 2024, calendar.Date(2024, time.May, 19)},
		{calendar.Christmas, 2024, calendar.Date(2024, time.December, 25)},
		{calendar.AllSaints, 2026, calendar.Date(2026, time.November, 1)},
	}

	for _, tt := range tests {
		t.Run(string(tt.day), func(t *testing.T) {
			got, err := tt.day.In(tt.year)
			if err != nil {
				t.Fatalf("In(%d) error: %v", tt.year, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("In(%d) = %s, want %s", tt.year, got.Format(time.DateOnly), tt.want.Format(time.DateOnly))
			}
		})
	}
}

func TestFirstSundayOfAdvent(t *testing.T) {
	tests := map[int]time.Time{
		2022: calendar.Date(2022, time.November, 27),
		2023: calendar.Date(2023, time.December, 3),
		2024: calendar.Date(2024, time.December, 1),
	}
	for year, want := range tests {
		if got := calendar.FirstSundayOfAdvent(year); !got.Equal(want) {
			t.Errorf("FirstSundayOfAdvent(%d) = %s, want %s", year, got.Format(time.DateOnly), want.Format(time.DateOnly))
		}
	}
}

func TestPeriodResolve(t *testing.T) {
	year2024 := calendar.NewDateRange(
		calendar.Date(2024, time.January, 1),
		calendar.Date(2025, time.January, 1),
	)

	tests := []struct {
		name    string
		periods []calendar.Period
		window  calendar.DateRange
		want    []calendar.DateRange
	}{
		{
			name:    "july and august unioned",
			periods: []calendar.Period{calendar.Named(calendar.July), calendar.Named(calendar.August)},
			window:  year2024,
			want: []calendar.DateRange{
				{Start: calendar.Date(2024, time.July, 1), End: calendar.Date(2024, time.September, 1)},
			},
		},
		{
			name:    "winter wraps the year end",
			periods: []calendar.Period{calendar.Named(calendar.Winter)},
			window:  year2024,
			want: []calendar.DateRange{
				{Start: calendar.Date(2024, time.January, 1), End: calendar.Date(2024, time.March, 20)},
				{Start: calendar.Date(2024, time.December, 21), End: calendar.Date(2025, time.January, 1)},
			},
		},
		{
			name: "custom wrapping period",
			periods: []calendar.Period{calendar.Custom(
				calendar.MonthDay{Month: time.December, Day: 15},
				calendar.MonthDay{Month: time.January, Day: 10},
			)},
			window: year2024,
			want: []calendar.DateRange{
				{Start: calendar.Date(2024, time.January, 1), End: calendar.Date(2024, time.January, 11)},
				{Start: calendar.Date(2024, time.December, 15), End: calendar.Date(2025, time.January, 1)},
			},
		},
		{
			name:    "lent and holy week overlap",
			periods: []calendar.Period{calendar.Named(calendar.Lent), calendar.Named(calendar.HolyWeek)},
			window:  year2024,
			want: []calendar.DateRange{
				{Start: calendar.Date(2024, time.February, 14), End: calendar.Date(2024, time.March, 31)},
			},
		},
		{
			name:    "zone C winter holidays",
			periods: []calendar.Period{calendar.Named(calendar.WinterHolidays)},
			window:  year2024,
			want: []calendar.DateRange{
				{Start: calendar.Date(2024, time.February, 10), End: calendar.Date(2024, time.February, 26)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calendar.ResolveAll(tt.periods, tt.window, calendar.ZoneC)
			if err != nil {
				t.Fatalf("ResolveAll error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ResolveAll = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Start.Equal(tt.want[i].Start) || !got[i].End.Equal(tt.want[i].End) {
					t.Errorf("range %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSchoolHolidaysOutsideCoverage(t *testing.T) {
	window := calendar.NewDateRange(
		calendar.Date(2031, time.January, 1),
		calendar.Date(2031, time.June, 1),
	)
	_, err := calendar.Named(calendar.SummerHolidays).Resolve(window, calendar.ZoneA)
	if !errors.Is(err, calendar.ErrYearNotCovered) {
		t.Errorf("Resolve error = %v, want ErrYearNotCovered", err)
	}
}

func TestSchoolHolidaysPartialCoverage(t *testing.T) {
	start := calendar.Date(2026, time.November, 10)
	window := calendar.NewDateRange(start, start.AddDate(0, 0, 300))

	got, err := calendar.Named(calendar.SummerHolidays).Resolve(window, calendar.ZoneC)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	want := calendar.DateRange{Start: calendar.Date(2027, time.July, 3), End: calendar.Date(2027, time.September, 1)}
	if len(got) != 1 || !got[0].Start.Equal(want.Start) || !got[0].End.Equal(want.End) {
		t.Errorf("Resolve = %v, want [%v]", got, want)
	}
}

func TestPeriodResolveFirstTableYear(t *testing.T) {
	window := calendar.NewDateRange(calendar.Date(2020, time.January, 1), calendar.Date(2021, time.January, 1))

	got, err := calendar.Named(calendar.Lent).Resolve(window, calendar.ZoneC)
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	want := calendar.DateRange{Start: calendar.Date(2020, time.February, 26), End: calendar.Date(2020, time.April, 12)}
	if len(got) != 1 || !got[0].Start.Equal(want.Start) || !got[0].End.Equal(want.End) {
		t.Errorf("Resolve = %v, want [%v]", got, want)
	}

	if _, err := calendar.Named(calendar.Winter).Resolve(window, calendar.ZoneC); err != nil {
		t.Errorf("Resolve(winter) error: %v", err)
	}
}

func TestComplement(t *testing.T) {
	within := calendar.NewDateRange(calendar.Date(2024, time.January, 1), calendar.Date(2024, time.February, 1))
	ranges := []calendar.DateRange{
		{Start: calendar.Date(2024, time.January, 10), End: calendar.Date(2024, time.January, 15)},
		{Start: calendar.Date(2024, time.January, 14), End: calendar.Date(2024, time.January, 20)},
		{Start: calendar.Date(2023, time.December, 1), End: calendar.Date(2024, time.January, 3)},
	}

	got := calendar.Complement(ranges, within)
	want := []calendar.DateRange{
		{Start: calendar.Date(2024, time.January, 3), End: calendar.Date(2024, time.January, 10)},
		{Start: calendar.Date(2024, time.January, 20), End: calendar.Date(2024, time.February, 1)},
	}

	if len(got) != len(want) {
		t.Fatalf("Complement = %v, want %v", got, want)
	}
	for i := range got {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Errorf("gap %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPeriodUnmarshal(t *testing.T) {
	var periods []calendar.Period
	data := `["july", {"start": {"month": 12, "day": 24}, "end": {"month": 1, "day": 2}}]`
	if err := json.Unmarshal([]byte(data), &periods); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if periods[0] != calendar.Named(calendar.July) {
		t.Errorf("periods[0] = %v, want july", periods[0])
	}
	if periods[1].Name != calendar.PeriodCustom || periods[1].Start.Day != 24 {
		t.Errorf("periods[1] = %v, want custom Dec 24 - Jan 2", periods[1])
	}

	var p calendar.Period
	if err := json.Unmarshal([]byte(`"harvest"`), &p); !errors.Is(err, calendar.ErrUnknownPeriod) {
		t.Errorf("Unmarshal unknown error = %v, want ErrUnknownPeriod", err)
	}
}
