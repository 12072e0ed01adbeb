package schedule

import (
	"fmt"
	"time"

	"github.com/JaimeStill/horarium/internal/calendar"
)

// MaxYearLookback bounds the weekday year search: the Gregorian weekday
// pattern repeats every 28 years within a century.
const MaxYearLookback = 28

// Resolve returns the date of the rule. Year-less dates with a weekday are
// matched against defaultYear, then defaultYear+1, then earlier years down to
// defaultYear-lookback. Year-less dates without weekday take defaultYear.
func (r OneOffRule) Resolve(defaultYear, lookback int) (time.Time, error) {
	if r.LiturgicalDay != "" {
		year := r.Year
		if year == 0 {
			year = defaultYear
		}
		return r.LiturgicalDay.In(year)
	}

	if r.Year != 0 {
		if err := r.validate(); err != nil {
			return time.Time{}, err
		}
		return calendar.Date(r.Year, r.Month, r.Day), nil
	}

	lookback = max(0, min(lookback, MaxYearLookback))
	for _, year := range candidateYears(defaultYear, lookback) {
		if r.Day > calendar.DaysIn(year, r.Month) {
			continue
		}
		d := calendar.Date(year, r.Month, r.Day)
		if r.WeekdayISO == 0 || isoWeekday(d.Weekday()) == r.WeekdayISO {
			return d, nil
		}
	}

	return time.Time{}, fmt.Errorf(
		"%w: %02d-%02d weekday %d from %d back %d years",
		ErrNoMatchingYear, r.Month, r.Day, r.WeekdayISO, defaultYear, lookback,
	)
}

func candidateYears(defaultYear, lookback int) []int {
	years := make([]int, 0, lookback+2)
	years = append(years, defaultYear, defaultYear+1)
	for y := defaultYear - 1; y >= defaultYear-lookback; y-- {
		years = append(years, y)
	}
	return years
}
