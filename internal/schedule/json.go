package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/JaimeStill/horarium/internal/calendar"
)

// Rule kinds on the wire.
const (
	KindOneOff  = "one_off"
	KindDaily   = "daily"
	KindWeekly  = "weekly"
	KindMonthly = "monthly"
)

type wireDate struct {
	Year          int                    `json:"year,omitempty"`
	Month         int                    `json:"month,omitempty"`
	Day           int                    `json:"day,omitempty"`
	WeekdayISO    int                    `json:"weekday_iso8601,omitempty"`
	LiturgicalDay calendar.LiturgicalDay `json:"liturgical_day,omitempty"`
}

type wireNth struct {
	Position   int `json:"position"`
	WeekdayISO int `json:"weekday_iso8601"`
}

type wireRule struct {
	Kind string `json:"kind"`
	wireDate
	Weekdays      []int             `json:"weekdays_iso8601,omitempty"`
	NthWeekdays   []wireNth         `json:"nth_weekdays,omitempty"`
	OnlyInPeriods []calendar.Period `json:"only_in_periods,omitempty"`
	NotInPeriods  []calendar.Period `json:"not_in_periods,omitempty"`
	NotOnDates    []wireDate        `json:"not_on_dates,omitempty"`
}

type wireItem struct {
	ChurchID       *int       `json:"church_id"`
	IsOtherChurch  bool       `json:"is_other_church,omitempty"`
	DateRule       wireRule   `json:"date_rule"`
	IsCancellation bool       `json:"is_cancellation,omitempty"`
	Start          *TimeOfDay `json:"start_time"`
	End            *TimeOfDay `json:"end_time"`
}

func toWireDate(r OneOffRule) wireDate {
	return wireDate{
		Year:          r.Year,
		Month:         int(r.Month),
		Day:           r.Day,
		WeekdayISO:    r.WeekdayISO,
		LiturgicalDay: r.LiturgicalDay,
	}
}

func (w wireDate) oneOff() OneOffRule {
	return OneOffRule{
		Year:          w.Year,
		Month:         time.Month(w.Month),
		Day:           w.Day,
		WeekdayISO:    w.WeekdayISO,
		LiturgicalDay: w.LiturgicalDay,
	}
}

func toWireRule(rule DateRule) (wireRule, error) {
	switch r := rule.(type) {
	case OneOffRule:
		return wireRule{Kind: KindOneOff, wireDate: toWireDate(r)}, nil
	case RegularRule:
		w := wireRule{
			OnlyInPeriods: r.OnlyInPeriods,
			NotInPeriods:  r.NotInPeriods,
		}
		for _, d := range r.NotOnDates {
			w.NotOnDates = append(w.NotOnDates, toWireDate(d))
		}
		switch rec := r.Recurrence.(type) {
		case Daily:
			w.Kind = KindDaily
		case Weekly:
			w.Kind = KindWeekly
			for _, d := range rec.Weekdays {
				w.Weekdays = append(w.Weekdays, isoWeekday(d))
			}
		case Monthly:
			w.Kind = KindMonthly
			for _, p := range rec.Positions {
				w.NthWeekdays = append(w.NthWeekdays, wireNth{Position: p.Position, WeekdayISO: isoWeekday(p.Weekday)})
			}
		default:
			return wireRule{}, fmt.Errorf("%w: unknown recurrence %T", ErrInvalidRule, r.Recurrence)
		}
		return w, nil
	}
	return wireRule{}, fmt.Errorf("%w: unknown date rule %T", ErrInvalidRule, rule)
}

func (w wireRule) rule() (DateRule, error) {
	if w.Kind == KindOneOff {
		return w.wireDate.oneOff(), nil
	}

	r := RegularRule{
		OnlyInPeriods: w.OnlyInPeriods,
		NotInPeriods:  w.NotInPeriods,
	}
	for _, d := range w.NotOnDates {
		r.NotOnDates = append(r.NotOnDates, d.oneOff())
	}

	switch w.Kind {
	case KindDaily:
		r.Recurrence = Daily{}
	case KindWeekly:
		days := make([]time.Weekday, 0, len(w.Weekdays))
		for _, iso := range w.Weekdays {
			if iso < 1 || iso > 7 {
				return nil, fmt.Errorf("%w: weekday %d", ErrInvalidRule, iso)
			}
			days = append(days, fromISOWeekday(iso))
		}
		r.Recurrence = Weekly{Weekdays: days}
	case KindMonthly:
		pos := make([]NthWeekday, 0, len(w.NthWeekdays))
		for _, n := range w.NthWeekdays {
			if n.WeekdayISO < 1 || n.WeekdayISO > 7 {
				return nil, fmt.Errorf("%w: weekday %d", ErrInvalidRule, n.WeekdayISO)
			}
			pos = append(pos, NthWeekday{Position: n.Position, Weekday: fromISOWeekday(n.WeekdayISO)})
		}
		r.Recurrence = Monthly{Positions: pos}
	default:
		return nil, fmt.Errorf("%w: unknown rule kind %q", ErrInvalidRule, w.Kind)
	}
	return r, nil
}

// MarshalJSON encodes the item in its wire format.
func (i ScheduleItem) MarshalJSON() ([]byte, error) {
	if i.DateRule == nil {
		return nil, fmt.Errorf("%w: missing date rule", ErrInvalidRule)
	}
	rule, err := toWireRule(i.DateRule)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireItem{
		ChurchID:       i.ChurchID,
		IsOtherChurch:  i.IsOtherChurch,
		DateRule:       rule,
		IsCancellation: i.IsCancellation,
		Start:          i.Start,
		End:            i.End,
	})
}

// UnmarshalJSON decodes, normalizes and validates an item.
func (i *ScheduleItem) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rule, err := w.DateRule.rule()
	if err != nil {
		return err
	}
	item, err := New(ScheduleItem{
		ChurchID:       w.ChurchID,
		IsOtherChurch:  w.IsOtherChurch,
		DateRule:       rule,
		IsCancellation: w.IsCancellation,
		Start:          w.Start,
		End:            w.End,
	})
	if err != nil {
		return err
	}
	*i = item
	return nil
}
