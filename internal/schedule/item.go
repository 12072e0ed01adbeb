// Package schedule defines the schedule value model: ScheduleItem, its date
// rules and the SchedulesList produced for one parsed source.
//
// Items are values. They are normalized and validated on construction and
// compared structurally through Key; two items with the same Key are the same
// schedule.
package schedule

import (
	"fmt"
	"time"
)

// ScheduleItem is one recurring or one-off rule with an optional time window.
// ChurchID is the roster index of the attributed church; nil means the item is
// unattributed. IsOtherChurch marks items explicitly about a church outside
// the roster.
type ScheduleItem struct {
	ChurchID       *int
	IsOtherChurch  bool
	DateRule       DateRule
	IsCancellation bool
	Start          *TimeOfDay
	End            *TimeOfDay
}

// New normalizes and validates item.
func New(item ScheduleItem) (ScheduleItem, error) {
	n := item.normalize()
	if err := n.Validate(); err != nil {
		return ScheduleItem{}, err
	}
	return n, nil
}

// MustNew is New for statically known items. It panics on invalid input.
func MustNew(item ScheduleItem) ScheduleItem {
	n, err := New(item)
	if err != nil {
		panic(err)
	}
	return n
}

// Validate reports consistency errors in the item and its rules.
func (i ScheduleItem) Validate() error {
	if i.DateRule == nil {
		return fmt.Errorf("%w: missing date rule", ErrInvalidRule)
	}
	if err := i.DateRule.validate(); err != nil {
		return err
	}
	if i.ChurchID != nil && *i.ChurchID < 0 {
		return fmt.Errorf("%w: church index %d", ErrInvalidRule, *i.ChurchID)
	}
	if i.ChurchID != nil && i.IsOtherChurch {
		return fmt.Errorf("%w: item both attributed and other church", ErrInvalidRule)
	}
	if i.Start != nil && !i.Start.Valid() {
		return fmt.Errorf("%w: start time %v", ErrInvalidRule, *i.Start)
	}
	if i.End != nil {
		if i.Start == nil {
			return fmt.Errorf("%w: end time without start time", ErrInvalidRule)
		}
		if !i.End.Valid() {
			return fmt.Errorf("%w: end time %v", ErrInvalidRule, *i.End)
		}
		if i.End.Minutes() <= i.Start.Minutes() {
			return fmt.Errorf("%w: end %s not after start %s", ErrInvalidRule, i.End, i.Start)
		}
	}
	return nil
}

func (i ScheduleItem) normalize() ScheduleItem {
	out := ScheduleItem{
		IsOtherChurch:  i.IsOtherChurch,
		IsCancellation: i.IsCancellation,
	}
	if i.ChurchID != nil {
		id := *i.ChurchID
		out.ChurchID = &id
	}
	if i.Start != nil {
		s := *i.Start
		out.Start = &s
	}
	if i.End != nil {
		e := *i.End
		out.End = &e
	}
	if i.DateRule != nil {
		out.DateRule = i.DateRule.normalize()
	}
	return out
}

// Key is the canonical encoding of the item; equal items have equal keys.
func (i ScheduleItem) Key() string {
	data, err := i.normalize().MarshalJSON()
	if err != nil {
		return fmt.Sprintf("invalid:%v", err)
	}
	return string(data)
}

// Equal reports structural equality.
func (i ScheduleItem) Equal(o ScheduleItem) bool {
	return i.Key() == o.Key()
}

// IsOneOff reports whether the item has a OneOffRule.
func (i ScheduleItem) IsOneOff() bool {
	_, ok := i.DateRule.(OneOffRule)
	return ok
}

// Regular returns the RegularRule of the item, if any.
func (i ScheduleItem) Regular() (RegularRule, bool) {
	r, ok := i.DateRule.(RegularRule)
	return r, ok
}

// Duration is the explicit time window length, zero when no end time is known.
func (i ScheduleItem) Duration() time.Duration {
	if i.Start == nil || i.End == nil {
		return 0
	}
	return time.Duration(i.End.Minutes()-i.Start.Minutes()) * time.Minute
}

// WithChurch returns a copy attributed to the roster index id (nil for unattributed).
func (i ScheduleItem) WithChurch(id *int) ScheduleItem {
	out := i.normalize()
	out.ChurchID = nil
	if id != nil {
		v := *id
		out.ChurchID = &v
		out.IsOtherChurch = false
	}
	return out
}

// WithRule returns a copy using rule.
func (i ScheduleItem) WithRule(rule DateRule) ScheduleItem {
	out := i.normalize()
	out.DateRule = rule.normalize()
	return out
}

// Church returns a pointer to the roster index idx, for building items.
func Church(idx int) *int {
	return &idx
}
