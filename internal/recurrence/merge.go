package recurrence

import (
	"slices"
	"time"

	"github.com/JaimeStill/horarium/internal/schedule"
)

// Merge reduces a set of schedule items to an equivalent smaller set:
//
//   - weekly items of the same church that differ only by weekday collapse
//     into one item carrying the union of weekdays;
//   - unattributed items whose explanation equals an attributed item's
//     explanation are dropped;
//   - a qualified regular item is dropped when exactly one other item of
//     the same church shares its base explanation and carries no qualifier.
//
// The result is deduplicated and sorted; Merge(Merge(x)) equals Merge(x).
func Merge(items []schedule.ScheduleItem) []schedule.ScheduleItem {
	items = schedule.Deduplicate(items)
	items = mergeWeekdays(items)
	items = dropUnattributedDuplicates(items)
	items = dropShadowedQualified(items)
	return schedule.Deduplicate(items)
}

func mergeWeekdays(items []schedule.ScheduleItem) []schedule.ScheduleItem {
	groups := make(map[string][]time.Weekday)
	first := make(map[string]schedule.ScheduleItem)
	var order []string
	out := make([]schedule.ScheduleItem, 0, len(items))

	for _, it := range items {
		r, ok := it.Regular()
		if !ok {
			out = append(out, it)
			continue
		}
		w, ok := r.Recurrence.(schedule.Weekly)
		if !ok {
			out = append(out, it)
			continue
		}

		r.Recurrence = schedule.Weekly{}
		shape := it.WithRule(r).Key()
		if _, seen := first[shape]; !seen {
			first[shape] = it
			order = append(order, shape)
		}
		groups[shape] = append(groups[shape], w.Weekdays...)
	}

	for _, shape := range order {
		it := first[shape]
		r, _ := it.Regular()
		r.Recurrence = schedule.Weekly{Weekdays: groups[shape]}
		out = append(out, schedule.MustNew(it.WithRule(r)))
	}
	return out
}

func dropUnattributedDuplicates(items []schedule.ScheduleItem) []schedule.ScheduleItem {
	attributed := make(map[string]bool)
	for _, it := range items {
		if it.ChurchID != nil {
			attributed[schedule.Explain(it)] = true
		}
	}

	return slices.DeleteFunc(slices.Clone(items), func(it schedule.ScheduleItem) bool {
		return it.ChurchID == nil && !it.IsOtherChurch && attributed[schedule.Explain(it)]
	})
}

func dropShadowedQualified(items []schedule.ScheduleItem) []schedule.ScheduleItem {
	type groupKey struct {
		church string
		base   string
	}
	groups := make(map[groupKey][]int)
	for i, it := range items {
		k := groupKey{churchKey(it.ChurchID, it.IsOtherChurch), schedule.BaseExplanation(it)}
		groups[k] = append(groups[k], i)
	}

	drop := make(map[int]bool)
	for _, idx := range groups {
		if len(idx) != 2 {
			continue
		}
		a, b := items[idx[0]], items[idx[1]]
		switch {
		case qualified(a) && unqualified(b):
			drop[idx[0]] = true
		case qualified(b) && unqualified(a):
			drop[idx[1]] = true
		}
	}

	out := make([]schedule.ScheduleItem, 0, len(items))
	for i, it := range items {
		if !drop[i] {
			out = append(out, it)
		}
	}
	return out
}

func qualified(it schedule.ScheduleItem) bool {
	r, ok := it.Regular()
	return ok && r.HasQualifiers()
}

func unqualified(it schedule.ScheduleItem) bool {
	r, ok := it.Regular()
	return !ok || !r.HasQualifiers()
}
