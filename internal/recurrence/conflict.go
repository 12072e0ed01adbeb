package recurrence

import (
	"slices"
	"time"
)

// Conflict is a pair of occurrences of the same church whose time windows
// overlap on the same day.
type Conflict struct {
	First  Occurrence
	Second Occurrence
}

// Conflicts finds overlapping occurrences. Only occurrences attributed to a
// roster church and carrying an explicit end time take part.
func Conflicts(occs []Occurrence) []Conflict {
	type dayKey struct {
		church int
		day    time.Time
	}
	groups := make(map[dayKey][]Occurrence)
	var keys []dayKey

	for _, o := range occs {
		if o.ChurchID == nil || o.End == nil {
			continue
		}
		k := dayKey{*o.ChurchID, o.Day()}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], o)
	}

	slices.SortFunc(keys, func(a, b dayKey) int {
		if c := a.day.Compare(b.day); c != 0 {
			return c
		}
		return a.church - b.church
	})

	var out []Conflict
	for _, k := range keys {
		group := groups[k]
		Sort(group)
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.Start.Before(*b.End) && b.Start.Before(*a.End) {
					out = append(out, Conflict{First: a, Second: b})
				}
			}
		}
	}
	return out
}
