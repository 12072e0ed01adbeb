package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// SchedulesList is the structured schedule extracted from one source.
type SchedulesList struct {
	Schedules             []ScheduleItem `json:"schedules"`
	PossibleByAppointment bool           `json:"possible_by_appointment"`
	IsRelatedToMass       bool           `json:"is_related_to_mass"`
	IsRelatedToAdoration  bool           `json:"is_related_to_adoration"`
	IsRelatedToPermanence bool           `json:"is_related_to_permanence"`
	HasSeasonalEvents     bool           `json:"has_seasonal_events"`
}

// Empty reports whether the list carries no schedule item.
func (l SchedulesList) Empty() bool {
	return len(l.Schedules) == 0
}

// Equal compares two lists item by item and flag by flag.
func (l SchedulesList) Equal(o SchedulesList) bool {
	return l.Hash() == o.Hash()
}

// Hash is a sha256 over the canonical encoding of the list.
func (l SchedulesList) Hash() string {
	data, _ := json.Marshal(l)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Deduplicate drops structural duplicates and sorts items by key.
func Deduplicate(items []ScheduleItem) []ScheduleItem {
	seen := make(map[string]ScheduleItem, len(items))
	for _, it := range items {
		seen[it.Key()] = it
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]ScheduleItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out
}
