package parsing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/snapshot"
)

// Roster is the ordered list of churches the oracle may attribute schedules
// to. Schedule items refer to churches by roster index.
type Roster struct {
	churches []snapshot.Church
}

func NewRoster(churches []snapshot.Church) Roster {
	return Roster{churches: churches}
}

func (r Roster) Len() int { return len(r.churches) }

// Describe renders one church per line, prefixed by its index.
func (r Roster) Describe() string {
	if len(r.churches) == 0 {
		return "(no church)"
	}

	var sb strings.Builder
	for i, c := range r.churches {
		fmt.Fprintf(&sb, "%d: %s", i, c.Name)

		var place []string
		if c.Address != nil && *c.Address != "" {
			place = append(place, *c.Address)
		}
		city := strings.TrimSpace(deref(c.Zipcode) + " " + deref(c.City))
		if city != "" {
			place = append(place, city)
		}
		if len(place) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(place, ", "))
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Hash is the sha256 of Describe.
func (r Roster) Hash() string {
	sum := sha256.Sum256([]byte(r.Describe()))
	return hex.EncodeToString(sum[:])
}

// ChurchMap maps roster indices to church ids.
func (r Roster) ChurchMap() map[int]uuid.UUID {
	m := make(map[int]uuid.UUID, len(r.churches))
	for i, c := range r.churches {
		m[i] = c.ID
	}
	return m
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
