package matching

import (
	"context"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/JaimeStill/horarium/internal/snapshot"
)

const earthRadius = 6371000.0

// ProximityMatcher matches a location to the nearest church within
// MaxDistance meters, or to a church with the same normalized name within
// NameDistance meters. Ties on distance go to the earlier church.
type ProximityMatcher struct {
	MaxDistance  float64
	NameDistance float64
}

func NewProximityMatcher() *ProximityMatcher {
	return &ProximityMatcher{MaxDistance: 100, NameDistance: 1000}
}

func (m *ProximityMatcher) Match(ctx context.Context, churches []snapshot.Church, locations []snapshot.ExternalLocation) (Matrix, error) {
	matrix := Matrix{Pairs: make([]Pair, 0, len(locations))}

	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			return Matrix{}, err
		}
		matrix.Pairs = append(matrix.Pairs, m.best(churches, loc))
	}
	return matrix, nil
}

func (m *ProximityMatcher) best(churches []snapshot.Church, loc snapshot.ExternalLocation) Pair {
	pair := Pair{LocationID: loc.ID}
	locName := NormalizeName(loc.Name)

	bestDist := math.Inf(1)
	for i := range churches {
		c := &churches[i]
		sameName := locName != "" && NormalizeName(c.Name) == locName

		d, ok := distance(c.Latitude, c.Longitude, loc.Latitude, loc.Longitude)
		if !ok {
			// Without coordinates only an exact name match attributes.
			if sameName && pair.ChurchID == nil {
				pair.ChurchID = &c.ID
				pair.SameName = true
			}
			continue
		}

		limit := m.MaxDistance
		if sameName {
			limit = m.NameDistance
		}
		if d > limit || d >= bestDist {
			continue
		}

		bestDist = d
		dist := math.Round(d)
		pair.ChurchID = &c.ID
		pair.Distance = &dist
		pair.SameName = sameName
	}

	return pair
}

// distance is the haversine distance in meters.
func distance(lat1, lon1, lat2, lon2 *float64) (float64, bool) {
	if lat1 == nil || lon1 == nil || lat2 == nil || lon2 == nil {
		return 0, false
	}

	phi1 := *lat1 * math.Pi / 180
	phi2 := *lat2 * math.Pi / 180
	dPhi := (*lat2 - *lat1) * math.Pi / 180
	dLambda := (*lon2 - *lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadius * math.Asin(math.Min(1, math.Sqrt(a))), true
}

var nameStopWords = map[string]bool{
	"eglise": true, "church": true, "chapelle": true, "paroisse": true,
	"de": true, "du": true, "des": true, "la": true, "le": true, "les": true, "l": true, "d": true,
}

// NormalizeName folds accents and case, maps "st"/"ste" to "saint"/"sainte"
// and drops generic words, so "Église St-Pierre" and "saint pierre" compare
// equal.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ToLower(folded)

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	kept := words[:0]
	for _, w := range words {
		switch w {
		case "st":
			w = "saint"
		case "ste":
			w = "sainte"
		}
		if !nameStopWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
