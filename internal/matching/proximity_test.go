package matching_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/matching"
	"github.com/JaimeStill/horarium/internal/snapshot"
)

func f(v float64) *float64 { return &v }

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Église St-Pierre", "saint pierre"},
		{"saint pierre", "saint pierre"},
		{"Chapelle Notre-Dame de la Paix", "notre dame paix"},
		{"Ste Thérèse", "sainte therese"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := matching.NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProximityMatcher(t *testing.T) {
	pierre := snapshot.Church{ID: uuid.New(), Name: "Saint-Pierre", Latitude: f(48.8566), Longitude: f(2.3522)}
	paul := snapshot.Church{ID: uuid.New(), Name: "Saint-Paul", Latitude: f(48.8600), Longitude: f(2.3600)}
	noCoords := snapshot.Church{ID: uuid.New(), Name: "Sainte-Anne"}
	churches := []snapshot.Church{pierre, paul, noCoords}

	tests := []struct {
		name string
		loc  snapshot.ExternalLocation
		want *uuid.UUID
	}{
		{
			name: "nearest within radius",
			loc:  snapshot.ExternalLocation{ID: uuid.New(), Name: "Chapelle", Latitude: f(48.8567), Longitude: f(2.3523)},
			want: &pierre.ID,
		},
		{
			name: "same name within wider radius",
			loc:  snapshot.ExternalLocation{ID: uuid.New(), Name: "église st Paul", Latitude: f(48.8640), Longitude: f(2.3600)},
			want: &paul.ID,
		},
		{
			name: "too far",
			loc:  snapshot.ExternalLocation{ID: uuid.New(), Name: "Autre", Latitude: f(45.0), Longitude: f(3.0)},
			want: nil,
		},
		{
			name: "name only without coordinates",
			loc:  snapshot.ExternalLocation{ID: uuid.New(), Name: "Ste Anne"},
			want: &noCoords.ID,
		},
	}

	m := matching.NewProximityMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matrix, err := m.Match(context.Background(), churches, []snapshot.ExternalLocation{tt.loc})
			if err != nil {
				t.Fatalf("Match() error = %v", err)
			}
			got, ok := matrix.ChurchFor(tt.loc.ID)
			switch {
			case tt.want == nil && ok:
				t.Errorf("ChurchFor() = %v, want no match", got)
			case tt.want != nil && (!ok || got != *tt.want):
				t.Errorf("ChurchFor() = %v, %v, want %v", got, ok, *tt.want)
			}
		})
	}
}

func TestMatrixHash(t *testing.T) {
	id := uuid.New()
	a := matching.Matrix{Pairs: []matching.Pair{{LocationID: id}}}
	b := matching.Matrix{Pairs: []matching.Pair{{LocationID: id}}}
	c := matching.Matrix{Pairs: []matching.Pair{{LocationID: id, ChurchID: &id}}}

	if a.Hash() != b.Hash() {
		t.Error("Hash() differs for equal matrices")
	}
	if a.Hash() == c.Hash() {
		t.Error("Hash() ignores attribution")
	}
}
