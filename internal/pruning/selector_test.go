package pruning_test

import (
	"reflect"
	"testing"

	"github.com/JaimeStill/horarium/internal/pruning"
)

func TestSelectLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []int
	}{
		{
			name:  "no keyword",
			lines: []string{"Messe dimanche 10h30", "Catéchisme"},
			want:  []int{},
		},
		{
			name: "keyword extends forward over schedule lines",
			lines: []string{
				"Bienvenue",
				"Confessions",
				"Samedi de 10h à 12h",
				"Mercredi 18h30",
				"Contact : secrétariat",
				"Jeudi 9h",
			},
			want: []int{1, 2, 3},
		},
		{
			name: "accents folded",
			lines: []string{
				"Sacrement de réconciliation",
				"Le vendredi",
			},
			want: []int{0, 1},
		},
		{
			name: "backward window",
			lines: []string{
				"Horaires",
				"Chaque samedi à 17h",
				"permanence de confession",
			},
			want: []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pruning.SelectLines(tt.lines); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectLines() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	if got := pruning.Fold("Pénitence ÉTÉ"); got != "penitence ete" {
		t.Errorf("Fold() = %q, want %q", got, "penitence ete")
	}
}
