package pruning

import (
	"context"
	"regexp"
	"strings"
)

// LineClassifier is an optional learned selector. It returns the indices of
// the lines it judges relevant.
type LineClassifier interface {
	Classify(ctx context.Context, lines []string) ([]int, error)
}

const (
	forwardWindow  = 4
	backwardWindow = 2
)

var keywords = []string{
	"confession",
	"confesser",
	"reconciliation",
	"pardon",
	"penitence",
	"penitentiel",
	"permanence",
	"sacrement du frere",
}

var (
	timePattern = regexp.MustCompile(`\b\d{1,2}\s?[h:]\s?\d{0,2}\b`)
	dayWords    = []string{
		"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche",
		"janvier", "fevrier", "mars", "avril", "mai", "juin", "juillet",
		"aout", "septembre", "octobre", "novembre", "decembre",
		"chaque", "tous les", "semaine", "careme", "avent", "paques", "noel",
	}
)

// SelectLines is the keyword heuristic. A line naming the sacrament is kept,
// then the selection extends forward over following lines that carry a time
// or a date word, and back over up to two preceding lines of the same kind.
func SelectLines(lines []string) []int {
	folded := make([]string, len(lines))
	for i, l := range lines {
		folded[i] = Fold(l)
	}

	keep := make([]bool, len(lines))
	for i, l := range folded {
		if !hasKeyword(l) {
			continue
		}
		keep[i] = true

		for j := i + 1; j < len(lines) && j <= i+forwardWindow; j++ {
			if !isScheduleLine(folded[j]) {
				break
			}
			keep[j] = true
		}
		for j := i - 1; j >= 0 && j >= i-backwardWindow; j-- {
			if !isScheduleLine(folded[j]) {
				break
			}
			keep[j] = true
		}
	}

	indices := []int{}
	for i, k := range keep {
		if k {
			indices = append(indices, i)
		}
	}
	return indices
}

func hasKeyword(folded string) bool {
	for _, k := range keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

func isScheduleLine(folded string) bool {
	if timePattern.MatchString(folded) {
		return true
	}
	for _, w := range dayWords {
		if strings.Contains(folded, w) {
			return true
		}
	}
	return false
}
