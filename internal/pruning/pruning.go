// Package pruning reduces extracted source text to the lines that talk about
// confessions. Prunings are content-addressed: one row per distinct text,
// shared by every scheduling run that meets the same text.
package pruning

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Pruning is the line selection made over one extracted text. The effective
// selection is the human one, else the ML one, else the heuristic one.
type Pruning struct {
	ID           uuid.UUID `json:"id"`
	ContentHash  string    `json:"content_hash"`
	Lines        []string  `json:"lines"`
	MLIndices    []int     `json:"ml_indices"`
	V2Indices    []int     `json:"v2_indices"`
	HumanIndices []int     `json:"human_indices"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Indices returns the effective line selection.
func (p Pruning) Indices() []int {
	switch {
	case p.HumanIndices != nil:
		return p.HumanIndices
	case p.MLIndices != nil:
		return p.MLIndices
	default:
		return p.V2Indices
	}
}

// PrunedText joins the selected lines in source order.
func (p Pruning) PrunedText() string {
	idx := slices.Clone(p.Indices())
	slices.Sort(idx)
	idx = slices.Compact(idx)

	selected := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(p.Lines) {
			selected = append(selected, p.Lines[i])
		}
	}
	return strings.Join(selected, "\n")
}

// Empty reports whether the effective selection keeps no line.
func (p Pruning) Empty() bool {
	return strings.TrimSpace(p.PrunedText()) == ""
}

// ContentHash is the sha256 of the lines joined by newlines.
func ContentHash(lines []string) string {
	return HashText(strings.Join(lines, "\n"))
}

// HashText is the hex sha256 of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SetHumanCommand replaces the human selection. A nil Indices clears it.
type SetHumanCommand struct {
	Indices []int `json:"indices"`
}
