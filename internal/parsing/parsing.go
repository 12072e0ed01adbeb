// Package parsing turns pruned text into structured schedules. Parsings are
// cached by (pruned text hash, roster hash): a text already parsed against
// the same church roster is never sent to the oracle again.
package parsing

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/schedule"
)

// Parsing is the cached oracle output for one pruned text and roster.
type Parsing struct {
	ID              uuid.UUID               `json:"id"`
	PrunedHash      string                  `json:"pruned_hash"`
	RosterHash      string                  `json:"roster_hash"`
	PrunedText      string                  `json:"pruned_text"`
	Roster          string                  `json:"roster"`
	LLMOutput       *schedule.SchedulesList `json:"llm_output"`
	LLMError        *string                 `json:"llm_error"`
	Provider        string                  `json:"provider"`
	Model           string                  `json:"model"`
	ValidatedOutput *schedule.SchedulesList `json:"validated_output"`
	HumanOutput     *schedule.SchedulesList `json:"human_output"`
	ValidatedAt     *time.Time              `json:"validated_at"`
	Moderations     []Category              `json:"moderations"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// Effective returns the human output when set, else the oracle output. It
// returns nil when the oracle failed and nobody corrected it.
func (p Parsing) Effective() *schedule.SchedulesList {
	if p.HumanOutput != nil {
		return p.HumanOutput
	}
	return p.LLMOutput
}

// Category is a parsing moderation category.
type Category string

const (
	// CategoryLLMChanged flags an oracle output that differs from the
	// validated output of the same text under an earlier roster.
	CategoryLLMChanged Category = "llm_changed"
	// CategoryLLMError flags a failed oracle call.
	CategoryLLMError Category = "llm_error"
)

// SetHumanCommand replaces the human output. A nil Output clears it.
type SetHumanCommand struct {
	Output *schedule.SchedulesList `json:"output"`
}
