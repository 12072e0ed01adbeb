// Package prompts stores the instruction overrides of the parse oracle.
//
// The oracle prompt is made of tunable instructions followed by a fixed
// response format. At most one override is active at a time; without one the
// built-in instructions apply. Overrides are immutable: editing the
// instructions means creating a new override and activating it, so earlier
// wordings stay available for comparison.
package prompts

import (
	"time"

	"github.com/google/uuid"
)

// Override is a stored wording of the oracle instructions.
type Override struct {
	ID           uuid.UUID `json:"id"`
	Instructions string    `json:"instructions"`
	Note         *string   `json:"note"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateCommand carries a new wording. Activate makes it the active override
// in the same transaction.
type CreateCommand struct {
	Instructions string  `json:"instructions"`
	Note         *string `json:"note"`
	Activate     bool    `json:"activate"`
}

// Effective is the prompt the oracle currently sends, without the roster and
// text parts. OverrideID is nil when the built-in instructions apply.
type Effective struct {
	OverrideID     *uuid.UUID `json:"override_id"`
	Instructions   string     `json:"instructions"`
	ResponseFormat string     `json:"response_format"`
}
