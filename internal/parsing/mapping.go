package parsing

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/pkg/query"
	"github.com/JaimeStill/horarium/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "parsings", "p").
	Join("LEFT JOIN public.parsing_moderations m ON m.parsing_id = p.id").
	Project("id", "ID").
	Project("pruned_hash", "PrunedHash").
	Project("roster_hash", "RosterHash").
	Project("pruned_text", "PrunedText").
	Project("roster", "Roster").
	Project("llm_output", "LLMOutput").
	Project("llm_error", "LLMError").
	Project("provider", "Provider").
	Project("model", "Model").
	Project("validated_output", "ValidatedOutput").
	Project("human_output", "HumanOutput").
	Project("validated_at", "ValidatedAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for parsing queries.
// Moderation keeps parsings with an open moderation of that category.
type Filters struct {
	Moderation *Category `json:"moderation,omitempty"`
	Provider   *string   `json:"provider,omitempty"`
	Model      *string   `json:"model,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("m.category", f.Moderation).
		WhereEquals("Provider", f.Provider).
		WhereEquals("Model", f.Model)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if m := values.Get("moderation"); m != "" {
		c := Category(m)
		f.Moderation = &c
	}
	if p := values.Get("provider"); p != "" {
		f.Provider = &p
	}
	if m := values.Get("model"); m != "" {
		f.Model = &m
	}

	return f
}

func scanParsing(s repository.Scanner) (Parsing, error) {
	var (
		p                     Parsing
		llm, validated, human []byte
	)
	err := s.Scan(
		&p.ID,
		&p.PrunedHash,
		&p.RosterHash,
		&p.PrunedText,
		&p.Roster,
		&llm,
		&p.LLMError,
		&p.Provider,
		&p.Model,
		&validated,
		&human,
		&p.ValidatedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}

	if p.LLMOutput, err = decodeList(llm); err != nil {
		return p, fmt.Errorf("decode llm output: %w", err)
	}
	if p.ValidatedOutput, err = decodeList(validated); err != nil {
		return p, fmt.Errorf("decode validated output: %w", err)
	}
	if p.HumanOutput, err = decodeList(human); err != nil {
		return p, fmt.Errorf("decode human output: %w", err)
	}
	return p, nil
}

func scanCategory(s repository.Scanner) (Category, error) {
	var c Category
	err := s.Scan(&c)
	return c, err
}

func decodeList(raw []byte) (*schedule.SchedulesList, error) {
	if raw == nil {
		return nil, nil
	}
	var l schedule.SchedulesList
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// encodeList renders nil as SQL NULL.
func encodeList(l *schedule.SchedulesList) (any, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
