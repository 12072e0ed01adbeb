package prompts

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/horarium/pkg/query"
	"github.com/JaimeStill/horarium/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "prompts", "p").
	Project("id", "ID").
	Project("instructions", "Instructions").
	Project("note", "Note").
	Project("active", "Active").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{Field: "CreatedAt", Descending: true}

const returning = "RETURNING id, instructions, note, active, created_at"

// Filters narrows override listings. The page search matches instructions
// and notes.
type Filters struct {
	Active *bool `json:"active,omitempty"`
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereEquals("Active", f.Active)
}

func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if a := values.Get("active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}
	return f
}

func scanOverride(s repository.Scanner) (Override, error) {
	var o Override
	err := s.Scan(&o.ID, &o.Instructions, &o.Note, &o.Active, &o.CreatedAt)
	return o, err
}
