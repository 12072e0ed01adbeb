package scheduling

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/pkg/query"
	"github.com/JaimeStill/horarium/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "schedulings", "s").
	Project("id", "ID").
	Project("website_id", "WebsiteID").
	Project("status", "Status").
	Project("merged_schedules", "MergedSchedules").
	Project("indexed_hash", "IndexedHash").
	Project("church_map", "ChurchMap").
	Project("matching_id", "MatchingID").
	Project("window_start", "WindowStart").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for scheduling queries.
type Filters struct {
	WebsiteID *uuid.UUID `json:"website_id,omitempty"`
	Status    *Status    `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("WebsiteID", f.WebsiteID).
		WhereEquals("Status", f.Status)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if w := values.Get("website_id"); w != "" {
		if id, err := uuid.Parse(w); err == nil {
			f.WebsiteID = &id
		}
	}

	if s := values.Get("status"); s != "" {
		if st, err := ParseStatus(s); err == nil {
			f.Status = &st
		}
	}

	return f
}

func scanScheduling(s repository.Scanner) (Scheduling, error) {
	var (
		sc                Scheduling
		merged, churchMap []byte
		matching          uuid.NullUUID
	)
	err := s.Scan(
		&sc.ID,
		&sc.WebsiteID,
		&sc.Status,
		&merged,
		&sc.IndexedHash,
		&churchMap,
		&matching,
		&sc.WindowStart,
		&sc.CreatedAt,
		&sc.UpdatedAt,
	)
	if err != nil {
		return sc, err
	}

	if matching.Valid {
		sc.MatchingID = &matching.UUID
	}
	if merged != nil {
		if err := json.Unmarshal(merged, &sc.MergedSchedules); err != nil {
			return sc, fmt.Errorf("decode merged schedules: %w", err)
		}
	}
	if sc.ChurchMap, err = decodeChurchMap(churchMap); err != nil {
		return sc, err
	}
	return sc, nil
}

func encodeChurchMap(m map[int]uuid.UUID) (string, error) {
	b, err := json.Marshal(m)
	return string(b), err
}

func decodeChurchMap(data []byte) (map[int]uuid.UUID, error) {
	if data == nil {
		return nil, nil
	}
	var m map[int]uuid.UUID
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode church map: %w", err)
	}
	return m, nil
}

func encodeItems(items []schedule.ScheduleItem) (string, error) {
	if items == nil {
		items = []schedule.ScheduleItem{}
	}
	b, err := json.Marshal(items)
	return string(b), err
}

func scanPruningRef(s repository.Scanner) (PruningRef, error) {
	var r PruningRef
	err := s.Scan(&r.SourceKind, &r.SourceVersionID, &r.PruningID)
	return r, err
}

func scanParsingRef(s repository.Scanner) (ParsingRef, error) {
	var r ParsingRef
	err := s.Scan(&r.PruningID, &r.ParsingID)
	return r, err
}

func scanStatus(s repository.Scanner) (Status, error) {
	var st Status
	err := s.Scan(&st)
	return st, err
}

func scanUUID(s repository.Scanner) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.Scan(&id)
	return id, err
}

func scanIndexed(s repository.Scanner) (indexedRun, error) {
	var r indexedRun
	err := s.Scan(&r.id, &r.hash)
	return r, err
}

type indexedRun struct {
	id   uuid.UUID
	hash *string
}
