package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/calendar"
	"github.com/JaimeStill/horarium/internal/index"
	"github.com/JaimeStill/horarium/internal/matching"
	"github.com/JaimeStill/horarium/internal/parsing"
	"github.com/JaimeStill/horarium/internal/recurrence"
	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/internal/snapshot"
)

// index merges every sourced schedule of the run, materializes it and
// publishes the events unless the published run already has the same hash.
func (tc *taskContext) index(ctx context.Context) error {
	contents, err := tc.Store.Contents(ctx, tc.run.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexFailed, err)
	}

	refs, err := tc.Store.ParsingRefs(ctx, tc.run.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexFailed, err)
	}

	ids := make([]uuid.UUID, len(refs))
	for i, r := range refs {
		ids[i] = r.ParsingID
	}
	parsings, err := tc.Parsings.FindMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndexFailed, err)
	}

	var matrix *matching.Matrix
	if tc.run.MatchingID != nil {
		m, err := tc.Matchings.Find(ctx, *tc.run.MatchingID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIndexFailed, err)
		}
		matrix = &m.Matrix
	}

	src := collectSources(parsings, contents, matrix, tc.run.ChurchMap)
	merged := recurrence.Merge(src.items)

	res := tc.Materializer.Materialize(tc.run.WebsiteID, merged, src.churches, src.unattributedModerated, tc.today())
	if res.Err != nil {
		tc.logger.WarnContext(ctx, "some schedules could not be expanded", "error", res.Err)
	}
	if cov, err := calendar.HolidayCoverage(); err == nil && res.Window.End.After(cov.End) {
		tc.logger.WarnContext(ctx, "school holiday table ends inside the index window",
			"covered_until", cov.End.Format(time.DateOnly),
			"window_end", res.Window.End.Format(time.DateOnly),
		)
	}

	category := index.Categorize(src.hasSource, res.Events, res.Conflicts)

	outcome, err := tc.Store.Publish(ctx, tc.run.ID, Publication{
		Merged:      merged,
		Hash:        res.Hash,
		WindowStart: res.Window.Start,
		Events:      res.Events,
		Category:    category,
	})
	if err != nil {
		return err
	}

	if n, err := tc.Parsings.CleanupModerations(ctx); err != nil {
		tc.logger.WarnContext(ctx, "parsing moderation cleanup failed", "error", err)
	} else if n > 0 {
		tc.logger.InfoContext(ctx, "parsing moderations cleaned up", "count", n)
	}

	tc.logger.InfoContext(ctx, "index stage complete",
		"outcome", outcome,
		"items", len(merged),
		"events", len(res.Events),
		"conflicts", len(res.Conflicts),
		"category", category,
	)
	return nil
}

// sources is what the index stage feeds the materializer. Items refer to
// churches by roster index.
type sources struct {
	items                 []schedule.ScheduleItem
	churches              map[int]index.Church
	unattributedModerated bool
	hasSource             bool
}

// collectSources gathers the effective output of every parsing and the
// external times attributed through the matrix. A church counts as
// moderated when every parsing contributing to it was validated or
// corrected by a human; external times are never moderated.
func collectSources(parsings []parsing.Parsing, contents *snapshot.Contents, matrix *matching.Matrix, churchMap map[int]uuid.UUID) sources {
	s := sources{
		churches:  make(map[int]index.Church, len(churchMap)),
		hasSource: len(parsings) > 0 || len(contents.ExternalTimes) > 0,
	}

	moderated := make(map[int]bool)
	unattributed := true
	mark := func(church *int, ok bool) {
		if church == nil {
			unattributed = unattributed && ok
			return
		}
		prev, seen := moderated[*church]
		moderated[*church] = ok && (!seen || prev)
	}

	for _, p := range parsings {
		out := p.Effective()
		if out == nil {
			continue
		}
		ok := p.HumanOutput != nil || p.ValidatedAt != nil
		for _, item := range out.Schedules {
			s.items = append(s.items, item)
			mark(item.ChurchID, ok)
		}
	}

	byChurch := make(map[uuid.UUID]int, len(churchMap))
	for i, id := range churchMap {
		byChurch[id] = i
	}

	for _, et := range contents.ExternalTimes {
		var church *int
		if matrix != nil {
			if id, ok := matrix.ChurchFor(et.LocationID); ok {
				if i, ok := byChurch[id]; ok {
					church = &i
				}
			}
		}
		for _, item := range et.Schedules {
			item.ChurchID = church
			if church != nil {
				item.IsOtherChurch = false
			}
			s.items = append(s.items, item)
			mark(church, false)
		}
	}

	colors := make(map[uuid.UUID]*string, len(contents.Churches))
	for _, c := range contents.Churches {
		colors[c.ID] = c.Color
	}

	for i, id := range churchMap {
		s.churches[i] = index.Church{
			ID:        id,
			Color:     colors[id],
			Moderated: moderated[i],
		}
	}
	s.unattributedModerated = unattributed
	return s
}
