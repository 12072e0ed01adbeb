package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/horarium/internal/parsing"
)

// parse asks for the schedules of every distinct pruning of the run,
// against the roster of pinned churches. Cached parsings are reused; the
// others go to the oracle with bounded concurrency. A pruning the oracle
// refuses to take, with its breaker open, stays unlinked for this run and is
// asked again by the next one.
func (tc *taskContext) parse(ctx context.Context) error {
	contents, err := tc.Store.Contents(ctx, tc.run.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	roster := parsing.NewRoster(contents.Churches)

	pruningRefs, err := tc.Store.PruningRefs(ctx, tc.run.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	prunings, err := tc.Prunings.FindMany(ctx, distinctPrunings(pruningRefs))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	refs := make([]*ParsingRef, len(prunings))

	var unavailable atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(tc.ParseConcurrency, 1))

	for i, p := range prunings {
		if p.Empty() {
			tc.logger.DebugContext(ctx, "empty pruning skipped", "pruning_id", p.ID)
			continue
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			ps, err := tc.Parsings.Ensure(gctx, p.PrunedText(), roster)
			if errors.Is(err, parsing.ErrOracleUnavailable) {
				unavailable.Add(1)
				tc.logger.WarnContext(gctx, "oracle unavailable, pruning left unparsed",
					"pruning_id", p.ID,
					"error", err,
				)
				return nil
			}
			if err != nil {
				return fmt.Errorf("pruning %s: %w", p.ID, err)
			}

			if ps.LLMError != nil && ps.HumanOutput == nil {
				tc.logger.WarnContext(gctx, "parsing has no output",
					"pruning_id", p.ID,
					"parsing_id", ps.ID,
					"error_detail", *ps.LLMError,
				)
			}

			refs[i] = &ParsingRef{PruningID: p.ID, ParsingID: ps.ID}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	linked := make([]ParsingRef, 0, len(refs))
	for _, r := range refs {
		if r != nil {
			linked = append(linked, *r)
		}
	}

	if err := tc.Store.CommitParse(ctx, tc.run.ID, roster.ChurchMap(), linked); err != nil {
		return err
	}

	tc.logger.InfoContext(ctx, "parse stage complete",
		"churches", roster.Len(),
		"prunings", len(prunings),
		"parsings", len(linked),
		"unparsed", unavailable.Load(),
	)
	return nil
}

func distinctPrunings(refs []PruningRef) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(refs))
	ids := make([]uuid.UUID, 0, len(refs))
	for _, r := range refs {
		if !seen[r.PruningID] {
			seen[r.PruningID] = true
			ids = append(ids, r.PruningID)
		}
	}
	return ids
}
