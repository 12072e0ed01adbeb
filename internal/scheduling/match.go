package scheduling

import (
	"context"
	"fmt"
)

// match attributes external locations to pinned churches. A run without
// external locations passes through; a matcher failure leaves external
// times unattributed.
func (tc *taskContext) match(ctx context.Context) error {
	contents, err := tc.Store.Contents(ctx, tc.run.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMatchFailed, err)
	}

	if len(contents.ExternalLocations) == 0 {
		tc.logger.DebugContext(ctx, "no external location")
		return tc.Store.CommitMatch(ctx, tc.run.ID, nil)
	}

	matrix, err := tc.Matcher.Match(ctx, contents.Churches, contents.ExternalLocations)
	if err != nil {
		tc.logger.WarnContext(ctx, "location matching failed", "error", err)
		return tc.Store.CommitMatch(ctx, tc.run.ID, nil)
	}

	m, err := tc.Matchings.Ensure(ctx, matrix)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMatchFailed, err)
	}

	if err := tc.Store.CommitMatch(ctx, tc.run.ID, &m.ID); err != nil {
		return err
	}

	tc.logger.InfoContext(ctx, "match stage complete",
		"locations", len(contents.ExternalLocations),
		"matching_id", m.ID,
	)
	return nil
}
