package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaimeStill/horarium/internal/pruning"
	"github.com/JaimeStill/horarium/internal/snapshot"
)

// prune extracts the lines of every pinned scraping and image and links
// each to its content-addressed pruning. A source without extractable text
// yields no pruning.
func (tc *taskContext) prune(ctx context.Context) error {
	contents, err := tc.Store.Contents(ctx, tc.run.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPruneFailed, err)
	}

	sources := pruneSources(contents)
	refs := make([]PruningRef, 0, len(sources))

	for _, src := range sources {
		lines, err := tc.Extractor.Extract(ctx, src)
		if err != nil {
			if errors.Is(err, pruning.ErrNoContent) {
				tc.logger.DebugContext(ctx, "source skipped", "kind", src.Kind, "version_id", src.VersionID)
			} else {
				tc.logger.WarnContext(ctx, "source extraction failed",
					"kind", src.Kind,
					"version_id", src.VersionID,
					"error", err,
				)
			}
			continue
		}

		p, err := tc.Prunings.Ensure(ctx, lines)
		if err != nil {
			return fmt.Errorf("%w: %s %d: %w", ErrPruneFailed, src.Kind, src.VersionID, err)
		}

		refs = append(refs, PruningRef{
			SourceKind:      src.Kind,
			SourceVersionID: src.VersionID,
			PruningID:       p.ID,
		})
	}

	if err := tc.Store.CommitPrune(ctx, tc.run.ID, refs); err != nil {
		return err
	}

	tc.logger.InfoContext(ctx, "prune stage complete",
		"sources", len(sources),
		"prunings", len(refs),
	)
	return nil
}

func pruneSources(c *snapshot.Contents) []pruning.Source {
	sources := make([]pruning.Source, 0, len(c.Scrapings)+len(c.Images))
	for _, s := range c.Scrapings {
		sources = append(sources, pruning.Source{
			Kind:      pruning.SourceScraping,
			VersionID: s.VersionID,
			URL:       s.URL,
			Content:   s.ExtractedHTML,
		})
	}
	for _, img := range c.Images {
		sources = append(sources, pruning.Source{
			Kind:      pruning.SourceImage,
			VersionID: img.VersionID,
			URL:       img.Name,
			Content:   img.ExtractedText,
		})
	}
	return sources
}
