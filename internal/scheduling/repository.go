package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/index"
	"github.com/JaimeStill/horarium/internal/snapshot"
	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/query"
	"github.com/JaimeStill/horarium/pkg/repository"
)

type repo struct {
	db         *sql.DB
	snapshots  *snapshot.Builder
	loader     *snapshot.Loader
	logger     *slog.Logger
	pagination pagination.Config
}

// NewStore creates the Postgres-backed run store.
func NewStore(db *sql.DB, logger *slog.Logger, pagination pagination.Config) Store {
	return &repo{
		db:         db,
		snapshots:  snapshot.NewBuilder(logger),
		loader:     snapshot.NewLoader(db, logger),
		logger:     logger.With("system", "scheduling"),
		pagination: pagination,
	}
}

func (r *repo) Init(ctx context.Context, websiteID uuid.UUID, opts InitOptions) (*Scheduling, error) {
	id, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (uuid.UUID, error) {
		if _, err := repository.QueryOne(
			ctx, tx,
			"SELECT id FROM websites WHERE id = $1 FOR UPDATE",
			[]any{websiteID}, scanUUID,
		); err != nil {
			return uuid.Nil, repository.MapError(err, ErrWebsiteNotFound, err)
		}

		snap, err := r.snapshots.Capture(ctx, tx, websiteID)
		if err != nil {
			return uuid.Nil, err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE schedulings SET status = 'cancelled', updated_at = now()
			WHERE website_id = $1 AND status IN ('built', 'pruned', 'parsed', 'matched')`,
			websiteID,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("cancel in-flight runs: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			r.logger.InfoContext(ctx, "in-flight runs cancelled", "website_id", websiteID, "count", n)
		}

		if opts.Deindex {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM schedulings WHERE website_id = $1 AND status = 'indexed'",
				websiteID,
			); err != nil {
				return uuid.Nil, fmt.Errorf("deindex website: %w", err)
			}
		}

		id, err := repository.QueryOne(
			ctx, tx,
			"INSERT INTO schedulings(website_id, status) VALUES ($1, 'built') RETURNING id",
			[]any{websiteID}, scanUUID,
		)
		if err != nil {
			return uuid.Nil, repository.MapError(err, ErrNotFound, ErrDuplicateRun)
		}

		if err := r.snapshots.Persist(ctx, tx, id, snap); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "scheduling created", "id", id, "website_id", websiteID, "deindex", opts.Deindex)
	return r.Find(ctx, id)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Scheduling, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	s, err := repository.QueryOne(ctx, r.db, q, args, scanScheduling)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrNotFound)
	}
	return &s, nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Scheduling], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count schedulings: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanScheduling)
	if err != nil {
		return nil, fmt.Errorf("query schedulings: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Contents(ctx context.Context, id uuid.UUID) (*snapshot.Contents, error) {
	return r.loader.Load(ctx, id)
}

func (r *repo) CommitPrune(ctx context.Context, id uuid.UUID, refs []PruningRef) error {
	return r.commit(ctx, id, StagePrune, func(tx *sql.Tx) error {
		for _, ref := range refs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO scheduling_prunings(scheduling_id, source_kind, source_version_id, pruning_id)
				VALUES ($1, $2, $3, $4)`,
				id, ref.SourceKind, ref.SourceVersionID, ref.PruningID,
			); err != nil {
				return fmt.Errorf("link pruning %s: %w", ref.PruningID, err)
			}
		}
		return nil
	}, "SET status = $2")
}

func (r *repo) PruningRefs(ctx context.Context, id uuid.UUID) ([]PruningRef, error) {
	return repository.QueryMany(ctx, r.db, `
		SELECT source_kind, source_version_id, pruning_id
		FROM scheduling_prunings
		WHERE scheduling_id = $1
		ORDER BY source_kind DESC, source_version_id`,
		[]any{id}, scanPruningRef,
	)
}

func (r *repo) CommitParse(ctx context.Context, id uuid.UUID, churchMap map[int]uuid.UUID, refs []ParsingRef) error {
	encoded, err := encodeChurchMap(churchMap)
	if err != nil {
		return fmt.Errorf("encode church map: %w", err)
	}

	return r.commit(ctx, id, StageParse, func(tx *sql.Tx) error {
		for _, ref := range refs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO scheduling_parsings(scheduling_id, pruning_id, parsing_id)
				VALUES ($1, $2, $3)
				ON CONFLICT (scheduling_id, pruning_id) DO NOTHING`,
				id, ref.PruningID, ref.ParsingID,
			); err != nil {
				return fmt.Errorf("link parsing %s: %w", ref.ParsingID, err)
			}
		}
		return nil
	}, "SET status = $2, church_map = $3", encoded)
}

func (r *repo) ParsingRefs(ctx context.Context, id uuid.UUID) ([]ParsingRef, error) {
	return repository.QueryMany(ctx, r.db, `
		SELECT pruning_id, parsing_id
		FROM scheduling_parsings
		WHERE scheduling_id = $1
		ORDER BY pruning_id`,
		[]any{id}, scanParsingRef,
	)
}

func (r *repo) CommitMatch(ctx context.Context, id uuid.UUID, matchingID *uuid.UUID) error {
	return r.commit(ctx, id, StageMatch, nil, "SET status = $2, matching_id = $3", matchingID)
}

func (r *repo) Publish(ctx context.Context, id uuid.UUID, pub Publication) (PublishOutcome, error) {
	merged, err := encodeItems(pub.Merged)
	if err != nil {
		return "", fmt.Errorf("encode merged schedules: %w", err)
	}

	outcome, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (PublishOutcome, error) {
		run, err := r.lock(ctx, tx, id)
		if err != nil {
			return "", err
		}
		if run.Status != StageIndex.From() {
			return "", fmt.Errorf("%w: status %s", ErrSuperseded, run.Status)
		}

		current, err := repository.QueryOne(ctx, tx, `
			SELECT id, indexed_hash FROM schedulings
			WHERE website_id = $1 AND status = 'indexed'
			FOR UPDATE`,
			[]any{run.WebsiteID}, scanIndexed,
		)
		hasCurrent := true
		if errors.Is(err, sql.ErrNoRows) {
			hasCurrent = false
		} else if err != nil {
			return "", fmt.Errorf("lock indexed run: %w", err)
		}

		if hasCurrent && current.hash != nil && *current.hash == pub.Hash {
			if err := r.setStatus(ctx, tx, id, StatusCancelled); err != nil {
				return "", err
			}
			return OutcomeDuplicate, nil
		}

		if hasCurrent {
			if _, err := tx.ExecContext(ctx, "DELETE FROM schedulings WHERE id = $1", current.id); err != nil {
				return "", fmt.Errorf("delete indexed run: %w", err)
			}
		}

		if err := repository.ExecExpectOne(ctx, tx, `
			UPDATE schedulings
			SET status = 'indexed', merged_schedules = $2, indexed_hash = $3,
				window_start = $4, updated_at = now()
			WHERE id = $1`,
			id, merged, pub.Hash, pub.WindowStart,
		); err != nil {
			return "", repository.MapError(err, ErrNotFound, ErrDuplicateRun)
		}

		if err := index.InsertEvents(ctx, tx, id, pub.Events); err != nil {
			return "", err
		}

		if err := moderateWebsite(ctx, tx, run.WebsiteID, pub.Category); err != nil {
			return "", err
		}
		return OutcomePublished, nil
	})
	if err != nil {
		return "", err
	}

	r.logger.InfoContext(ctx, "scheduling published",
		"id", id,
		"outcome", outcome,
		"events", len(pub.Events),
		"category", pub.Category,
	)
	return outcome, nil
}

func (r *repo) PurgeCancelled(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM schedulings WHERE status = 'cancelled' AND updated_at < $1",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge cancelled runs: %w", err)
	}
	return res.RowsAffected()
}

func (r *repo) Stale(ctx context.Context, cutoff time.Time) ([]Scheduling, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE s.status IN ('built', 'pruned', 'parsed', 'matched') AND s.updated_at < $1
		ORDER BY s.updated_at`,
		projection.Columns(), projection.Table(),
	)
	return repository.QueryMany(ctx, r.db, q, []any{cutoff}, scanScheduling)
}

func (r *repo) RefreshCandidates(ctx context.Context, day time.Time) ([]uuid.UUID, error) {
	return repository.QueryMany(ctx, r.db, `
		SELECT s.website_id
		FROM schedulings s
		JOIN websites w ON w.id = s.website_id
		WHERE s.status = 'indexed' AND w.is_active AND s.window_start < $1
			AND NOT EXISTS (
				SELECT 1 FROM schedulings f
				WHERE f.website_id = s.website_id
					AND f.status IN ('built', 'pruned', 'parsed', 'matched'))
		ORDER BY s.window_start, s.website_id`,
		[]any{day}, scanUUID,
	)
}

// commit locks the run, checks it still holds the stage's starting status,
// applies fn and moves the run to the stage's target status. set is the SET
// clause of the update: $1 is the id, $2 the new status, extra args follow.
func (r *repo) commit(ctx context.Context, id uuid.UUID, stage Stage, fn func(tx *sql.Tx) error, set string, extra ...any) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		run, err := r.lock(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}
		if run.Status != stage.From() {
			return struct{}{}, fmt.Errorf("%w: status %s", ErrSuperseded, run.Status)
		}

		to, err := Transition(run.Status, stage.To())
		if err != nil {
			return struct{}{}, err
		}

		if fn != nil {
			if err := fn(tx); err != nil {
				return struct{}{}, err
			}
		}

		args := append([]any{id, to}, extra...)
		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE schedulings "+set+", updated_at = now() WHERE id = $1",
			args...,
		); err != nil {
			return struct{}{}, repository.MapError(err, ErrNotFound, ErrDuplicateRun)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "stage committed", "id", id, "stage", stage)
	return nil
}

// lock reads the run FOR UPDATE. A run deleted by a deindex reads as
// superseded.
func (r *repo) lock(ctx context.Context, tx *sql.Tx, id uuid.UUID) (Scheduling, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE s.id = $1 FOR UPDATE", projection.Columns(), projection.Table())
	run, err := repository.QueryOne(ctx, tx, q, []any{id}, scanScheduling)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: run deleted", ErrSuperseded)
	}
	return run, err
}

func (r *repo) setStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status Status) error {
	if err := repository.ExecExpectOne(ctx, tx,
		"UPDATE schedulings SET status = $2, updated_at = now() WHERE id = $1",
		id, status,
	); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicateRun)
	}
	return nil
}

func moderateWebsite(ctx context.Context, e repository.Executor, websiteID uuid.UUID, category index.Category) error {
	if category == index.CategoryNone {
		if _, err := e.ExecContext(ctx, "DELETE FROM website_moderations WHERE website_id = $1", websiteID); err != nil {
			return fmt.Errorf("clear website moderation: %w", err)
		}
		return nil
	}

	if _, err := e.ExecContext(ctx, `
		INSERT INTO website_moderations(website_id, category)
		VALUES ($1, $2)
		ON CONFLICT (website_id) DO UPDATE SET category = EXCLUDED.category, created_at = now()`,
		websiteID, string(category),
	); err != nil {
		return fmt.Errorf("moderate website: %w", err)
	}
	return nil
}
