package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/query"
	"github.com/JaimeStill/horarium/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the Postgres-backed override store.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "prompts"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Override], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Instructions", "Note")
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count prompt overrides: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanOverride)
	if err != nil {
		return nil, fmt.Errorf("query prompt overrides: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Override, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)
	o, err := repository.QueryOne(ctx, r.db, q, args, scanOverride)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrActive)
	}
	return &o, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Override, error) {
	if strings.TrimSpace(cmd.Instructions) == "" {
		return nil, ErrEmptyInstructions
	}

	o, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Override, error) {
		if cmd.Activate {
			if err := deactivateAll(ctx, tx); err != nil {
				return Override{}, err
			}
		}
		return repository.QueryOne(ctx, tx,
			"INSERT INTO prompts(instructions, note, active) VALUES ($1, $2, $3) "+returning,
			[]any{cmd.Instructions, cmd.Note, cmd.Activate}, scanOverride,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrActive)
	}

	r.logger.InfoContext(ctx, "prompt override created", "id", o.ID, "active", o.Active)
	return &o, nil
}

func (r *repo) Activate(ctx context.Context, id uuid.UUID) (*Override, error) {
	o, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Override, error) {
		if err := deactivateAll(ctx, tx); err != nil {
			return Override{}, err
		}
		return repository.QueryOne(ctx, tx,
			"UPDATE prompts SET active = true WHERE id = $1 "+returning,
			[]any{id}, scanOverride,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrActive)
	}

	r.logger.InfoContext(ctx, "prompt override activated", "id", o.ID)
	return &o, nil
}

func (r *repo) Deactivate(ctx context.Context, id uuid.UUID) (*Override, error) {
	o, err := repository.QueryOne(ctx, r.db,
		"UPDATE prompts SET active = false WHERE id = $1 "+returning,
		[]any{id}, scanOverride,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrActive)
	}

	r.logger.InfoContext(ctx, "prompt override deactivated", "id", o.ID)
	return &o, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var active bool
		if err := tx.QueryRowContext(ctx,
			"SELECT active FROM prompts WHERE id = $1 FOR UPDATE", id,
		).Scan(&active); err != nil {
			return struct{}{}, err
		}
		if active {
			return struct{}{}, ErrActive
		}
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM prompts WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrActive)
	}

	r.logger.InfoContext(ctx, "prompt override deleted", "id", id)
	return nil
}

func (r *repo) Effective(ctx context.Context) (Effective, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE p.active", projection.Columns(), projection.Table())
	o, err := repository.QueryOne(ctx, r.db, q, nil, scanOverride)
	if errors.Is(err, sql.ErrNoRows) {
		return Resolve(nil), nil
	}
	if err != nil {
		return Effective{}, fmt.Errorf("load active prompt override: %w", err)
	}
	return Resolve(&o), nil
}

func deactivateAll(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "UPDATE prompts SET active = false WHERE active"); err != nil {
		return fmt.Errorf("deactivate current override: %w", err)
	}
	return nil
}
