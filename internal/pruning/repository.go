package pruning

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/pkg/repository"
)

type repo struct {
	db         *sql.DB
	classifier LineClassifier
	logger     *slog.Logger
}

// New creates a pruning repository implementing the System interface.
// classifier may be nil, in which case only the heuristic selection is made.
func New(db *sql.DB, classifier LineClassifier, logger *slog.Logger) System {
	return &repo{
		db:         db,
		classifier: classifier,
		logger:     logger.With("system", "pruning"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Ensure(ctx context.Context, lines []string) (*Pruning, error) {
	hash := ContentHash(lines)

	if p, err := r.findByHash(ctx, hash); err == nil {
		return p, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	v2 := SelectLines(lines)
	var ml []int
	if r.classifier != nil {
		idx, err := r.classifier.Classify(ctx, lines)
		if err != nil {
			r.logger.WarnContext(ctx, "line classifier failed", "hash", hash, "error", err)
		} else {
			ml = idx
		}
	}

	linesJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}
	v2JSON, err := json.Marshal(v2)
	if err != nil {
		return nil, err
	}
	mlJSON, err := encodeIndices(ml)
	if err != nil {
		return nil, err
	}

	// A concurrent task may insert the same hash first; either row is fine.
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO prunings(content_hash, lines, ml_indices, v2_indices)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_hash) DO NOTHING`,
		hash, string(linesJSON), mlJSON, string(v2JSON),
	); err != nil {
		return nil, fmt.Errorf("insert pruning: %w", err)
	}

	p, err := r.findByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "pruning created", "id", p.ID, "lines", len(lines), "selected", len(p.Indices()))
	return p, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Pruning, error) {
	p, err := repository.QueryOne(
		ctx, r.db,
		"SELECT "+columns+" FROM prunings WHERE id = $1",
		[]any{id},
		scanPruning,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &p, nil
}

func (r *repo) FindMany(ctx context.Context, ids []uuid.UUID) ([]Pruning, error) {
	if len(ids) == 0 {
		return []Pruning{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	prunings, err := repository.QueryMany(
		ctx, r.db,
		"SELECT "+columns+" FROM prunings WHERE id = ANY($1::uuid[]) ORDER BY content_hash",
		[]any{keys},
		scanPruning,
	)
	if err != nil {
		return nil, fmt.Errorf("query prunings: %w", err)
	}
	return prunings, nil
}

func (r *repo) SetHumanIndices(ctx context.Context, id uuid.UUID, cmd SetHumanCommand) (*Pruning, error) {
	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Pruning, error) {
		current, err := repository.QueryOne(
			ctx, tx,
			"SELECT "+columns+" FROM prunings WHERE id = $1 FOR UPDATE",
			[]any{id},
			scanPruning,
		)
		if err != nil {
			return Pruning{}, err
		}

		for _, i := range cmd.Indices {
			if i < 0 || i >= len(current.Lines) {
				return Pruning{}, fmt.Errorf("%w: %d", ErrInvalidIndices, i)
			}
		}

		human, err := encodeIndices(cmd.Indices)
		if err != nil {
			return Pruning{}, err
		}

		return repository.QueryOne(
			ctx, tx, `
			UPDATE prunings SET human_indices = $1, updated_at = now()
			WHERE id = $2
			RETURNING `+columns,
			[]any{human, id},
			scanPruning,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}

	r.logger.Info("pruning human selection set", "id", id, "indices", len(cmd.Indices))
	return &p, nil
}

func (r *repo) findByHash(ctx context.Context, hash string) (*Pruning, error) {
	p, err := repository.QueryOne(
		ctx, r.db,
		"SELECT "+columns+" FROM prunings WHERE content_hash = $1",
		[]any{hash},
		scanPruning,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &p, nil
}
