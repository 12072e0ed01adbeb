package matching

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

// System stores matrices content-addressed.
type System interface {
	Ensure(ctx context.Context, m Matrix) (*Matching, error)
	Find(ctx context.Context, id uuid.UUID) (*Matching, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "matching"),
	}
}

func (r *repo) Ensure(ctx context.Context, m Matrix) (*Matching, error) {
	hash := m.Hash()

	if found, err := r.findByHash(ctx, hash); err == nil {
		return found, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO matchings(content_hash, matrix)
		VALUES ($1, $2)
		ON CONFLICT (content_hash) DO NOTHING`,
		hash, string(data),
	); err != nil {
		return nil, fmt.Errorf("insert matching: %w", err)
	}

	found, err := r.findByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "matching created", "id", found.ID, "pairs", len(m.Pairs))
	return found, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Matching, error) {
	m, err := repository.QueryOne(
		ctx, r.db,
		"SELECT id, content_hash, matrix, created_at FROM matchings WHERE id = $1",
		[]any{id},
		scanMatching,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &m, nil
}

func (r *repo) findByHash(ctx context.Context, hash string) (*Matching, error) {
	m, err := repository.QueryOne(
		ctx, r.db,
		"SELECT id, content_hash, matrix, created_at FROM matchings WHERE content_hash = $1",
		[]any{hash},
		scanMatching,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &m, nil
}

func scanMatching(s repository.Scanner) (Matching, error) {
	var (
		m   Matching
		raw []byte
	)
	if err := s.Scan(&m.ID, &m.ContentHash, &raw, &m.CreatedAt); err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m.Matrix); err != nil {
		return m, fmt.Errorf("decode matrix: %w", err)
	}
	return m, nil
}
