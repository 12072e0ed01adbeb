package parsing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/pkg/formatting"
	"github.com/JaimeStill/horarium/pkg/pagination"
	"github.com/JaimeStill/horarium/pkg/query"
	"github.com/JaimeStill/horarium/pkg/repository"
	"github.com/JaimeStill/horarium/pkg/storage"
)

const archivePrefix = "parsings/"

type repo struct {
	db         *sql.DB
	oracle     Oracle
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a parsing repository implementing the System interface.
// store may be nil, in which case raw oracle responses are not archived.
func New(
	db *sql.DB,
	oracle Oracle,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		oracle:     oracle,
		storage:    store,
		logger:     logger.With("system", "parsing"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Ensure(ctx context.Context, prunedText string, roster Roster) (*Parsing, error) {
	prunedHash := HashText(prunedText)
	rosterHash := roster.Hash()

	if p, err := r.findByKey(ctx, prunedHash, rosterHash); err == nil {
		return p, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	res, err := r.oracle.Parse(ctx, prunedText, roster)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOracleFailed, err)
	}

	llm, err := encodeList(res.Schedules)
	if err != nil {
		return nil, err
	}
	var llmErr *string
	if res.ErrorDetail != "" {
		llmErr = &res.ErrorDetail
	}

	id, err := repository.QueryOne(ctx, r.db, `
		INSERT INTO parsings(pruned_hash, roster_hash, pruned_text, roster, llm_output, llm_error, provider, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (pruned_hash, roster_hash) DO NOTHING
		RETURNING id`,
		[]any{prunedHash, rosterHash, prunedText, roster.Describe(), llm, llmErr, res.Provider, res.Model},
		scanID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race to a concurrent task; its row is as good as ours.
		return r.findByKey(ctx, prunedHash, rosterHash)
	}
	if err != nil {
		return nil, fmt.Errorf("insert parsing: %w", err)
	}

	if err := r.moderate(ctx, id, prunedHash, rosterHash, res); err != nil {
		return nil, err
	}
	r.archive(ctx, id, res)

	r.logger.InfoContext(
		ctx, "parsing created",
		"id", id,
		"provider", res.Provider,
		"model", res.Model,
		"failed", llmErr != nil,
	)

	return r.Find(ctx, id)
}

// moderate flags a new parsing for review: an oracle failure always, and an
// output that differs from what a moderator validated for the same text
// under an earlier roster.
func (r *repo) moderate(ctx context.Context, id uuid.UUID, prunedHash, rosterHash string, res Result) error {
	if res.ErrorDetail != "" {
		return r.raise(ctx, id, CategoryLLMError)
	}

	prev, err := repository.QueryOne(ctx, r.db, `
		SELECT validated_output FROM parsings
		WHERE pruned_hash = $1 AND roster_hash <> $2 AND validated_output IS NOT NULL
		ORDER BY validated_at DESC
		LIMIT 1`,
		[]any{prunedHash, rosterHash},
		scanList,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find validated parsing: %w", err)
	}

	if prev != nil && res.Schedules != nil && !prev.Equal(*res.Schedules) {
		return r.raise(ctx, id, CategoryLLMChanged)
	}
	return nil
}

func (r *repo) raise(ctx context.Context, id uuid.UUID, c Category) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO parsing_moderations(parsing_id, category)
		VALUES ($1, $2)
		ON CONFLICT (parsing_id, category) DO NOTHING`,
		id, string(c),
	); err != nil {
		return fmt.Errorf("raise %s moderation: %w", c, err)
	}
	r.logger.InfoContext(ctx, "parsing moderation raised", "id", id, "category", c)
	return nil
}

type archiveDocument struct {
	ID        uuid.UUID `json:"id"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Error     string    `json:"error,omitempty"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// archive keeps the raw oracle response for audit. Failures are logged and
// never fail the parse.
func (r *repo) archive(ctx context.Context, id uuid.UUID, res Result) {
	if r.storage == nil || (res.Raw == "" && res.ErrorDetail == "") {
		return
	}

	doc, err := json.Marshal(archiveDocument{
		ID:        id,
		Provider:  res.Provider,
		Model:     res.Model,
		Error:     res.ErrorDetail,
		Response:  res.Raw,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		r.logger.WarnContext(ctx, "encode archive failed", "id", id, "error", err)
		return
	}

	if err := r.storage.Upload(ctx, archiveKey(id), bytes.NewReader(doc), "application/json"); err != nil {
		r.logger.WarnContext(ctx, "archive upload failed", "id", id, "error", err)
		return
	}
	r.logger.DebugContext(ctx, "archive stored", "id", id, "size", formatting.FormatBytes(int64(len(doc)), 1))
}

func (r *repo) Archive(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	if r.storage == nil {
		return nil, storage.ErrNotFound
	}
	return r.storage.Download(ctx, archiveKey(id))
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Parsing], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "PrunedText", "Roster")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count parsings: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	parsings, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanParsing)
	if err != nil {
		return nil, fmt.Errorf("query parsings: %w", err)
	}

	result := pagination.NewPageResult(parsings, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Parsing, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanParsing)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}

	if p.Moderations, err = r.moderations(ctx, r.db, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindMany(ctx context.Context, ids []uuid.UUID) ([]Parsing, error) {
	if len(ids) == 0 {
		return []Parsing{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	q := fmt.Sprintf(
		"SELECT DISTINCT ON (p.id) %s FROM %s WHERE p.id = ANY($1::uuid[]) ORDER BY p.id",
		projection.Columns(), projection.From(),
	)
	parsings, err := repository.QueryMany(ctx, r.db, q, []any{keys}, scanParsing)
	if err != nil {
		return nil, fmt.Errorf("query parsings: %w", err)
	}
	return parsings, nil
}

func (r *repo) Validate(ctx context.Context, id uuid.UUID) (*Parsing, error) {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		q := fmt.Sprintf("SELECT %s FROM public.parsings p WHERE p.id = $1 FOR UPDATE", projection.Columns())
		p, err := repository.QueryOne(ctx, tx, q, []any{id}, scanParsing)
		if err != nil {
			return struct{}{}, err
		}

		out := p.Effective()
		if out == nil {
			return struct{}{}, ErrNoOutput
		}
		validated, err := encodeList(out)
		if err != nil {
			return struct{}{}, err
		}

		if err := repository.ExecExpectOne(ctx, tx, `
			UPDATE parsings
			SET validated_output = $1, validated_at = now(), updated_at = now()
			WHERE id = $2`,
			validated, id,
		); err != nil {
			return struct{}{}, err
		}

		_, err = tx.ExecContext(ctx, "DELETE FROM parsing_moderations WHERE parsing_id = $1", id)
		return struct{}{}, err
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}

	r.logger.Info("parsing validated", "id", id)
	return r.Find(ctx, id)
}

func (r *repo) SetHumanOutput(ctx context.Context, id uuid.UUID, cmd SetHumanCommand) (*Parsing, error) {
	if cmd.Output != nil {
		for i, item := range cmd.Output.Schedules {
			if err := item.Validate(); err != nil {
				return nil, fmt.Errorf("%w: item %d: %w", ErrInvalidOutput, i, err)
			}
		}
	}

	human, err := encodeList(cmd.Output)
	if err != nil {
		return nil, err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(ctx, tx, `
			UPDATE parsings SET human_output = $1, updated_at = now()
			WHERE id = $2`,
			human, id,
		); err != nil {
			return struct{}{}, err
		}

		if cmd.Output == nil {
			return struct{}{}, nil
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM parsing_moderations WHERE parsing_id = $1", id)
		return struct{}{}, err
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}

	r.logger.Info("parsing human output set", "id", id, "cleared", cmd.Output == nil)
	return r.Find(ctx, id)
}

func (r *repo) CleanupModerations(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM parsing_moderations m
		WHERE NOT EXISTS (
			SELECT 1 FROM scheduling_parsings sp
			JOIN schedulings s ON s.id = sp.scheduling_id
			WHERE sp.parsing_id = m.parsing_id AND s.status <> 'cancelled'
		)`)
	if err != nil {
		return 0, fmt.Errorf("cleanup parsing moderations: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "parsing moderations cleaned", "count", n)
	}
	return n, nil
}

func (r *repo) findByKey(ctx context.Context, prunedHash, rosterHash string) (*Parsing, error) {
	qb := query.NewBuilder(projection).
		WhereEquals("PrunedHash", prunedHash).
		WhereEquals("RosterHash", rosterHash)
	q, args := qb.BuildSingleOrNull()

	p, err := repository.QueryOne(ctx, r.db, q, args, scanParsing)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &p, nil
}

func (r *repo) moderations(ctx context.Context, q repository.Querier, id uuid.UUID) ([]Category, error) {
	return repository.QueryMany(
		ctx, q,
		"SELECT category FROM parsing_moderations WHERE parsing_id = $1 ORDER BY category",
		[]any{id},
		scanCategory,
	)
}

// HashText is the hex sha256 of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func archiveKey(id uuid.UUID) string {
	return archivePrefix + id.String() + ".json"
}

func scanID(s repository.Scanner) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.Scan(&id)
	return id, err
}

func scanList(s repository.Scanner) (*schedule.SchedulesList, error) {
	var raw []byte
	if err := s.Scan(&raw); err != nil {
		return nil, err
	}
	return decodeList(raw)
}
