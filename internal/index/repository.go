package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/pkg/repository"
)

// System is the read side of the index.
type System interface {
	Handler() *Handler

	// ListEvents returns the published events of a website with from <= day < to.
	// A nil bound is open.
	ListEvents(ctx context.Context, websiteID uuid.UUID, from, to *time.Time) ([]Event, error)
	ChurchNames(ctx context.Context, websiteID uuid.UUID) (map[uuid.UUID]string, error)
	WebsiteName(ctx context.Context, websiteID uuid.UUID) (string, error)
}

type repo struct {
	db       *sql.DB
	location *time.Location
	logger   *slog.Logger
}

// New creates the index read repository. location is the civil time zone
// events are rendered in.
func New(db *sql.DB, location *time.Location, logger *slog.Logger) System {
	return &repo{
		db:       db,
		location: location,
		logger:   logger.With("system", "index"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.location, r.logger)
}

const eventColumns = `
	e.id, e.scheduling_id, e.website_id, e.church_id, e.day,
	to_char(e.start_time, 'HH24:MI'), e.indexed_end, to_char(e.displayed_end, 'HH24:MI'),
	e.is_explicitly_other, e.has_been_moderated, e.church_color`

func (r *repo) ListEvents(ctx context.Context, websiteID uuid.UUID, from, to *time.Time) ([]Event, error) {
	q := `SELECT` + eventColumns + `
		FROM index_events e
		JOIN schedulings s ON s.id = e.scheduling_id AND s.status = 'indexed'
		WHERE e.website_id = $1
			AND ($2::date IS NULL OR e.day >= $2::date)
			AND ($3::date IS NULL OR e.day < $3::date)
		ORDER BY e.day, e.start_time NULLS LAST, e.id`

	events, err := repository.QueryMany(ctx, r.db, q, []any{websiteID, from, to}, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}

func (r *repo) ChurchNames(ctx context.Context, websiteID uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := repository.QueryMany(
		ctx, r.db,
		"SELECT id, name FROM churches WHERE website_id = $1",
		[]any{websiteID},
		scanChurchName,
	)
	if err != nil {
		return nil, fmt.Errorf("query churches: %w", err)
	}

	names := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		names[row.id] = row.name
	}
	return names, nil
}

func (r *repo) WebsiteName(ctx context.Context, websiteID uuid.UUID) (string, error) {
	name, err := repository.QueryOne(
		ctx, r.db,
		"SELECT name FROM websites WHERE id = $1",
		[]any{websiteID},
		func(s repository.Scanner) (string, error) {
			var n string
			err := s.Scan(&n)
			return n, err
		},
	)
	if err != nil {
		return "", repository.MapError(err, ErrWebsiteNotFound, err)
	}
	return name, nil
}

// InsertEvents writes the events of a publication inside the caller's
// transaction.
func InsertEvents(ctx context.Context, e repository.Executor, schedulingID uuid.UUID, events []Event) error {
	const q = `
		INSERT INTO index_events(
			scheduling_id, website_id, church_id, day, start_time, indexed_end,
			displayed_end, is_explicitly_other, has_been_moderated, church_color)
		VALUES ($1, $2, $3, $4, $5::time, $6, $7::time, $8, $9, $10)`

	for _, ev := range events {
		if _, err := e.ExecContext(
			ctx, q,
			schedulingID, ev.WebsiteID, ev.ChurchID, ev.Day, clock(ev.Start), ev.IndexedEnd,
			clock(ev.DisplayedEnd), ev.IsExplicitlyOther, ev.HasBeenModerated, ev.ChurchColor,
		); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.Day.Format(time.DateOnly), err)
		}
	}
	return nil
}

func clock(t *schedule.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

func parseClock(s sql.NullString) (*schedule.TimeOfDay, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := schedule.ParseTimeOfDay(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanEvent(s repository.Scanner) (Event, error) {
	var (
		e              Event
		church         uuid.NullUUID
		start, display sql.NullString
		indexedEnd     sql.NullTime
	)
	err := s.Scan(
		&e.ID, &e.SchedulingID, &e.WebsiteID, &church, &e.Day,
		&start, &indexedEnd, &display,
		&e.IsExplicitlyOther, &e.HasBeenModerated, &e.ChurchColor,
	)
	if err != nil {
		return e, err
	}

	if church.Valid {
		e.ChurchID = &church.UUID
	}
	if indexedEnd.Valid {
		e.IndexedEnd = &indexedEnd.Time
	}
	if e.Start, err = parseClock(start); err != nil {
		return e, err
	}
	if e.DisplayedEnd, err = parseClock(display); err != nil {
		return e, err
	}
	return e, nil
}

type churchName struct {
	id   uuid.UUID
	name string
}

func scanChurchName(s repository.Scanner) (churchName, error) {
	var c churchName
	err := s.Scan(&c.id, &c.name)
	return c, err
}
