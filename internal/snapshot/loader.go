package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/schedule"
	"github.com/JaimeStill/horarium/pkg/repository"
)

// Loader resolves a persisted snapshot to its version rows.
type Loader struct {
	db      *sql.DB
	builder *Builder
	logger  *slog.Logger
}

func NewLoader(db *sql.DB, logger *slog.Logger) *Loader {
	return &Loader{
		db:      db,
		builder: NewBuilder(logger),
		logger:  logger.With("system", "snapshot"),
	}
}

// Load reads the pinned versions of a scheduling run in snapshot order. A
// reference without its version row yields ErrMissingVersion.
func (l *Loader) Load(ctx context.Context, schedulingID uuid.UUID) (*Contents, error) {
	refs, err := l.builder.Refs(ctx, l.db, schedulingID)
	if err != nil {
		return nil, err
	}

	c := &Contents{
		SchedulingID: schedulingID,
		WebsiteID:    refs.WebsiteID,
	}

	if c.Churches, err = repository.QueryMany(ctx, l.db, `
		SELECT v.version_id, v.church_id, v.name, v.latitude, v.longitude,
			v.address, v.zipcode, v.city, v.color
		FROM scheduling_churches r
		JOIN church_versions v ON v.version_id = r.version_id
		WHERE r.scheduling_id = $1
		ORDER BY r.position`,
		[]any{schedulingID}, scanChurch,
	); err != nil {
		return nil, fmt.Errorf("load churches: %w", err)
	}
	if err := checkCount("churches", len(refs.Churches), len(c.Churches)); err != nil {
		return nil, err
	}

	if c.Scrapings, err = repository.QueryMany(ctx, l.db, `
		SELECT v.version_id, v.scraping_id, v.url, v.extracted_html
		FROM scheduling_scrapings r
		JOIN scraping_versions v ON v.version_id = r.version_id
		WHERE r.scheduling_id = $1
		ORDER BY r.position`,
		[]any{schedulingID}, scanScraping,
	); err != nil {
		return nil, fmt.Errorf("load scrapings: %w", err)
	}
	if err := checkCount("scrapings", len(refs.Scrapings), len(c.Scrapings)); err != nil {
		return nil, err
	}

	if c.Images, err = repository.QueryMany(ctx, l.db, `
		SELECT v.version_id, v.image_id, v.name, v.extracted_text
		FROM scheduling_images r
		JOIN image_versions v ON v.version_id = r.version_id
		WHERE r.scheduling_id = $1
		ORDER BY r.position`,
		[]any{schedulingID}, scanImage,
	); err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	if err := checkCount("images", len(refs.Images), len(c.Images)); err != nil {
		return nil, err
	}

	if c.ExternalLocations, err = repository.QueryMany(ctx, l.db, `
		SELECT v.version_id, v.location_id, v.name, v.latitude, v.longitude, v.address, v.city
		FROM scheduling_external_refs r
		JOIN external_location_versions v ON v.version_id = r.version_id
		WHERE r.scheduling_id = $1 AND r.kind = 'location'
		ORDER BY r.position`,
		[]any{schedulingID}, scanExternalLocation,
	); err != nil {
		return nil, fmt.Errorf("load external locations: %w", err)
	}
	if err := checkCount("external locations", len(refs.ExternalLocations), len(c.ExternalLocations)); err != nil {
		return nil, err
	}

	rows, err := repository.QueryMany(ctx, l.db, `
		SELECT v.version_id, v.time_id, v.location_id, v.schedules
		FROM scheduling_external_refs r
		JOIN external_time_versions v ON v.version_id = r.version_id
		WHERE r.scheduling_id = $1 AND r.kind = 'time'
		ORDER BY r.position`,
		[]any{schedulingID}, scanExternalTimeRow,
	)
	if err != nil {
		return nil, fmt.Errorf("load external times: %w", err)
	}
	if err := checkCount("external times", len(refs.ExternalTimes), len(rows)); err != nil {
		return nil, err
	}

	c.ExternalTimes = make([]ExternalTime, 0, len(rows))
	for _, row := range rows {
		c.ExternalTimes = append(c.ExternalTimes, l.decodeExternalTime(ctx, row))
	}

	return c, nil
}

type externalTimeRow struct {
	ExternalTime
	raw []byte
}

// decodeExternalTime keeps every valid schedule item of an external time.
// Invalid items are upstream data errors and are skipped with a warning.
func (l *Loader) decodeExternalTime(ctx context.Context, row externalTimeRow) ExternalTime {
	t := row.ExternalTime
	t.Schedules = []schedule.ScheduleItem{}

	var raw []json.RawMessage
	if err := json.Unmarshal(row.raw, &raw); err != nil {
		l.logger.WarnContext(ctx, "external time schedules unreadable", "version_id", t.VersionID, "error", err)
		return t
	}

	for _, r := range raw {
		var item schedule.ScheduleItem
		if err := json.Unmarshal(r, &item); err != nil {
			l.logger.WarnContext(ctx, "external schedule item skipped", "version_id", t.VersionID, "error", err)
			continue
		}
		t.Schedules = append(t.Schedules, item)
	}
	return t
}

func checkCount(kind string, want, got int) error {
	if want != got {
		return fmt.Errorf("%w: %s: %d referenced, %d found", ErrMissingVersion, kind, want, got)
	}
	return nil
}

func scanChurch(s repository.Scanner) (Church, error) {
	var c Church
	err := s.Scan(
		&c.VersionID, &c.ID, &c.Name, &c.Latitude, &c.Longitude,
		&c.Address, &c.Zipcode, &c.City, &c.Color,
	)
	return c, err
}

func scanScraping(s repository.Scanner) (Scraping, error) {
	var sc Scraping
	err := s.Scan(&sc.VersionID, &sc.ID, &sc.URL, &sc.ExtractedHTML)
	return sc, err
}

func scanImage(s repository.Scanner) (Image, error) {
	var i Image
	err := s.Scan(&i.VersionID, &i.ID, &i.Name, &i.ExtractedText)
	return i, err
}

func scanExternalLocation(s repository.Scanner) (ExternalLocation, error) {
	var l ExternalLocation
	err := s.Scan(&l.VersionID, &l.ID, &l.Name, &l.Latitude, &l.Longitude, &l.Address, &l.City)
	return l, err
}

func scanExternalTimeRow(s repository.Scanner) (externalTimeRow, error) {
	var r externalTimeRow
	err := s.Scan(&r.VersionID, &r.ID, &r.LocationID, &r.raw)
	return r, err
}
