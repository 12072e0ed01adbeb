package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/pkg/repository"
)

const (
	churchVersionsQuery = `
		SELECT max(v.version_id)
		FROM churches c
		JOIN church_versions v ON v.church_id = c.id
		WHERE c.website_id = $1 AND c.is_active
		GROUP BY c.id
		ORDER BY c.id`

	scrapingVersionsQuery = `
		SELECT max(v.version_id)
		FROM scrapings s
		JOIN scraping_versions v ON v.scraping_id = s.id
		WHERE s.website_id = $1
		GROUP BY s.id, s.url
		ORDER BY s.url, s.id`

	imageVersionsQuery = `
		SELECT max(v.version_id)
		FROM images i
		JOIN image_versions v ON v.image_id = i.id
		WHERE i.website_id = $1
		GROUP BY i.id, i.name
		ORDER BY i.name, i.id`

	locationVersionsQuery = `
		SELECT max(v.version_id)
		FROM external_locations l
		JOIN external_location_versions v ON v.location_id = l.id
		WHERE l.organization_id = $1
		GROUP BY l.id
		ORDER BY l.id`

	timeVersionsQuery = `
		SELECT max(v.version_id)
		FROM external_times t
		JOIN external_locations l ON l.id = t.location_id
		JOIN external_time_versions v ON v.time_id = t.id
		WHERE l.organization_id = $1
		GROUP BY t.id
		ORDER BY t.id`
)

// Builder captures and persists snapshots. It runs inside the caller's
// transaction so the capture is consistent with the run it creates.
type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger.With("system", "snapshot")}
}

// Capture reads the current version id of every entity associated with the
// website. External locations and times are captured only when the website
// has an external organization.
func (b *Builder) Capture(ctx context.Context, q repository.Querier, websiteID uuid.UUID) (Snapshot, error) {
	s := Snapshot{WebsiteID: websiteID}

	org, err := repository.QueryOne(
		ctx, q,
		"SELECT external_organization_id FROM websites WHERE id = $1",
		[]any{websiteID},
		scanOrganization,
	)
	if err != nil {
		return s, repository.MapError(err, ErrWebsiteNotFound, err)
	}

	if s.Churches, err = versionIDs(ctx, q, churchVersionsQuery, websiteID); err != nil {
		return s, fmt.Errorf("capture churches: %w", err)
	}
	if s.Scrapings, err = versionIDs(ctx, q, scrapingVersionsQuery, websiteID); err != nil {
		return s, fmt.Errorf("capture scrapings: %w", err)
	}
	if s.Images, err = versionIDs(ctx, q, imageVersionsQuery, websiteID); err != nil {
		return s, fmt.Errorf("capture images: %w", err)
	}

	if org == nil {
		s.ExternalLocations = []int64{}
		s.ExternalTimes = []int64{}
	} else {
		if s.ExternalLocations, err = versionIDs(ctx, q, locationVersionsQuery, *org); err != nil {
			return s, fmt.Errorf("capture external locations: %w", err)
		}
		if s.ExternalTimes, err = versionIDs(ctx, q, timeVersionsQuery, *org); err != nil {
			return s, fmt.Errorf("capture external times: %w", err)
		}
	}

	b.logger.DebugContext(
		ctx, "snapshot captured",
		"website_id", websiteID,
		"churches", len(s.Churches),
		"scrapings", len(s.Scrapings),
		"images", len(s.Images),
		"external_locations", len(s.ExternalLocations),
		"external_times", len(s.ExternalTimes),
	)

	return s, nil
}

// Persist writes the snapshot reference sets of a scheduling run.
func (b *Builder) Persist(ctx context.Context, e repository.Executor, schedulingID uuid.UUID, s Snapshot) error {
	inserts := []struct {
		table string
		extra string
		ids   []int64
	}{
		{"scheduling_churches", "", s.Churches},
		{"scheduling_scrapings", "", s.Scrapings},
		{"scheduling_images", "", s.Images},
		{"scheduling_external_refs", "location", s.ExternalLocations},
		{"scheduling_external_refs", "time", s.ExternalTimes},
	}

	for _, ins := range inserts {
		if len(ins.ids) == 0 {
			continue
		}

		var (
			q    string
			args []any
		)
		if ins.extra == "" {
			q = fmt.Sprintf(`
				INSERT INTO %s(scheduling_id, position, version_id)
				SELECT $1, u.ord - 1, u.v
				FROM unnest($2::bigint[]) WITH ORDINALITY AS u(v, ord)`, ins.table)
			args = []any{schedulingID, ins.ids}
		} else {
			q = `
				INSERT INTO scheduling_external_refs(scheduling_id, kind, position, version_id)
				SELECT $1, $2, u.ord - 1, u.v
				FROM unnest($3::bigint[]) WITH ORDINALITY AS u(v, ord)`
			args = []any{schedulingID, ins.extra, ins.ids}
		}

		if _, err := e.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("persist %s %s: %w", ins.table, ins.extra, err)
		}
	}

	return nil
}

// Refs reads back the reference sets persisted for a run.
func (b *Builder) Refs(ctx context.Context, q repository.Querier, schedulingID uuid.UUID) (Snapshot, error) {
	var s Snapshot

	website, err := repository.QueryOne(
		ctx, q,
		"SELECT website_id FROM schedulings WHERE id = $1",
		[]any{schedulingID},
		scanUUID,
	)
	if err != nil {
		return s, err
	}
	s.WebsiteID = website

	refs := []struct {
		query string
		args  []any
		dest  *[]int64
	}{
		{"SELECT version_id FROM scheduling_churches WHERE scheduling_id = $1 ORDER BY position", []any{schedulingID}, &s.Churches},
		{"SELECT version_id FROM scheduling_scrapings WHERE scheduling_id = $1 ORDER BY position", []any{schedulingID}, &s.Scrapings},
		{"SELECT version_id FROM scheduling_images WHERE scheduling_id = $1 ORDER BY position", []any{schedulingID}, &s.Images},
		{"SELECT version_id FROM scheduling_external_refs WHERE scheduling_id = $1 AND kind = $2 ORDER BY position", []any{schedulingID, "location"}, &s.ExternalLocations},
		{"SELECT version_id FROM scheduling_external_refs WHERE scheduling_id = $1 AND kind = $2 ORDER BY position", []any{schedulingID, "time"}, &s.ExternalTimes},
	}

	for _, ref := range refs {
		ids, err := repository.QueryMany(ctx, q, ref.query, ref.args, scanVersionID)
		if err != nil {
			return s, err
		}
		*ref.dest = ids
	}

	return s, nil
}

func versionIDs(ctx context.Context, q repository.Querier, query string, id uuid.UUID) ([]int64, error) {
	return repository.QueryMany(ctx, q, query, []any{id}, scanVersionID)
}

func scanVersionID(s repository.Scanner) (int64, error) {
	var id int64
	err := s.Scan(&id)
	return id, err
}

func scanUUID(s repository.Scanner) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.Scan(&id)
	return id, err
}

func scanOrganization(s repository.Scanner) (*uuid.UUID, error) {
	var id uuid.NullUUID
	if err := s.Scan(&id); err != nil {
		return nil, err
	}
	if !id.Valid {
		return nil, nil
	}
	return &id.UUID, nil
}
