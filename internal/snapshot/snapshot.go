// Package snapshot pins, for one scheduling run, the exact versions of every
// upstream entity that influences the run: churches, scrapings, images and
// the external locations and times of the website's organization.
//
// Versions are rows of append-only *_versions tables fed by triggers on the
// live tables. A run only ever reads those rows, so later edits to a live row
// cannot leak into a run that already captured its snapshot.
package snapshot

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/schedule"
)

// Snapshot holds ordered version ids per entity kind.
type Snapshot struct {
	WebsiteID         uuid.UUID `json:"website_id"`
	Churches          []int64   `json:"churches"`
	Scrapings         []int64   `json:"scrapings"`
	Images            []int64   `json:"images"`
	ExternalLocations []int64   `json:"external_locations"`
	ExternalTimes     []int64   `json:"external_times"`
}

// Church is an immutable church version.
type Church struct {
	VersionID int64     `json:"version_id"`
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Address   *string   `json:"address"`
	Zipcode   *string   `json:"zipcode"`
	City      *string   `json:"city"`
	Color     *string   `json:"color"`
}

// Scraping is an immutable version of an extracted web page.
type Scraping struct {
	VersionID     int64     `json:"version_id"`
	ID            uuid.UUID `json:"id"`
	URL           string    `json:"url"`
	ExtractedHTML *string   `json:"extracted_html"`
}

// Image is an immutable version of an uploaded image and its extracted text.
type Image struct {
	VersionID     int64     `json:"version_id"`
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ExtractedText *string   `json:"extracted_text"`
}

// ExternalLocation is an immutable version of a location published by the
// website's external organization.
type ExternalLocation struct {
	VersionID int64     `json:"version_id"`
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Address   *string   `json:"address"`
	City      *string   `json:"city"`
}

// ExternalTime is an immutable version of the schedules published for one
// external location. Items carry no church attribution.
type ExternalTime struct {
	VersionID  int64                   `json:"version_id"`
	ID         uuid.UUID               `json:"id"`
	LocationID uuid.UUID               `json:"location_id"`
	Schedules  []schedule.ScheduleItem `json:"schedules"`
}

// Contents is a snapshot resolved to its version rows, in snapshot order.
type Contents struct {
	SchedulingID      uuid.UUID          `json:"scheduling_id"`
	WebsiteID         uuid.UUID          `json:"website_id"`
	Churches          []Church           `json:"churches"`
	Scrapings         []Scraping         `json:"scrapings"`
	Images            []Image            `json:"images"`
	ExternalLocations []ExternalLocation `json:"external_locations"`
	ExternalTimes     []ExternalTime     `json:"external_times"`
}
