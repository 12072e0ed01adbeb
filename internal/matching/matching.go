// Package matching attributes external locations to the website's churches.
// A match result is a matrix persisted content-addressed, so identical
// inputs share one row across runs.
package matching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/horarium/internal/snapshot"
)

// Pair attributes one external location. ChurchID is nil when no church
// matched; the location's times are then indexed as unattributed.
type Pair struct {
	LocationID uuid.UUID  `json:"location_id"`
	ChurchID   *uuid.UUID `json:"church_id"`
	Distance   *float64   `json:"distance_m,omitempty"`
	SameName   bool       `json:"same_name"`
}

// Matrix holds one pair per external location, in snapshot order.
type Matrix struct {
	Pairs []Pair `json:"pairs"`
}

// ChurchFor returns the church an external location was attributed to.
func (m Matrix) ChurchFor(locationID uuid.UUID) (uuid.UUID, bool) {
	for _, p := range m.Pairs {
		if p.LocationID == locationID && p.ChurchID != nil {
			return *p.ChurchID, true
		}
	}
	return uuid.Nil, false
}

// Hash is the sha256 of the matrix encoding.
func (m Matrix) Hash() string {
	data, _ := json.Marshal(m)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matching is a persisted matrix.
type Matching struct {
	ID          uuid.UUID `json:"id"`
	ContentHash string    `json:"content_hash"`
	Matrix      Matrix    `json:"matrix"`
	CreatedAt   time.Time `json:"created_at"`
}

// LocationMatcher attributes external locations to churches.
type LocationMatcher interface {
	Match(ctx context.Context, churches []snapshot.Church, locations []snapshot.ExternalLocation) (Matrix, error)
}
