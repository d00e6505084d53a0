// Package energytags stores manually curated energy-source tags for charging
// stations. A tag always wins over what the directory reports or what is
// inferred from station text.
package energytags

import (
	"context"
	"errors"
	"time"

	"github.com/chargepath/chargepath/internal/stations"
)

var (
	// ErrTagNotFound is returned when a station has no manual tag.
	ErrTagNotFound = errors.New("energy tag not found")

	// ErrInvalidTag is returned for tags without a station ID or with an
	// unknown energy source.
	ErrInvalidTag = errors.New("invalid energy tag")
)

// Tag pins the energy source of one station.
type Tag struct {
	StationID string                `json:"stationId"`
	Source    stations.EnergySource `json:"energySource"`
	Note      string                `json:"note,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Validate checks the tag can be stored.
func (t *Tag) Validate() error {
	if t.StationID == "" {
		return errors.Join(ErrInvalidTag, errors.New("station id is required"))
	}
	if !t.Source.Valid() {
		return errors.Join(ErrInvalidTag, errors.New("energy source must be solar, grid or hybrid"))
	}
	return nil
}

// Repository defines the interface for energy tag storage.
type Repository interface {
	// GetTag retrieves the tag for a station.
	GetTag(ctx context.Context, stationID string) (*Tag, error)

	// ListTags retrieves all tags keyed by station ID.
	ListTags(ctx context.Context) (map[string]*Tag, error)

	// SetTag creates or updates a tag.
	SetTag(ctx context.Context, tag *Tag) error

	// SetTags creates or updates multiple tags atomically.
	SetTags(ctx context.Context, tags []*Tag) error

	// DeleteTag removes a station's tag.
	DeleteTag(ctx context.Context, stationID string) error
}
