// Package routing resolves place names to coordinates and fetches driving
// routes between them.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/chargepath/chargepath/pkg/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrMissingCredentials indicates the provider API key is not configured.
	ErrMissingCredentials = errors.New("routing provider credentials are not configured")
	// ErrInvalidLocation indicates an empty or unresolvable place name.
	ErrInvalidLocation = errors.New("location could not be resolved")
	// ErrRouteNotFound indicates the provider returned no usable geometry or distance.
	ErrRouteNotFound = errors.New("no drivable route found")
	// ErrNetwork indicates a transport failure or a non-success HTTP status.
	ErrNetwork = errors.New("routing provider request failed")
)

// Provider is a geocoding and driving directions backend.
type Provider interface {
	// Geocode returns the best match for a normalized place name.
	Geocode(ctx context.Context, place string) (geo.Coordinate, error)
	// Directions returns the driving route between two points.
	Directions(ctx context.Context, start, destination geo.Coordinate) (*Route, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Route is a driving route between two coordinates. The geometry is shared
// between callers and must not be modified.
type Route struct {
	DistanceKm      float64          `json:"distanceKm"`
	DurationSeconds float64          `json:"durationSeconds,omitempty"`
	Geometry        []geo.Coordinate `json:"geometry"`
	Provider        string           `json:"provider"`
	FetchedAt       time.Time        `json:"fetchedAt"`
}

// Error carries provider failure details. Err is one of the sentinels above.
type Error struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}
