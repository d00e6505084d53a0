// Package stations discovers charging stations near a point and classifies
// them by the energy source that feeds them.
package stations

import (
	"context"
	"errors"

	"github.com/chargepath/chargepath/pkg/geo"
)

// Sentinel errors for directory operations.
var (
	// ErrMissingCredentials indicates the directory API key is not configured.
	ErrMissingCredentials = errors.New("station directory credentials are not configured")
	// ErrDirectoryUnavailable covers transport failures, non-OK statuses and
	// malformed bodies.
	ErrDirectoryUnavailable = errors.New("station directory unavailable")
)

// Query limits.
const (
	MinRadiusKm     = 1
	MaxRadiusKm     = 500
	MinLimit        = 1
	MaxLimit        = 100
	DefaultRadiusKm = 30
	DefaultLimit    = 25
)

// FastChargerKW is the minimum connector power of a fast charger.
const FastChargerKW = 50

// EnergySource is the electricity supply behind a station.
type EnergySource string

const (
	SourceSolar  EnergySource = "solar"
	SourceGrid   EnergySource = "grid"
	SourceHybrid EnergySource = "hybrid"
)

// Valid reports whether s is one of the known sources.
func (s EnergySource) Valid() bool {
	switch s {
	case SourceSolar, SourceGrid, SourceHybrid:
		return true
	}
	return false
}

// Renewable reports whether s includes solar supply.
func (s EnergySource) Renewable() bool {
	return s == SourceSolar || s == SourceHybrid
}

// Connector is one plug on a station.
type Connector struct {
	Type    string  `json:"type"`
	PowerKW float64 `json:"powerKw"`
}

// Station is a normalized directory record. Stations are read-only once
// returned; cached slices are shared between callers.
type Station struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Address      string         `json:"address"`
	Location     geo.Coordinate `json:"location"`
	Connectors   []Connector    `json:"connectors"`
	MaxPowerKW   float64        `json:"maxPowerKw"`
	EnergySource EnergySource   `json:"energySource"`
	DistanceKm   float64        `json:"distanceKm"`
	Operator     string         `json:"operator,omitempty"`
	Comments     string         `json:"comments,omitempty"`
}

// IsFastCharger reports whether the station reaches FastChargerKW.
func (s Station) IsFastCharger() bool {
	return s.MaxPowerKW >= FastChargerKW
}

// MaxConnectorPower returns the highest connector power, or 0 with none.
func MaxConnectorPower(connectors []Connector) float64 {
	var best float64
	for _, c := range connectors {
		if c.PowerKW > best {
			best = c.PowerKW
		}
	}
	return best
}

// Query is a nearby-station search.
type Query struct {
	Location geo.Coordinate
	RadiusKm float64
	Limit    int
}

// Clamped returns q with radius and limit forced into the allowed ranges.
func (q Query) Clamped() Query {
	q.RadiusKm = min(max(q.RadiusKm, MinRadiusKm), MaxRadiusKm)
	q.Limit = min(max(q.Limit, MinLimit), MaxLimit)
	return q
}

// Provider is a charging-station directory backend. Implementations drop
// records without an identifier or coordinates.
type Provider interface {
	Nearby(ctx context.Context, q Query) ([]Station, error)
	Name() string
}

// Error carries directory failure details. Err is one of the sentinels above.
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
