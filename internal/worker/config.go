// Package worker keeps provider caches warm along popular charging corridors
// so that trip planning mostly hits the shared cache tier.
package worker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chargepath/chargepath/internal/stations"
)

// ErrInvalidCorridor is returned for corridor specs that are not "Start>Destination".
var ErrInvalidCorridor = errors.New("invalid corridor")

// Corridor is a start and destination pair whose route is warmed.
type Corridor struct {
	Start       string
	Destination string
}

// String renders the corridor in the form ParseCorridor accepts.
func (c Corridor) String() string {
	return c.Start + ">" + c.Destination
}

// ParseCorridor parses "Start>Destination". Surrounding whitespace is
// trimmed and both sides must be non-empty.
func ParseCorridor(s string) (Corridor, error) {
	start, dest, ok := strings.Cut(s, ">")
	start, dest = strings.TrimSpace(start), strings.TrimSpace(dest)
	if !ok || start == "" || dest == "" || strings.Contains(dest, ">") {
		return Corridor{}, fmt.Errorf("%w: %q must look like Start>Destination", ErrInvalidCorridor, s)
	}
	return Corridor{Start: start, Destination: dest}, nil
}

// ParseCorridors parses every spec, failing on the first invalid one.
func ParseCorridors(specs []string) ([]Corridor, error) {
	out := make([]Corridor, 0, len(specs))
	for _, s := range specs {
		c, err := ParseCorridor(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// RefreshConfig holds configuration for the corridor refresh job.
type RefreshConfig struct {
	// Corridors to warm. If empty, uses DefaultCorridors.
	Corridors []Corridor

	// Concurrency is the number of corridors warmed at once.
	// Default: 4
	Concurrency int

	// Timeout bounds each corridor.
	// Default: 60 seconds
	Timeout time.Duration

	// SpacingKm is the distance between station searches along a route.
	// Default: 40
	SpacingKm float64

	// RadiusKm and Limit are part of the station cache key; keep them equal
	// to the planner's search settings.
	RadiusKm float64
	Limit    int
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Corridors:   DefaultCorridors(),
		Concurrency: 4,
		Timeout:     60 * time.Second,
		SpacingKm:   40,
		RadiusKm:    stations.DefaultRadiusKm,
		Limit:       stations.DefaultLimit,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if len(c.Corridors) == 0 {
		c.Corridors = def.Corridors
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.SpacingKm <= 0 {
		c.SpacingKm = def.SpacingKm
	}
	if c.RadiusKm <= 0 {
		c.RadiusKm = def.RadiusKm
	}
	if c.Limit <= 0 {
		c.Limit = def.Limit
	}
	return c
}

// DefaultCorridors returns busy intercity EV corridors.
func DefaultCorridors() []Corridor {
	return []Corridor{
		{Start: "Bengaluru", Destination: "Mysuru"},
		{Start: "Bengaluru", Destination: "Chennai"},
		{Start: "Mumbai", Destination: "Pune"},
		{Start: "Delhi", Destination: "Jaipur"},
		{Start: "Delhi", Destination: "Agra"},
		{Start: "Hyderabad", Destination: "Vijayawada"},
		{Start: "Ahmedabad", Destination: "Vadodara"},
	}
}
