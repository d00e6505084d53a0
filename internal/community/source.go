package community

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/chargepath/chargepath/pkg/geo"
)

// VehicleSource supplies candidate donors around a stranding point.
type VehicleSource interface {
	Vehicles(ctx context.Context, near geo.Coordinate, direction string) ([]Vehicle, error)
}

// StaticSource returns a fixed, caller-supplied list.
type StaticSource []Vehicle

// Vehicles returns a copy of the list.
func (s StaticSource) Vehicles(context.Context, geo.Coordinate, string) ([]Vehicle, error) {
	out := make([]Vehicle, len(s))
	copy(out, s)
	return out, nil
}

// SyntheticConfig configures a SyntheticSource.
type SyntheticConfig struct {
	// Count is the number of vehicles generated per call (default: 6).
	Count int

	// RadiusKm bounds how far from the stranding point vehicles appear (default: 10).
	RadiusKm float64

	// Seed makes generation reproducible. Zero seeds from the runtime.
	Seed uint64
}

// SyntheticSource generates plausible donors near the stranding point. It
// stands in for a fleet-location service.
type SyntheticSource struct {
	count    int
	radiusKm float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticSource creates a generator with defaults applied.
func NewSyntheticSource(cfg SyntheticConfig) *SyntheticSource {
	if cfg.Count <= 0 {
		cfg.Count = 6
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 10
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &SyntheticSource{
		count:    cfg.Count,
		radiusKm: cfg.RadiusKm,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Vehicles generates donors scattered around near. Most share the
// receiver's direction; some head elsewhere or cannot reverse charge.
func (s *SyntheticSource) Vehicles(_ context.Context, near geo.Coordinate, direction string) ([]Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Vehicle, 0, s.count)
	for i := 0; i < s.count; i++ {
		dir := direction
		if s.rng.Float64() < 0.25 {
			dir = "local commute"
		}
		out = append(out, Vehicle{
			VehicleID:               "veh_" + uuid.NewString(),
			Location:                s.offset(near),
			RouteDirection:          dir,
			BatteryPercent:          geo.Round(30+s.rng.Float64()*65, 1),
			SupportsReverseCharging: s.rng.Float64() < 0.75,
		})
	}
	return out, nil
}

// offset moves p by a random bearing and distance up to radiusKm.
func (s *SyntheticSource) offset(p geo.Coordinate) geo.Coordinate {
	d := s.rng.Float64() * s.radiusKm
	bearing := s.rng.Float64() * 2 * math.Pi

	dLat := d / geo.EarthRadiusKm * math.Cos(bearing)
	dLon := d / geo.EarthRadiusKm * math.Sin(bearing) / math.Cos(p.Lat*math.Pi/180)
	return geo.Coordinate{
		Lat: p.Lat + dLat*180/math.Pi,
		Lon: p.Lon + dLon*180/math.Pi,
	}
}
