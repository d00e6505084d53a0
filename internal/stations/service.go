package stations

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/cache"
	"github.com/chargepath/chargepath/pkg/geo"
)

// ServiceConfig holds configuration for the station service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// Overrides pins the energy source of specific station IDs.
	Overrides map[string]EnergySource

	// CacheTTL is how long search results are kept (default: 30 minutes).
	CacheTTL time.Duration

	// CacheCapacity bounds the in-process cache (default: 1024).
	CacheCapacity int

	Shared   cache.SharedStore
	Recorder cache.Recorder
}

// Service queries a Provider with clamping, classification and caching.
type Service struct {
	provider  Provider
	logger    zerolog.Logger
	overrides map[string]EnergySource
	results   *cache.Memo[[]Station]
}

// NewService creates a new station service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Minute
	}

	overrides := make(map[string]EnergySource, len(cfg.Overrides))
	for id, src := range cfg.Overrides {
		overrides[id] = src
	}

	return &Service{
		provider:  cfg.Provider,
		logger:    cfg.Logger,
		overrides: overrides,
		results: cache.NewMemo[[]Station](cache.Config{
			Provider:  cfg.Provider.Name(),
			Operation: "nearby",
			Capacity:  cfg.CacheCapacity,
			TTL:       cfg.CacheTTL,
			Shared:    cfg.Shared,
			Recorder:  cfg.Recorder,
			Logger:    cfg.Logger,
		}),
	}
}

// Nearby returns stations around q.Location sorted by ascending distance.
// Radius and limit are clamped first. Repeating a query whose rounded
// location, radius and limit match a cached one returns the cached slice.
func (s *Service) Nearby(ctx context.Context, q Query) ([]Station, error) {
	q = q.Clamped()
	key := queryKey(q)

	return s.results.Get(ctx, key, func(ctx context.Context) ([]Station, error) {
		s.logger.Debug().
			Float64("lat", q.Location.Lat).
			Float64("lon", q.Location.Lon).
			Float64("radius_km", q.RadiusKm).
			Int("limit", q.Limit).
			Str("provider", s.provider.Name()).
			Msg("searching stations")

		found, err := s.provider.Nearby(ctx, q)
		if err != nil {
			s.logger.Error().Err(err).Str("cache_key", key).Msg("station search failed")
			return nil, err
		}

		out := make([]Station, 0, len(found))
		for _, st := range found {
			if st.ID == "" || st.Location.IsZero() {
				continue
			}
			if st.MaxPowerKW == 0 {
				st.MaxPowerKW = MaxConnectorPower(st.Connectors)
			}
			if st.DistanceKm <= 0 {
				st.DistanceKm = geo.Round(geo.DistanceKm(q.Location, st.Location), 2)
			}
			st.EnergySource = ResolveEnergySource(st, s.overrides)
			out = append(out, st)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
		if len(out) > q.Limit {
			out = out[:q.Limit]
		}
		return out, nil
	})
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// queryKey rounds the location to 3 decimals (~110 m).
func queryKey(q Query) string {
	return fmt.Sprintf("%.3f,%.3f:%g:%d", q.Location.Lat, q.Location.Lon, q.RadiusKm, q.Limit)
}
