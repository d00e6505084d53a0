package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/cache"
	"github.com/chargepath/chargepath/pkg/geo"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// GeocodeTTL is how long resolved place names are kept (default: 24 hours).
	GeocodeTTL time.Duration

	// RouteTTL is how long routes are kept (default: 6 hours).
	RouteTTL time.Duration

	// CacheCapacity bounds each in-process cache (default: 2048).
	CacheCapacity int

	// Shared is an optional cross-process cache tier.
	Shared cache.SharedStore

	// Recorder receives cache hit/miss notifications.
	Recorder cache.Recorder
}

// Service fronts a Provider with geocode and route caches.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	geocodes *cache.Memo[geo.Coordinate]
	routes   *cache.Memo[*Route]
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.GeocodeTTL == 0 {
		cfg.GeocodeTTL = 24 * time.Hour
	}
	if cfg.RouteTTL == 0 {
		cfg.RouteTTL = 6 * time.Hour
	}
	if cfg.CacheCapacity == 0 {
		cfg.CacheCapacity = 2048
	}

	name := cfg.Provider.Name()
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		geocodes: cache.NewMemo[geo.Coordinate](cache.Config{
			Provider:  name,
			Operation: "geocode",
			Capacity:  cfg.CacheCapacity,
			TTL:       cfg.GeocodeTTL,
			Shared:    cfg.Shared,
			Recorder:  cfg.Recorder,
			Logger:    cfg.Logger,
		}),
		routes: cache.NewMemo[*Route](cache.Config{
			Provider:  name,
			Operation: "directions",
			Capacity:  cfg.CacheCapacity,
			TTL:       cfg.RouteTTL,
			Shared:    cfg.Shared,
			Recorder:  cfg.Recorder,
			Logger:    cfg.Logger,
		}),
	}
}

// NormalizePlace trims a place name and collapses inner whitespace.
func NormalizePlace(place string) string {
	return strings.Join(strings.Fields(place), " ")
}

// Geocode resolves a place name to a coordinate.
func (s *Service) Geocode(ctx context.Context, place string) (geo.Coordinate, error) {
	norm := NormalizePlace(place)
	if norm == "" {
		return geo.Coordinate{}, &Error{
			Provider: s.provider.Name(),
			Code:     "EMPTY_LOCATION",
			Message:  "location must not be empty",
			Err:      ErrInvalidLocation,
		}
	}

	return s.geocodes.Get(ctx, strings.ToLower(norm), func(ctx context.Context) (geo.Coordinate, error) {
		s.logger.Debug().
			Str("place", norm).
			Str("provider", s.provider.Name()).
			Msg("geocoding place")

		c, err := s.provider.Geocode(ctx, norm)
		if err != nil {
			s.logger.Error().Err(err).Str("place", norm).Msg("failed to geocode place")
			return geo.Coordinate{}, err
		}
		return c, nil
	})
}

// Route returns the driving route between start and destination.
func (s *Service) Route(ctx context.Context, start, destination geo.Coordinate) (*Route, error) {
	key := routeKey(start, destination)
	return s.routes.Get(ctx, key, func(ctx context.Context) (*Route, error) {
		s.logger.Debug().
			Float64("start_lat", start.Lat).
			Float64("start_lon", start.Lon).
			Float64("dest_lat", destination.Lat).
			Float64("dest_lon", destination.Lon).
			Str("provider", s.provider.Name()).
			Msg("fetching route from provider")

		route, err := s.provider.Directions(ctx, start, destination)
		if err != nil {
			s.logger.Error().Err(err).Str("cache_key", key).Msg("failed to fetch route")
			return nil, err
		}
		if len(route.Geometry) < 2 || route.DistanceKm <= 0 {
			return nil, &Error{
				Provider: s.provider.Name(),
				Code:     "EMPTY_ROUTE",
				Message:  "route has no usable geometry or distance",
				Err:      ErrRouteNotFound,
			}
		}

		s.logger.Debug().
			Str("cache_key", key).
			Float64("distance_km", route.DistanceKm).
			Int("points", len(route.Geometry)).
			Msg("cached route")
		return route, nil
	})
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// routeKey rounds both endpoints to 4 decimals (~11 m).
func routeKey(start, destination geo.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f:%.4f,%.4f", start.Lat, start.Lon, destination.Lat, destination.Lon)
}
