package energytags

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/stations"
)

// ServiceConfig holds configuration for the energy tag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // How long the tag table is kept in memory (default: 1 minute)
}

// Service serves manual tags with a short-lived in-memory snapshot.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration

	mu          sync.RWMutex
	snapshot    map[string]stations.EnergySource
	cacheExpiry time.Time
}

// NewService creates a new energy tag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
	}
}

// ManualTags returns station ID to energy source for every stored tag.
// Callers must not modify the returned map.
func (s *Service) ManualTags(ctx context.Context) (map[string]stations.EnergySource, error) {
	s.mu.RLock()
	if s.snapshot != nil && time.Now().Before(s.cacheExpiry) {
		snap := s.snapshot
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]stations.EnergySource, len(tags))
	for id, t := range tags {
		if t.Source.Valid() {
			snap[id] = t.Source
		}
	}

	s.mu.Lock()
	s.snapshot = snap
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(snap)).Msg("energy tags loaded")
	return snap, nil
}

// List returns all tags ordered by station ID.
func (s *Service) List(ctx context.Context) ([]*Tag, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out, nil
}

// Get returns the tag for one station.
func (s *Service) Get(ctx context.Context, stationID string) (*Tag, error) {
	return s.repo.GetTag(ctx, stationID)
}

// Set validates and stores tags atomically.
func (s *Service) Set(ctx context.Context, tags ...*Tag) error {
	for _, t := range tags {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	var err error
	if len(tags) == 1 {
		err = s.repo.SetTag(ctx, tags[0])
	} else {
		err = s.repo.SetTags(ctx, tags)
	}
	if err != nil {
		return err
	}

	s.InvalidateCache()
	s.logger.Info().Int("count", len(tags)).Msg("energy tags updated")
	return nil
}

// Delete removes a station's tag.
func (s *Service) Delete(ctx context.Context, stationID string) error {
	if err := s.repo.DeleteTag(ctx, stationID); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// InvalidateCache forces the next ManualTags call to reload.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.cacheExpiry = time.Time{}
}
