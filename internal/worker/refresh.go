package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
)

// Router resolves places and routes between them.
type Router interface {
	Geocode(ctx context.Context, place string) (geo.Coordinate, error)
	Route(ctx context.Context, start, destination geo.Coordinate) (*routing.Route, error)
}

// StationFinder searches chargers around a point.
type StationFinder interface {
	Nearby(ctx context.Context, q stations.Query) ([]stations.Station, error)
}

// Stages of a corridor refresh, used in RefreshError.
const (
	StageGeocode  = "geocode"
	StageRoute    = "route"
	StageStations = "stations"
)

// RefreshJob warms geocode, route and station caches along corridors.
type RefreshJob struct {
	config   RefreshConfig
	router   Router
	stations StationFinder
	logger   zerolog.Logger

	mu      sync.RWMutex
	metrics RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	TotalRuns           int64
	CorridorsWarmed     int64
	CorridorsFailed     int64
	StationSearches     int64
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config   RefreshConfig
	Router   Router
	Stations StationFinder
	Logger   zerolog.Logger
}

// NewRefreshJob creates a new corridor refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:   cfg.Config.withDefaults(),
		router:   cfg.Router,
		stations: cfg.Stations,
		logger:   cfg.Logger,
	}
}

// Corridors returns the configured corridors.
func (j *RefreshJob) Corridors() []Corridor {
	return j.config.Corridors
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	TotalCorridors  int
	Successful      int
	Failed          int
	StationSearches int
	Errors          []RefreshError
}

// RefreshError describes one failed corridor.
type RefreshError struct {
	Corridor Corridor
	Stage    string
	Error    string
}

// Run warms every configured corridor.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	return j.RunCorridors(ctx, j.config.Corridors)
}

// RunCorridors warms the given corridors with the configured concurrency.
// A failed corridor never stops the others.
func (j *RefreshJob) RunCorridors(ctx context.Context, corridors []Corridor) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:      startTime,
		TotalCorridors: len(corridors),
	}

	j.logger.Info().
		Int("corridors", len(corridors)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting corridor refresh")

	work := make(chan Corridor)
	results := make(chan corridorResult, len(corridors))

	var wg sync.WaitGroup
	for range min(j.config.Concurrency, max(1, len(corridors))) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				results <- j.refreshCorridor(ctx, c)
			}
		}()
	}

send:
	for _, c := range corridors {
		select {
		case work <- c:
		case <-ctx.Done():
			break send
		}
	}
	close(work)
	wg.Wait()
	close(results)

	for cr := range results {
		result.StationSearches += cr.searches
		if cr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, *cr.err)
			continue
		}
		result.Successful++
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("station_searches", result.StationSearches).
		Msg("corridor refresh completed")

	return result
}

type corridorResult struct {
	searches int
	err      *RefreshError
}

func (j *RefreshJob) refreshCorridor(ctx context.Context, c Corridor) corridorResult {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	fail := func(stage string, err error) corridorResult {
		j.logger.Warn().Err(err).Stringer("corridor", c).Str("stage", stage).Msg("corridor refresh failed")
		return corridorResult{err: &RefreshError{Corridor: c, Stage: stage, Error: err.Error()}}
	}

	// Names are normalized the same way the planner does so cache keys line up.
	start, err := j.router.Geocode(ctx, routing.NormalizePlace(c.Start))
	if err != nil {
		return fail(StageGeocode, err)
	}
	dest, err := j.router.Geocode(ctx, routing.NormalizePlace(c.Destination))
	if err != nil {
		return fail(StageGeocode, err)
	}
	route, err := j.router.Route(ctx, start, dest)
	if err != nil {
		return fail(StageRoute, err)
	}

	var res corridorResult
	for _, p := range SamplePoints(route.Geometry, j.config.SpacingKm) {
		if _, err := j.stations.Nearby(ctx, stations.Query{
			Location: p,
			RadiusKm: j.config.RadiusKm,
			Limit:    j.config.Limit,
		}); err != nil {
			failed := fail(StageStations, fmt.Errorf("near %.4f,%.4f: %w", p.Lat, p.Lon, err))
			failed.searches = res.searches
			return failed
		}
		res.searches++
	}
	return res
}

// SamplePoints returns points every spacingKm along route, excluding the
// start and including the end.
func SamplePoints(route []geo.Coordinate, spacingKm float64) []geo.Coordinate {
	if len(route) == 0 || spacingKm <= 0 {
		return nil
	}
	total := geo.RouteLengthKm(route)
	var out []geo.Coordinate
	for d := spacingKm; d < total; d += spacingKm {
		out = append(out, geo.PointAtDistance(route, d))
	}
	return append(out, route[len(route)-1])
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.CorridorsWarmed += int64(result.Successful)
	j.metrics.CorridorsFailed += int64(result.Failed)
	j.metrics.StationSearches += int64(result.StationSearches)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.metrics
}

// MetricsSnapshot returns the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":            m.TotalRuns,
		"corridors_warmed":      m.CorridorsWarmed,
		"corridors_failed":      m.CorridorsFailed,
		"station_searches":      m.StationSearches,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
