package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/internal/worker"
	"github.com/chargepath/chargepath/pkg/geo"
)

// fakeRouter places cities on a meridian, one degree of latitude apart
// (about 111 km).
type fakeRouter struct {
	mu     sync.Mutex
	places map[string]geo.Coordinate
	routes int
	err    error
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{places: map[string]geo.Coordinate{
		"Alpha": {Lat: 10, Lon: 77},
		"Beta":  {Lat: 11, Lon: 77},
		"Gamma": {Lat: 12, Lon: 77},
	}}
}

func (f *fakeRouter) Geocode(_ context.Context, place string) (geo.Coordinate, error) {
	c, ok := f.places[place]
	if !ok {
		return geo.Coordinate{}, routing.ErrInvalidLocation
	}
	return c, nil
}

func (f *fakeRouter) Route(_ context.Context, a, b geo.Coordinate) (*routing.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes++
	if f.err != nil {
		return nil, f.err
	}
	return &routing.Route{Geometry: []geo.Coordinate{a, b}, DistanceKm: geo.RouteLengthKm([]geo.Coordinate{a, b})}, nil
}

type fakeFinder struct {
	mu      sync.Mutex
	queries []stations.Query
	err     error
}

func (f *fakeFinder) Nearby(_ context.Context, q stations.Query) ([]stations.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return nil, f.err
}

func newJob(router worker.Router, finder worker.StationFinder, corridors ...worker.Corridor) *worker.RefreshJob {
	return worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Corridors: corridors, SpacingKm: 40, Concurrency: 2},
		Router:   router,
		Stations: finder,
		Logger:   zerolog.Nop(),
	})
}

func TestParseCorridor(t *testing.T) {
	tests := []struct {
		in      string
		want    worker.Corridor
		wantErr bool
	}{
		{in: "Bengaluru>Mysuru", want: worker.Corridor{Start: "Bengaluru", Destination: "Mysuru"}},
		{in: "  New Delhi > Agra ", want: worker.Corridor{Start: "New Delhi", Destination: "Agra"}},
		{in: "Bengaluru", wantErr: true},
		{in: ">Mysuru", wantErr: true},
		{in: "Bengaluru> ", wantErr: true},
		{in: "A>B>C", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := worker.ParseCorridor(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, worker.ErrInvalidCorridor)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Start+">"+tt.want.Destination, got.String())
		})
	}
}

func TestParseCorridors_StopsOnFirstError(t *testing.T) {
	_, err := worker.ParseCorridors([]string{"A>B", "broken"})
	assert.ErrorIs(t, err, worker.ErrInvalidCorridor)

	got, err := worker.ParseCorridors(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, float64(stations.DefaultRadiusKm), cfg.RadiusKm)
	assert.Equal(t, stations.DefaultLimit, cfg.Limit)
	assert.NotEmpty(t, cfg.Corridors)
}

func TestNewRefreshJob_DefaultsCorridors(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{Logger: zerolog.Nop()})
	assert.Equal(t, worker.DefaultCorridors(), job.Corridors())
}

func TestSamplePoints(t *testing.T) {
	route := []geo.Coordinate{{Lat: 10, Lon: 77}, {Lat: 11, Lon: 77}}

	points := worker.SamplePoints(route, 40)

	// ~111 km: samples at 40 and 80 km, then the destination.
	require.Len(t, points, 3)
	assert.InDelta(t, 40, geo.DistanceKm(route[0], points[0]), 0.5)
	assert.InDelta(t, 80, geo.DistanceKm(route[0], points[1]), 0.5)
	assert.Equal(t, route[1], points[2])

	assert.Nil(t, worker.SamplePoints(nil, 40))
	assert.Nil(t, worker.SamplePoints(route, 0))
}

func TestRefreshJob_Run(t *testing.T) {
	router := newFakeRouter()
	finder := &fakeFinder{}
	job := newJob(router, finder,
		worker.Corridor{Start: "Alpha", Destination: "Beta"},
		worker.Corridor{Start: "Beta", Destination: "Gamma"},
	)

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalCorridors)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 6, result.StationSearches)
	assert.Len(t, finder.queries, 6)
	for _, q := range finder.queries {
		assert.Equal(t, float64(stations.DefaultRadiusKm), q.RadiusKm)
		assert.Equal(t, stations.DefaultLimit, q.Limit)
	}

	m := job.GetMetrics()
	assert.Equal(t, int64(1), m.TotalRuns)
	assert.Equal(t, int64(2), m.CorridorsWarmed)
	assert.Equal(t, int64(6), m.StationSearches)
	assert.False(t, m.LastRefreshAt.IsZero())
}

func TestRefreshJob_FailuresAreIsolated(t *testing.T) {
	router := newFakeRouter()
	finder := &fakeFinder{}
	job := newJob(router, finder,
		worker.Corridor{Start: "Alpha", Destination: "Beta"},
		worker.Corridor{Start: "Alpha", Destination: "Nowhere"},
	)

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, worker.StageGeocode, result.Errors[0].Stage)
	assert.Equal(t, "Nowhere", result.Errors[0].Corridor.Destination)
}

func TestRefreshJob_RouteAndStationErrors(t *testing.T) {
	router := newFakeRouter()
	router.err = routing.ErrRouteNotFound
	job := newJob(router, &fakeFinder{}, worker.Corridor{Start: "Alpha", Destination: "Beta"})

	result := job.Run(context.Background())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, worker.StageRoute, result.Errors[0].Stage)

	finder := &fakeFinder{err: errors.New("directory down")}
	job = newJob(newFakeRouter(), finder, worker.Corridor{Start: "Alpha", Destination: "Beta"})

	result = job.Run(context.Background())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, worker.StageStations, result.Errors[0].Stage)
	assert.Contains(t, result.Errors[0].Error, "directory down")
	assert.Len(t, finder.queries, 1, "a failing corridor stops after the first station error")
}

func TestRefreshJob_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := newJob(newFakeRouter(), &fakeFinder{}, worker.Corridor{Start: "Alpha", Destination: "Beta"})
	result := job.Run(ctx)

	assert.Equal(t, 1, result.TotalCorridors)
	assert.LessOrEqual(t, result.Successful+result.Failed, 1)
}

func TestRefreshJob_MetricsSnapshot(t *testing.T) {
	job := newJob(newFakeRouter(), &fakeFinder{}, worker.Corridor{Start: "Alpha", Destination: "Beta"})
	job.Run(context.Background())
	job.Run(context.Background())

	snap := job.MetricsSnapshot()
	assert.Equal(t, int64(2), snap["total_runs"])
	assert.Equal(t, int64(2), snap["corridors_warmed"])
	assert.Contains(t, snap, "last_refresh_duration")
}

func TestDispatcher_Handle(t *testing.T) {
	router := newFakeRouter()
	job := newJob(router, &fakeFinder{},
		worker.Corridor{Start: "Alpha", Destination: "Beta"},
		worker.Corridor{Start: "Beta", Destination: "Gamma"},
	)
	d := worker.NewDispatcher(job, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, d.Handle(ctx, []byte(`{"job_type":"corridor_refresh"}`)))
	assert.Equal(t, 2, router.routes)

	require.NoError(t, d.Handle(ctx, []byte(`{"job_type":"corridor_refresh","corridors":["Gamma>Alpha"]}`)))
	assert.Equal(t, 3, router.routes)

	require.NoError(t, d.Handle(ctx, []byte(`{"job_type":"health_check"}`)))
	assert.Equal(t, 4, router.routes)

	assert.ErrorIs(t, d.Handle(ctx, []byte(`{"job_type":"alerts"}`)), worker.ErrUnknownJob)
	assert.ErrorIs(t, d.Handle(ctx, []byte(`not json`)), worker.ErrUnknownJob)
	assert.ErrorIs(t, d.Handle(ctx, []byte(`{"job_type":"corridor_refresh","corridors":["bad"]}`)), worker.ErrUnknownJob)
}

func TestDispatcher_MostlyFailedRunIsRetried(t *testing.T) {
	job := newJob(newFakeRouter(), &fakeFinder{},
		worker.Corridor{Start: "Alpha", Destination: "Nowhere"},
		worker.Corridor{Start: "Nowhere", Destination: "Beta"},
		worker.Corridor{Start: "Alpha", Destination: "Beta"},
	)
	d := worker.NewDispatcher(job, zerolog.Nop())

	err := d.Handle(context.Background(), []byte(`{"job_type":"corridor_refresh"}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, worker.ErrUnknownJob)
	assert.Contains(t, err.Error(), "2/3")
}
