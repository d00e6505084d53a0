package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargepath/chargepath/internal/api"
	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/community"
	"github.com/chargepath/chargepath/internal/energytags"
	"github.com/chargepath/chargepath/internal/planner"
	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
)

var (
	bengaluru = geo.Coordinate{Lat: 12.9716, Lon: 77.5946}
	mysuru    = geo.Coordinate{Lat: 12.2958, Lon: 76.6394}
)

// fakeRouter resolves two cities and returns a straight two-point route.
type fakeRouter struct{}

func (fakeRouter) Geocode(_ context.Context, place string) (geo.Coordinate, error) {
	switch place {
	case "Bengaluru":
		return bengaluru, nil
	case "Mysuru":
		return mysuru, nil
	}
	return geo.Coordinate{}, routing.ErrInvalidLocation
}

func (fakeRouter) Route(_ context.Context, a, b geo.Coordinate) (*routing.Route, error) {
	return &routing.Route{DistanceKm: 145.2, DurationSeconds: 10800, Geometry: []geo.Coordinate{a, b}, Provider: "fake"}, nil
}

type fakeFinder struct{}

func (fakeFinder) Nearby(_ context.Context, q stations.Query) ([]stations.Station, error) {
	return []stations.Station{
		{ID: "ocm-1", Name: "Solar Park Chargers", Location: q.Location, MaxPowerKW: 60, DistanceKm: 0.4},
	}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	tags := energytags.NewService(energytags.ServiceConfig{
		Repository: energytags.NewInMemoryRepository(&energytags.Tag{StationID: "ocm-1", Source: stations.SourceHybrid}),
		Logger:     logger,
	})

	return api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2026-01-01T00:00:00Z",
		Logger:    logger,
		Planner: planner.New(planner.Config{
			Router:   fakeRouter{},
			Stations: fakeFinder{},
			Tags:     tags,
			Logger:   logger,
		}),
		Stations: fakeFinder{},
		Tags:     tags,
		TagList:  tags,
		Vehicles: community.StaticSource{},
	})
}

func serve(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthCheck(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodGet, "/v1/ops/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessAndStatus(t *testing.T) {
	router := newTestRouter(t)

	w := serve(t, router, http.MethodGet, "/v1/ops/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, router, http.MethodGet, "/v1/ops/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Empty(t, status.Providers)
}

func TestRouter_PlanTrip_NoChargingNeeded(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodPost, "/v1/trips:plan", map[string]any{
		"startLocation":         "Bengaluru",
		"destination":           "Mysuru",
		"evMaxRangeKm":          300,
		"currentBatteryPercent": 80,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.PlanTripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.PlanID)
	require.NotNil(t, res.Result)
	assert.False(t, res.RequiresCharging)
	assert.Equal(t, 240.0, res.UsableRangeKm)
	assert.Empty(t, res.Stops)
	assert.Equal(t, 50.0, res.Sustainability.Score)
}

func TestRouter_PlanTrip_WithStop(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodPost, "/v1/trips:plan", map[string]any{
		"startLocation":         "Bengaluru",
		"destination":           "Mysuru",
		"evMaxRangeKm":          200,
		"currentBatteryPercent": 50,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.PlanTripResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.RequiresCharging)
	assert.Equal(t, 90.0, res.LegRangeKm)
	require.Len(t, res.Stops, 1)
	assert.Equal(t, "ocm-1", res.Stops[0].Station.ID)
	assert.Equal(t, stations.SourceHybrid, res.Stops[0].Cost.EnergySource)
	assert.Equal(t, 100.0, res.Sustainability.Score)
}

func TestRouter_PlanTrip_UnknownPlace(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodPost, "/v1/trips:plan", map[string]any{
		"startLocation":         "Atlantis",
		"destination":           "Mysuru",
		"evMaxRangeKm":          300,
		"currentBatteryPercent": 80,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, "invalid-location", problem.Code)
	assert.Equal(t, "/v1/trips:plan", problem.Instance)
	assert.Contains(t, problem.Detail, "Atlantis")
}

func TestRouter_PlanTrip_ValidationError(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodPost, "/v1/trips:plan", map[string]any{
		"startLocation": "Bengaluru",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Len(t, problem.Errors, 3)
}

func TestRouter_PlanTrip_RejectsNonJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/trips:plan", bytes.NewBufferString("start=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_ListStations(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodGet, "/v1/stations?lat=12.97&lon=77.59", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page models.PagedStations
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, stations.SourceHybrid, page.Items[0].EnergySource)
	assert.Equal(t, stations.DefaultLimit, page.Meta.Limit)
}

func TestRouter_EstimateCharging(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodPost, "/v1/charging:estimate", map[string]any{
		"energyKwh": 20,
		"stationId": "ocm-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var est models.ChargingEstimateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &est))
	assert.True(t, est.ManualTag)
	assert.Equal(t, stations.SourceHybrid, est.EnergySource)
	assert.Equal(t, 9.6, est.EffectivePricePerKWh)
	assert.Equal(t, 192.0, est.TotalCost)
}

func TestRouter_SimulateRescue_NoDonors(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodPost, "/v1/rescue:simulate", map[string]any{
		"location":       map[string]float64{"lat": 12.5, "lon": 77.0},
		"routeDirection": "bengaluru to mysuru",
		"batteryPercent": 4,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var sim models.RescueSimulationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sim))
	assert.True(t, sim.Assessment.IsCritical)
	assert.False(t, sim.Assessment.ShouldTriggerRescue)
	assert.Empty(t, sim.Candidates)
	assert.False(t, sim.Outcome.RescueFound)
	assert.Equal(t, community.ReasonNoVehicle, sim.Outcome.Reason)
}

func TestRouter_Metadata(t *testing.T) {
	router := newTestRouter(t)

	w := serve(t, router, http.MethodGet, "/v1/metadata/enums", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var enums models.Enums
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enums))
	assert.Contains(t, enums.EnergySources, stations.SourceSolar)
	assert.Len(t, enums.PlannerErrorCodes, 6)

	w = serve(t, router, http.MethodGet, "/v1/metadata/energy-tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tags models.PagedEnergyTags
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tags))
	require.Len(t, tags.Items, 1)
	assert.Equal(t, "ocm-1", tags.Items[0].StationID)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodGet, "/v1/ops/health", nil)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	newTestRouter(t).ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodGet, "/v1/nonexistent", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	w := serve(t, newTestRouter(t), http.MethodGet, "/v1/trips:plan", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "method-not-allowed")
}

func TestRouter_PlanningIsRateLimited(t *testing.T) {
	router := newTestRouter(t)
	body := map[string]any{"startLocation": "Bengaluru"}

	for i := 0; i < 10; i++ {
		w := serve(t, router, http.MethodPost, "/v1/trips:plan", body)
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := serve(t, router, http.MethodPost, "/v1/trips:plan", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
