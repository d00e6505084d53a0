package openrouteservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/pkg/geo"
)

var (
	mumbai = geo.Coordinate{Lat: 19.0760, Lon: 72.8777}
	pune   = geo.Coordinate{Lat: 18.5204, Lon: 73.8567}
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return b
}

func newTestClient(url, apiKey string) *Client {
	return NewClient(ClientConfig{
		APIKey:     apiKey,
		BaseURL:    url,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Geocode_Success(t *testing.T) {
	body := fixture(t, "geocode_response.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "Pune", r.URL.Query().Get("text"))
		assert.Equal(t, "1", r.URL.Query().Get("size"))
		assert.Equal(t, "mock123", r.Header.Get("Authorization"))
		_, _ = w.Write(body)
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, "mock123").Geocode(context.Background(), "Pune")
	require.NoError(t, err)
	assert.InDelta(t, pune.Lat, got.Lat, 1e-9)
	assert.InDelta(t, pune.Lon, got.Lon, 1e-9)
}

func TestClient_Geocode_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, "mock123").Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, routing.ErrInvalidLocation)
}

func TestClient_MissingCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected without an API key")
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	_, err := client.Geocode(context.Background(), "Pune")
	assert.ErrorIs(t, err, routing.ErrMissingCredentials)

	_, err = client.Directions(context.Background(), mumbai, pune)
	assert.ErrorIs(t, err, routing.ErrMissingCredentials)
}

func TestClient_Directions_Success(t *testing.T) {
	body := fixture(t, "directions_response.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req directionsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Coordinates, 2)
		assert.Equal(t, []float64{mumbai.Lon, mumbai.Lat}, req.Coordinates[0])
		assert.Equal(t, []float64{pune.Lon, pune.Lat}, req.Coordinates[1])

		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	route, err := newTestClient(server.URL, "mock123").Directions(context.Background(), mumbai, pune)
	require.NoError(t, err)

	assert.Equal(t, 148.52, route.DistanceKm)
	assert.Equal(t, ProviderName, route.Provider)
	require.Len(t, route.Geometry, 4)
	assert.Equal(t, mumbai, route.Geometry[0])
	assert.Equal(t, pune, route.Geometry[3])
}

func TestClient_Directions_DistanceFromSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[[72.8,19.0],[73.8,18.5]]},
			"properties":{"segments":[{"distance":1000},{"distance":2345}]}}]}`))
	}))
	defer server.Close()

	route, err := newTestClient(server.URL, "k").Directions(context.Background(), mumbai, pune)
	require.NoError(t, err)
	assert.Equal(t, 3.35, route.DistanceKm)
}

func TestClient_Directions_RouteNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "single point geometry", status: http.StatusOK, body: `{"features":[{"geometry":{"coordinates":[[72.8,19.0]]},"properties":{"summary":{"distance":10}}}]}`},
		{name: "zero distance", status: http.StatusOK, body: `{"features":[{"geometry":{"coordinates":[[72.8,19.0],[72.9,19.1]]},"properties":{"summary":{"distance":0}}}]}`},
		{name: "no features", status: http.StatusOK, body: `{"features":[]}`},
		{name: "ors route-not-found code", status: http.StatusNotFound, body: string(fixture(t, "error_response.json"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL, "k").Directions(context.Background(), mumbai, pune)
			assert.ErrorIs(t, err, routing.ErrRouteNotFound)
		})
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Access to this API has been disallowed"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, "bad-key").Geocode(context.Background(), "Pune")
	require.ErrorIs(t, err, routing.ErrNetwork)

	var rerr *routing.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusForbidden, rerr.StatusCode)
	assert.Contains(t, rerr.Message, "403 Forbidden")
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL, "k").Directions(context.Background(), mumbai, pune)
	assert.ErrorIs(t, err, routing.ErrNetwork)
}
