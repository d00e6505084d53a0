package openchargemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
)

var khopoli = geo.Coordinate{Lat: 18.7852, Lon: 73.3456}

func newTestClient(url, apiKey string) *Client {
	return NewClient(ClientConfig{
		APIKey:     apiKey,
		BaseURL:    url,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Nearby_Success(t *testing.T) {
	body, err := os.ReadFile("testdata/poi_response.json")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/poi", r.URL.Path)
		assert.Equal(t, "ocm-key", r.Header.Get("X-API-Key"))

		q := r.URL.Query()
		assert.Equal(t, "18.785200", q.Get("latitude"))
		assert.Equal(t, "73.345600", q.Get("longitude"))
		assert.Equal(t, "30", q.Get("distance"))
		assert.Equal(t, "km", q.Get("distanceunit"))
		assert.Equal(t, "25", q.Get("maxresults"))
		_, _ = w.Write(body)
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, "ocm-key").Nearby(context.Background(), stations.Query{
		Location: khopoli, RadiusKm: 30, Limit: 25,
	})
	require.NoError(t, err)
	require.Len(t, got, 3, "records without id or coordinates are dropped")

	lonavala := got[0]
	assert.Equal(t, "201", lonavala.ID)
	assert.Equal(t, "Old Mumbai-Pune Highway, Lonavala, Maharashtra, 410401", lonavala.Address)
	assert.Equal(t, 60.0, lonavala.MaxPowerKW)
	assert.Equal(t, 12.35, lonavala.DistanceKm)
	assert.Equal(t, "Tata Power", lonavala.Operator)
	assert.Equal(t, stations.SourceSolar, lonavala.EnergySource)
	require.Len(t, lonavala.Connectors, 2)
	assert.Equal(t, "CCS (Type 2)", lonavala.Connectors[0].Type)

	foodMall := got[1]
	assert.Equal(t, stations.SourceHybrid, foodMall.EnergySource)
	assert.Equal(t, "Unknown", foodMall.Connectors[0].Type)

	noConnectors := got[2]
	assert.Zero(t, noConnectors.MaxPowerKW)
	assert.Equal(t, stations.SourceGrid, noConnectors.EnergySource)
	assert.InDelta(t, geo.DistanceKm(khopoli, noConnectors.Location), noConnectors.DistanceKm, 0.01)
}

func TestClient_Nearby_ClampsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "500", r.URL.Query().Get("distance"))
		assert.Equal(t, "1", r.URL.Query().Get("maxresults"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	got, err := newTestClient(server.URL, "k").Nearby(context.Background(), stations.Query{
		Location: khopoli, RadiusKm: 9000, Limit: -3,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClient_Nearby_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{name: "non-ok status", status: http.StatusUnauthorized, body: `{"error":"bad key"}`, code: "BAD_STATUS"},
		{name: "invalid json", status: http.StatusOK, body: `[{"ID":`, code: "INVALID_JSON"},
		{name: "object instead of array", status: http.StatusOK, body: `{"ID": 1}`, code: "NOT_AN_ARRAY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL, "k").Nearby(context.Background(), stations.Query{Location: khopoli, RadiusKm: 10, Limit: 5})
			require.ErrorIs(t, err, stations.ErrDirectoryUnavailable)

			var serr *stations.Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.code, serr.Code)
		})
	}
}

func TestClient_Nearby_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL, "k").Nearby(context.Background(), stations.Query{Location: khopoli})
	assert.ErrorIs(t, err, stations.ErrDirectoryUnavailable)
}

func TestClient_Nearby_MissingCredentials(t *testing.T) {
	_, err := newTestClient("http://unused.invalid", "").Nearby(context.Background(), stations.Query{Location: khopoli})
	assert.ErrorIs(t, err, stations.ErrMissingCredentials)
}
