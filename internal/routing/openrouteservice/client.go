// Package openrouteservice provides a geocoding and driving directions client
// for the OpenRouteService API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/provider/resilience"
	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/pkg/geo"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultProfile is the driving profile used for EV routes.
	DefaultProfile = "driving-car"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	// APIKey is the ORS API key. Calls fail with routing.ErrMissingCredentials when empty.
	APIKey string

	// BaseURL is the API base URL (optional, defaults to ORS API).
	BaseURL string

	// Profile is the directions profile (optional, defaults to driving-car).
	Profile string

	// Country restricts geocoding to an ISO 3166 alpha-2/3 code (optional).
	Country string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Metrics records provider call latency (optional).
	Metrics resilience.RequestRecorder

	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	profile    string
	country    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Profile == "" {
		cfg.Profile = DefaultProfile
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = cfg.Timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Metrics = cfg.Metrics
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		profile:    cfg.Profile,
		country:    cfg.Country,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Geocode returns the best match for place.
func (c *Client) Geocode(ctx context.Context, place string) (geo.Coordinate, error) {
	if c.apiKey == "" {
		return geo.Coordinate{}, missingCredentials()
	}

	q := url.Values{}
	q.Set("text", place)
	q.Set("size", "1")
	if c.country != "" {
		q.Set("boundary.country", c.country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")

	c.logger.Debug().Str("place", place).Msg("requesting geocode from ORS")

	var fc featureCollection
	if err := c.do(req, &fc); err != nil {
		return geo.Coordinate{}, err
	}

	if len(fc.Features) == 0 || len(fc.Features[0].Geometry.Coordinates) == 0 ||
		len(fc.Features[0].Geometry.Coordinates[0]) < 2 {
		return geo.Coordinate{}, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_MATCH",
			Message:  fmt.Sprintf("no match for %q", place),
			Err:      routing.ErrInvalidLocation,
		}
	}

	// GeoJSON order is [lon, lat]
	pair := fc.Features[0].Geometry.Coordinates[0]
	return geo.Coordinate{Lat: pair[1], Lon: pair[0]}, nil
}

// Directions returns the driving route between start and destination.
func (c *Client) Directions(ctx context.Context, start, destination geo.Coordinate) (*routing.Route, error) {
	if c.apiKey == "" {
		return nil, missingCredentials()
	}

	body, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{
			{start.Lon, start.Lat},
			{destination.Lon, destination.Lat},
		},
		Units: "m",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", c.baseURL, c.profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")

	c.logger.Debug().
		Str("profile", c.profile).
		Float64("start_lat", start.Lat).
		Float64("start_lon", start.Lon).
		Float64("dest_lat", destination.Lat).
		Float64("dest_lon", destination.Lon).
		Msg("requesting directions from ORS")

	var fc featureCollection
	if err := c.do(req, &fc); err != nil {
		return nil, err
	}

	route := toRoute(fc)
	if len(route.Geometry) < 2 || route.DistanceKm <= 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "directions response has no usable geometry or distance",
			Err:      routing.ErrRouteNotFound,
		}
	}

	c.logger.Debug().
		Float64("distance_km", route.DistanceKm).
		Int("points", len(route.Geometry)).
		Msg("received directions from ORS")
	return route, nil
}

// do executes req and decodes a 200 response into out.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrNetwork, err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "READ_FAILED",
			Message:  "failed to read routing provider response",
			Err:      fmt.Errorf("%w: %w", routing.ErrNetwork, err),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &routing.Error{
			Provider:   ProviderName,
			Code:       "INVALID_JSON",
			Message:    "routing provider returned malformed JSON",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %w", routing.ErrNetwork, err),
		}
	}
	return nil
}

// handleErrorResponse maps ORS error responses to domain errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var orsErr errorResponse
	_ = json.Unmarshal(body, &orsErr)

	if orsErr.Error.Code == orsErrorCodeRouteNotFound {
		return &routing.Error{
			Provider:   ProviderName,
			Code:       "NO_ROUTE",
			Message:    orsErr.Error.Message,
			StatusCode: statusCode,
			Err:        routing.ErrRouteNotFound,
		}
	}

	return &routing.Error{
		Provider:   ProviderName,
		Code:       fmt.Sprintf("HTTP_%d", statusCode),
		Message:    fmt.Sprintf("routing provider returned %d %s", statusCode, http.StatusText(statusCode)),
		StatusCode: statusCode,
		Err:        routing.ErrNetwork,
	}
}

// toRoute converts the first directions feature to a domain route. Distance
// comes from the summary or, failing that, the sum of the segments.
func toRoute(fc featureCollection) *routing.Route {
	route := &routing.Route{
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
	if len(fc.Features) == 0 {
		return route
	}

	f := fc.Features[0]
	route.Geometry = make([]geo.Coordinate, 0, len(f.Geometry.Coordinates))
	for _, pair := range f.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		route.Geometry = append(route.Geometry, geo.Coordinate{Lat: pair[1], Lon: pair[0]})
	}

	var meters, seconds float64
	if f.Properties.Summary != nil {
		meters = f.Properties.Summary.Distance
		seconds = f.Properties.Summary.Duration
	}
	if meters == 0 {
		for _, seg := range f.Properties.Segments {
			meters += seg.Distance
			seconds += seg.Duration
		}
	}

	route.DistanceKm = geo.Round(meters/1000, 2)
	route.DurationSeconds = seconds
	return route
}

func missingCredentials() error {
	return &routing.Error{
		Provider: ProviderName,
		Code:     "MISSING_CREDENTIALS",
		Message:  "OpenRouteService API key is not configured",
		Err:      routing.ErrMissingCredentials,
	}
}
