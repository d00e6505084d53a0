// Package openchargemap provides a client for the Open Charge Map POI API.
package openchargemap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/provider/resilience"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
)

const (
	// ProviderName identifies this directory provider.
	ProviderName = "openchargemap"

	// DefaultBaseURL is the Open Charge Map API base URL.
	DefaultBaseURL = "https://api.openchargemap.io"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Open Charge Map client.
type ClientConfig struct {
	// APIKey is sent as X-API-Key. Calls fail with stations.ErrMissingCredentials when empty.
	APIKey string

	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Metrics    resilience.RequestRecorder
	Logger     zerolog.Logger
}

// Client is an Open Charge Map API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Open Charge Map client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
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
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Nearby queries POIs around q.Location. The query is clamped before use.
func (c *Client) Nearby(ctx context.Context, q stations.Query) ([]stations.Station, error) {
	if c.apiKey == "" {
		return nil, &stations.Error{
			Provider: ProviderName,
			Code:     "MISSING_CREDENTIALS",
			Message:  "Open Charge Map API key is not configured",
			Err:      stations.ErrMissingCredentials,
		}
	}
	q = q.Clamped()

	params := url.Values{}
	params.Set("output", "json")
	params.Set("latitude", strconv.FormatFloat(q.Location.Lat, 'f', 6, 64))
	params.Set("longitude", strconv.FormatFloat(q.Location.Lon, 'f', 6, 64))
	params.Set("distance", strconv.FormatFloat(q.RadiusKm, 'f', -1, 64))
	params.Set("distanceunit", "km")
	params.Set("maxresults", strconv.Itoa(q.Limit))
	params.Set("compact", "false")
	params.Set("verbose", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v3/poi?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Float64("lat", q.Location.Lat).
		Float64("lon", q.Location.Lon).
		Float64("radius_km", q.RadiusKm).
		Int("limit", q.Limit).
		Msg("requesting POIs from Open Charge Map")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable("REQUEST_FAILED", "failed to reach station directory", 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable("READ_FAILED", "failed to read station directory response", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable("BAD_STATUS",
			fmt.Sprintf("station directory returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			resp.StatusCode, nil)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, unavailable("INVALID_JSON", "station directory returned malformed JSON", resp.StatusCode, err)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, unavailable("NOT_AN_ARRAY", "station directory response is not a list", resp.StatusCode, nil)
	}

	var records []poi
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, unavailable("INVALID_JSON", "station directory records are malformed", resp.StatusCode, err)
	}

	out := make([]stations.Station, 0, len(records))
	for i := range records {
		if st, ok := normalize(&records[i], q.Location); ok {
			out = append(out, st)
		}
	}

	c.logger.Debug().
		Int("records", len(records)).
		Int("stations", len(out)).
		Msg("received POIs from Open Charge Map")
	return out, nil
}

// normalize converts a record, rejecting those without an ID or coordinates.
func normalize(p *poi, origin geo.Coordinate) (stations.Station, bool) {
	if p.ID == 0 || p.AddressInfo == nil || p.AddressInfo.Latitude == nil || p.AddressInfo.Longitude == nil {
		return stations.Station{}, false
	}
	ai := p.AddressInfo
	loc := geo.Coordinate{Lat: *ai.Latitude, Lon: *ai.Longitude}

	connectors := make([]stations.Connector, 0, len(p.Connections))
	for _, conn := range p.Connections {
		c := stations.Connector{Type: "Unknown"}
		if conn.ConnectionType != nil && conn.ConnectionType.Title != "" {
			c.Type = conn.ConnectionType.Title
		}
		if conn.PowerKW != nil {
			c.PowerKW = *conn.PowerKW
		}
		connectors = append(connectors, c)
	}

	st := stations.Station{
		ID:         strconv.Itoa(p.ID),
		Name:       ai.Title,
		Address:    joinNonEmpty(ai.AddressLine1, ai.AddressLine2, ai.Town, ai.StateOrProvince, ai.Postcode),
		Location:   loc,
		Connectors: connectors,
		MaxPowerKW: stations.MaxConnectorPower(connectors),
		Comments:   strings.TrimSpace(p.GeneralComments + " " + ai.AccessComments),
	}
	if p.OperatorInfo != nil {
		st.Operator = p.OperatorInfo.Title
	}
	if ai.Distance != nil {
		st.DistanceKm = geo.Round(*ai.Distance, 2)
	} else {
		st.DistanceKm = geo.Round(geo.DistanceKm(origin, loc), 2)
	}
	st.EnergySource = stations.InferEnergySource(st.Name, st.Operator, st.Comments)
	return st, true
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func unavailable(code, msg string, status int, cause error) error {
	err := stations.ErrDirectoryUnavailable
	if cause != nil {
		err = fmt.Errorf("%w: %w", stations.ErrDirectoryUnavailable, cause)
	}
	return &stations.Error{
		Provider:   ProviderName,
		Code:       code,
		Message:    msg,
		StatusCode: status,
		Err:        err,
	}
}
