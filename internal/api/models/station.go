package models

import (
	"net/url"
	"strconv"

	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/stations"
)

// StationQuery holds the parsed query of GET /v1/stations.
type StationQuery struct {
	Location Point
	RadiusKm float64
	Limit    int
}

// ParseStationQuery reads lat, lon, radiusKm and limit. lat and lon are
// required; radiusKm and limit fall back to the directory defaults and are
// clamped by the directory service.
func ParseStationQuery(v url.Values) (StationQuery, []FieldError) {
	q := StationQuery{RadiusKm: stations.DefaultRadiusKm, Limit: stations.DefaultLimit}
	var errs []FieldError

	floatParam := func(name string, required bool, dst *float64) {
		raw := v.Get(name)
		if raw == "" {
			if required {
				errs = append(errs, FieldError{Field: name, Message: "required", Code: FieldCodeRequired})
			}
			return
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, FieldError{Field: name, Message: "must be a number", Code: FieldCodeInvalid})
			return
		}
		*dst = f
	}
	floatParam("lat", true, &q.Location.Lat)
	floatParam("lon", true, &q.Location.Lon)
	floatParam("radiusKm", false, &q.RadiusKm)

	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "limit", Message: "must be an integer", Code: FieldCodeInvalid})
		} else {
			q.Limit = n
		}
	}

	if len(errs) == 0 {
		errs = q.Location.Validate("location")
	}
	return q, errs
}

// Query converts to a directory query.
func (q StationQuery) Query() stations.Query {
	return stations.Query{Location: q.Location.Coordinate(), RadiusKm: q.RadiusKm, Limit: q.Limit}
}

// PagedStations is the body of GET /v1/stations.
type PagedStations struct {
	Items []energy.Classified `json:"items"`
	Meta  PagedResponseMeta   `json:"meta"`
}
