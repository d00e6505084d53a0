// Package handler provides the HTTP handlers of the trip planning API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/api/response"
	"github.com/chargepath/chargepath/internal/planner"
	"github.com/chargepath/chargepath/internal/stations"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// TripPlanner plans charging trips.
type TripPlanner interface {
	Plan(ctx context.Context, req planner.Request) (*planner.Result, error)
}

// StationFinder searches the charger directory.
type StationFinder interface {
	Nearby(ctx context.Context, q stations.Query) ([]stations.Station, error)
}

// TagSource supplies manual energy-source tags keyed by station ID.
type TagSource interface {
	ManualTags(ctx context.Context) (map[string]stations.EnergySource, error)
}

// decodeJSON reads a single JSON object into dst, writing a 400 problem and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		detail := "invalid JSON body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			detail = "request body is required"
		case errors.As(err, &maxErr):
			detail = "request body too large"
		}
		response.BadRequest(w, r, detail, nil)
		return false
	}
	return true
}

func validate(w http.ResponseWriter, r *http.Request, errs []models.FieldError) bool {
	if len(errs) > 0 {
		response.BadRequest(w, r, "validation failed", errs)
		return false
	}
	return true
}

// manualTags loads tags from src, tolerating a nil source.
func manualTags(ctx context.Context, src TagSource) (map[string]stations.EnergySource, error) {
	if src == nil {
		return nil, nil
	}
	return src.ManualTags(ctx)
}
