package models

import (
	"math"

	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/stations"
)

// ChargingEstimateRequest is the body of POST /v1/charging:estimate.
type ChargingEstimateRequest struct {
	EnergyKWh float64 `json:"energyKwh"`

	// StationID lets a manual energy tag decide the source.
	StationID string `json:"stationId,omitempty"`

	// EnergySource is used when no manual tag matches (default: grid).
	EnergySource stations.EnergySource `json:"energySource,omitempty"`

	// BaseTariff overrides the configured base price per kWh.
	BaseTariff *float64 `json:"baseTariff,omitempty"`
}

// Validate returns one FieldError per invalid field.
func (r *ChargingEstimateRequest) Validate() []FieldError {
	var errs []FieldError
	if !(r.EnergyKWh >= 0) || math.IsInf(r.EnergyKWh, 0) {
		errs = append(errs, FieldError{Field: "energyKwh", Message: "must be zero or a positive number", Code: FieldCodeOutOfRange})
	}
	if r.EnergySource != "" && !r.EnergySource.Valid() {
		errs = append(errs, FieldError{Field: "energySource", Message: "must be one of solar, hybrid, grid", Code: FieldCodeInvalid})
	}
	if r.BaseTariff != nil && !(*r.BaseTariff > 0) {
		errs = append(errs, FieldError{Field: "baseTariff", Message: "must be a positive number", Code: FieldCodeOutOfRange})
	}
	return errs
}

// ChargingEstimateResponse is a priced session.
type ChargingEstimateResponse struct {
	StationID string `json:"stationId,omitempty"`

	// ManualTag reports whether a curated tag decided the energy source.
	ManualTag bool `json:"manualTag"`
	energy.Cost
}
