package models

import (
	"github.com/chargepath/chargepath/internal/energytags"
	"github.com/chargepath/chargepath/internal/planner"
	"github.com/chargepath/chargepath/internal/stations"
)

// Enums lists the enumerated values and fixed thresholds used by the API.
type Enums struct {
	EnergySources          []stations.EnergySource `json:"energySources"`
	PlannerErrorCodes      []planner.Code          `json:"plannerErrorCodes"`
	FastChargerThresholdKW float64                 `json:"fastChargerThresholdKw"`
	ConsumptionKmPerKWh    float64                 `json:"consumptionKmPerKwh"`
	LegBufferFactor        float64                 `json:"legBufferFactor"`
}

// EnergyTag is a curated station energy source.
type EnergyTag struct {
	StationID    string                `json:"stationId"`
	EnergySource stations.EnergySource `json:"energySource"`
	Note         string                `json:"note,omitempty"`
	UpdatedAt    Timestamp             `json:"updatedAt"`
}

// NewEnergyTags converts stored tags.
func NewEnergyTags(tags []*energytags.Tag) []EnergyTag {
	out := make([]EnergyTag, 0, len(tags))
	for _, t := range tags {
		out = append(out, EnergyTag{
			StationID:    t.StationID,
			EnergySource: t.Source,
			Note:         t.Note,
			UpdatedAt:    Timestamp(t.UpdatedAt),
		})
	}
	return out
}

// PagedEnergyTags is the body of GET /v1/metadata/energy-tags.
type PagedEnergyTags struct {
	Items []EnergyTag       `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
