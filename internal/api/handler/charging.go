package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/api/response"
	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/stations"
)

// ChargingHandler prices charging sessions.
type ChargingHandler struct {
	tariff energy.Tariff
	tags   TagSource
	logger zerolog.Logger
}

// NewChargingHandler creates a new ChargingHandler. tags may be nil.
func NewChargingHandler(tariff energy.Tariff, tags TagSource, logger zerolog.Logger) *ChargingHandler {
	return &ChargingHandler{tariff: tariff, tags: tags, logger: logger}
}

// EstimateCost handles POST /v1/charging:estimate.
func (h *ChargingHandler) EstimateCost(w http.ResponseWriter, r *http.Request) {
	var input models.ChargingEstimateRequest
	if !decodeJSON(w, r, &input) || !validate(w, r, input.Validate()) {
		return
	}

	tariff := h.tariff
	if input.BaseTariff != nil {
		tariff.BasePerKWh = *input.BaseTariff
	}

	station := stations.Station{ID: input.StationID, EnergySource: input.EnergySource}
	tagged := false
	if input.StationID != "" {
		tags, err := manualTags(r.Context(), h.tags)
		if err != nil {
			h.logger.Warn().Err(err).Str("station_id", input.StationID).Msg("manual energy tags unavailable")
		}
		if src, ok := tags[input.StationID]; ok {
			station.EnergySource = src
			tagged = true
		}
	}

	response.JSON(w, r, http.StatusOK, models.ChargingEstimateResponse{
		StationID: input.StationID,
		ManualTag: tagged,
		Cost:      energy.CalculateChargingCost(input.EnergyKWh, station, tariff),
	})
}
