package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/api/response"
	"github.com/chargepath/chargepath/internal/community"
	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/stations"
)

// RescueHandlerConfig configures a RescueHandler.
type RescueHandlerConfig struct {
	Stations StationFinder

	// Vehicles simulates donors when a request brings none (default: a
	// SyntheticSource).
	Vehicles community.VehicleSource

	// SearchRadiusKm decides whether a charger counts as nearby (default: 30).
	SearchRadiusKm float64

	// ReachRadiusKm bounds the search for a charger to head for after the
	// transfer (default: 100).
	ReachRadiusKm float64

	Logger zerolog.Logger
}

// RescueHandler simulates community reverse charging.
type RescueHandler struct {
	stations     StationFinder
	vehicles     community.VehicleSource
	searchRadius float64
	reachRadius  float64
	logger       zerolog.Logger
}

// NewRescueHandler creates a new RescueHandler.
func NewRescueHandler(cfg RescueHandlerConfig) *RescueHandler {
	if cfg.Vehicles == nil {
		cfg.Vehicles = community.NewSyntheticSource(community.SyntheticConfig{})
	}
	if cfg.SearchRadiusKm <= 0 {
		cfg.SearchRadiusKm = stations.DefaultRadiusKm
	}
	if cfg.ReachRadiusKm <= 0 {
		cfg.ReachRadiusKm = 100
	}
	return &RescueHandler{
		stations:     cfg.Stations,
		vehicles:     cfg.Vehicles,
		searchRadius: cfg.SearchRadiusKm,
		reachRadius:  cfg.ReachRadiusKm,
		logger:       cfg.Logger,
	}
}

// SimulateRescue handles POST /v1/rescue:simulate. It assesses the stranding
// point, ranks donors heading the same way and simulates a transfer from the
// best one.
func (h *RescueHandler) SimulateRescue(w http.ResponseWriter, r *http.Request) {
	var input models.RescueSimulationRequest
	if !decodeJSON(w, r, &input) || !validate(w, r, input.Validate()) {
		return
	}
	ctx := r.Context()
	at := input.Location.Coordinate()

	reachable, err := h.stations.Nearby(ctx, stations.Query{Location: at, RadiusKm: h.reachRadius, Limit: stations.MaxLimit})
	if err != nil {
		response.PlannerError(w, r, err)
		return
	}
	nearby := 0
	for _, s := range reachable {
		if s.DistanceKm <= h.searchRadius {
			nearby++
		}
	}
	assessment := energy.DetectOutOfCharge(energy.Scenario{
		BatteryPercent:      input.BatteryPercent,
		NearbyStationsCount: nearby,
		RadiusKm:            h.searchRadius,
	})

	donors := input.DonorVehicles()
	if len(donors) == 0 {
		if donors, err = h.vehicles.Vehicles(ctx, at, input.RouteDirection); err != nil {
			response.InternalError(w, r, "could not simulate donor vehicles")
			return
		}
	}

	matches := community.FindNearbyRescueVehicles(at, input.RouteDirection, donors, community.MatchOptions{})
	candidates := make([]community.Vehicle, len(matches))
	for i, m := range matches {
		candidates[i] = m.Vehicle
	}

	outcome := community.SimulateReverseCharging(community.TransferRequest{
		Receiver: community.Receiver{
			Location:       at,
			BatteryPercent: input.BatteryPercent,
			CapacityKWh:    input.CapacityKWh,
		},
		Candidates:       candidates,
		Stations:         reachable,
		OneRescuePerTrip: true,
		AlreadyRescued:   input.AlreadyRescued,
	})

	h.logger.Debug().
		Int("donors", len(donors)).
		Int("matches", len(matches)).
		Bool("rescue_found", outcome.RescueFound).
		Msg("rescue simulated")

	if matches == nil {
		matches = []community.Match{}
	}
	response.JSON(w, r, http.StatusOK, models.RescueSimulationResponse{
		Assessment: assessment,
		Candidates: matches,
		Outcome:    outcome,
	})
}
