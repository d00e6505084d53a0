package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/api/middleware"
	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/api/response"
)

// TripHandler handles trip planning.
type TripHandler struct {
	planner TripPlanner
	logger  zerolog.Logger
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(planner TripPlanner, logger zerolog.Logger) *TripHandler {
	return &TripHandler{planner: planner, logger: logger}
}

// PlanTrip handles POST /v1/trips:plan.
func (h *TripHandler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	var input models.PlanTripRequest
	if !decodeJSON(w, r, &input) || !validate(w, r, input.Validate()) {
		return
	}

	res, err := h.planner.Plan(r.Context(), input.PlannerRequest())
	if err != nil {
		response.PlannerError(w, r, err)
		return
	}

	planID := "plan_" + uuid.NewString()
	h.logger.Debug().
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("plan_id", planID).
		Int("stops", len(res.Stops)).
		Msg("plan issued")

	response.JSON(w, r, http.StatusOK, models.PlanTripResponse{PlanID: planID, Result: res})
}
