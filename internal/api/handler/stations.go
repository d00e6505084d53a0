package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/api/response"
	"github.com/chargepath/chargepath/internal/energy"
)

// StationsHandler handles charger discovery.
type StationsHandler struct {
	finder StationFinder
	tags   TagSource
	logger zerolog.Logger
}

// NewStationsHandler creates a new StationsHandler. tags may be nil.
func NewStationsHandler(finder StationFinder, tags TagSource, logger zerolog.Logger) *StationsHandler {
	return &StationsHandler{finder: finder, tags: tags, logger: logger}
}

// ListStations handles GET /v1/stations - chargers near a point, nearest
// first, each with its resolved energy source.
func (h *StationsHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	q, errs := models.ParseStationQuery(r.URL.Query())
	if !validate(w, r, errs) {
		return
	}
	query := q.Query().Clamped()

	found, err := h.finder.Nearby(r.Context(), query)
	if err != nil {
		response.PlannerError(w, r, err)
		return
	}

	tags, err := manualTags(r.Context(), h.tags)
	if err != nil {
		h.logger.Warn().Err(err).Msg("manual energy tags unavailable, using inferred sources")
	}

	items := energy.DetectSolarStations(found, tags)
	if items == nil {
		items = []energy.Classified{}
	}
	response.JSON(w, r, http.StatusOK, models.PagedStations{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: query.Limit, Count: len(items)},
	})
}
