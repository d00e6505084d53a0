package handler

import (
	"context"
	"net/http"

	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/api/response"
	"github.com/chargepath/chargepath/internal/energytags"
	"github.com/chargepath/chargepath/internal/planner"
	"github.com/chargepath/chargepath/internal/stations"
)

// TagLister lists curated energy tags.
type TagLister interface {
	List(ctx context.Context) ([]*energytags.Tag, error)
}

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	tags TagLister
}

// NewMetadataHandler creates a new MetadataHandler. tags may be nil, in which
// case the tag list is empty.
func NewMetadataHandler(tags TagLister) *MetadataHandler {
	return &MetadataHandler{tags: tags}
}

// GetEnums handles GET /v1/metadata/enums.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Enums{
		EnergySources: []stations.EnergySource{
			stations.SourceSolar,
			stations.SourceHybrid,
			stations.SourceGrid,
		},
		PlannerErrorCodes: []planner.Code{
			planner.CodeMissingCredentials,
			planner.CodeInvalidLocation,
			planner.CodeRouteNotFound,
			planner.CodeNoChargersFound,
			planner.CodeNetworkError,
			planner.CodeUnknown,
		},
		FastChargerThresholdKW: stations.FastChargerKW,
		ConsumptionKmPerKWh:    planner.ConsumptionKmPerKWh,
		LegBufferFactor:        planner.LegBufferFactor,
	})
}

// ListEnergyTags handles GET /v1/metadata/energy-tags.
func (h *MetadataHandler) ListEnergyTags(w http.ResponseWriter, r *http.Request) {
	var tags []*energytags.Tag
	if h.tags != nil {
		var err error
		if tags, err = h.tags.List(r.Context()); err != nil {
			response.ServiceUnavailable(w, r, "energy tag store unavailable")
			return
		}
	}
	items := models.NewEnergyTags(tags)
	response.JSON(w, r, http.StatusOK, models.PagedEnergyTags{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: len(items), Count: len(items)},
	})
}
