package models

import (
	"math"
	"strings"

	"github.com/chargepath/chargepath/internal/community"
	"github.com/chargepath/chargepath/internal/planner"
)

// PlanTripRequest is the body of POST /v1/trips:plan.
type PlanTripRequest struct {
	StartLocation         string   `json:"startLocation"`
	Destination           string   `json:"destination"`
	EvMaxRangeKm          float64  `json:"evMaxRangeKm"`
	CurrentBatteryPercent *float64 `json:"currentBatteryPercent"`

	// EnableCommunityRescue defaults to true when omitted.
	EnableCommunityRescue *bool `json:"enableCommunityRescue,omitempty"`

	// RescueVehicles replaces the simulated donor fleet when present.
	RescueVehicles []RescueVehicle `json:"rescueVehicles,omitempty"`
}

// Validate returns one FieldError per invalid field.
func (r *PlanTripRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.StartLocation) == "" {
		errs = append(errs, FieldError{Field: "startLocation", Message: "required", Code: FieldCodeRequired})
	}
	if strings.TrimSpace(r.Destination) == "" {
		errs = append(errs, FieldError{Field: "destination", Message: "required", Code: FieldCodeRequired})
	}
	if !(r.EvMaxRangeKm > 0) || math.IsInf(r.EvMaxRangeKm, 0) {
		errs = append(errs, FieldError{Field: "evMaxRangeKm", Message: "must be a positive number", Code: FieldCodeOutOfRange})
	}
	switch b := r.CurrentBatteryPercent; {
	case b == nil:
		errs = append(errs, FieldError{Field: "currentBatteryPercent", Message: "required", Code: FieldCodeRequired})
	case !(*b >= 0 && *b <= 100):
		errs = append(errs, FieldError{Field: "currentBatteryPercent", Message: "must be between 0 and 100", Code: FieldCodeOutOfRange})
	}
	for i := range r.RescueVehicles {
		errs = append(errs, r.RescueVehicles[i].Validate(indexed("rescueVehicles", i))...)
	}
	return errs
}

// PlannerRequest converts a validated request.
func (r *PlanTripRequest) PlannerRequest() planner.Request {
	req := planner.Request{
		StartLocation:         r.StartLocation,
		Destination:           r.Destination,
		EvMaxRangeKm:          r.EvMaxRangeKm,
		EnableCommunityRescue: r.EnableCommunityRescue,
		RescueVehicles:        vehicles(r.RescueVehicles),
	}
	if r.CurrentBatteryPercent != nil {
		req.CurrentBatteryPercent = *r.CurrentBatteryPercent
	}
	return req
}

// PlanTripResponse is a planned trip tagged with a plan ID for support
// lookups.
type PlanTripResponse struct {
	PlanID string `json:"planId"`
	*planner.Result
}

// RescueVehicle is a caller-supplied potential donor.
type RescueVehicle struct {
	VehicleID               string  `json:"vehicleId"`
	Location                Point   `json:"location"`
	RouteDirection          string  `json:"routeDirection"`
	BatteryPercent          float64 `json:"batteryPercent"`
	SupportsReverseCharging bool    `json:"supportsReverseCharging"`
}

// Validate reports invalid fields, prefixed with field.
func (v RescueVehicle) Validate(field string) []FieldError {
	var errs []FieldError
	if v.VehicleID == "" {
		errs = append(errs, FieldError{Field: field + ".vehicleId", Message: "required", Code: FieldCodeRequired})
	}
	errs = append(errs, v.Location.Validate(field+".location")...)
	if !(v.BatteryPercent >= 0 && v.BatteryPercent <= 100) {
		errs = append(errs, FieldError{Field: field + ".batteryPercent", Message: "must be between 0 and 100", Code: FieldCodeOutOfRange})
	}
	return errs
}

func vehicles(in []RescueVehicle) []community.Vehicle {
	if len(in) == 0 {
		return nil
	}
	out := make([]community.Vehicle, len(in))
	for i, v := range in {
		out[i] = community.Vehicle{
			VehicleID:               v.VehicleID,
			Location:                v.Location.Coordinate(),
			RouteDirection:          v.RouteDirection,
			BatteryPercent:          v.BatteryPercent,
			SupportsReverseCharging: v.SupportsReverseCharging,
		}
	}
	return out
}
