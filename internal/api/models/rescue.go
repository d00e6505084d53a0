package models

import (
	"github.com/chargepath/chargepath/internal/community"
	"github.com/chargepath/chargepath/internal/energy"
)

// RescueSimulationRequest is the body of POST /v1/rescue:simulate.
type RescueSimulationRequest struct {
	Location       Point   `json:"location"`
	RouteDirection string  `json:"routeDirection"`
	BatteryPercent float64 `json:"batteryPercent"`

	// CapacityKWh is the stranded vehicle's battery size (default: 50).
	CapacityKWh float64 `json:"capacityKwh,omitempty"`

	// AlreadyRescued simulates a trip that has used its one rescue.
	AlreadyRescued bool `json:"alreadyRescued,omitempty"`

	// Vehicles are the candidate donors. When empty, donors are simulated
	// around Location.
	Vehicles []RescueVehicle `json:"vehicles,omitempty"`
}

// Validate returns one FieldError per invalid field.
func (r *RescueSimulationRequest) Validate() []FieldError {
	errs := r.Location.Validate("location")
	if !(r.BatteryPercent >= 0 && r.BatteryPercent <= 100) {
		errs = append(errs, FieldError{Field: "batteryPercent", Message: "must be between 0 and 100", Code: FieldCodeOutOfRange})
	}
	if r.CapacityKWh < 0 {
		errs = append(errs, FieldError{Field: "capacityKwh", Message: "must not be negative", Code: FieldCodeOutOfRange})
	}
	for i := range r.Vehicles {
		errs = append(errs, r.Vehicles[i].Validate(indexed("vehicles", i))...)
	}
	return errs
}

// DonorVehicles converts the supplied donors.
func (r *RescueSimulationRequest) DonorVehicles() []community.Vehicle {
	return vehicles(r.Vehicles)
}

// RescueSimulationResponse reports the ranked donors and the simulated
// transfer from the best of them.
type RescueSimulationResponse struct {
	Assessment energy.Assessment `json:"assessment"`
	Candidates []community.Match `json:"candidates"`
	Outcome    community.Outcome `json:"outcome"`
}
