package community

import (
	"fmt"

	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
)

// Transfer defaults.
const (
	DefaultDonorCapacityKWh    = 70.0
	DefaultDonorFloorPercent   = 25.0
	DefaultMinTransferKWh      = 5.0
	DefaultMaxTransferKWh      = 10.0
	DefaultEfficiencyKmPerKWh  = 4.5
	DefaultReceiverCapacityKWh = 40.0
)

// Outcome reasons.
const (
	ReasonLimitReached = "limit reached: one community rescue per trip"
	ReasonNoVehicle    = "no vehicle available"
	ReasonBelowReserve = "below safe transfer reserve"
)

// Receiver is the stranded vehicle.
type Receiver struct {
	Location           geo.Coordinate
	BatteryPercent     float64
	CapacityKWh        float64
	EfficiencyKmPerKWh float64
}

// Window bounds a single transfer. Offers below MinKWh are rejected outright.
type Window struct {
	MinKWh float64
	MaxKWh float64
}

// TransferRequest describes one simulated rescue.
type TransferRequest struct {
	Receiver Receiver

	// Candidates are ranked donors; only the first is used.
	Candidates []Vehicle

	// Stations are chargers the receiver might reach afterwards.
	Stations []stations.Station

	OneRescuePerTrip bool
	AlreadyRescued   bool

	DonorCapacityKWh  float64
	DonorFloorPercent float64
	Window            Window
}

func (r TransferRequest) withDefaults() TransferRequest {
	if r.Receiver.CapacityKWh <= 0 {
		r.Receiver.CapacityKWh = DefaultReceiverCapacityKWh
	}
	if r.Receiver.EfficiencyKmPerKWh <= 0 {
		r.Receiver.EfficiencyKmPerKWh = DefaultEfficiencyKmPerKWh
	}
	if r.DonorCapacityKWh <= 0 {
		r.DonorCapacityKWh = DefaultDonorCapacityKWh
	}
	if r.DonorFloorPercent <= 0 {
		r.DonorFloorPercent = DefaultDonorFloorPercent
	}
	if r.Window.MinKWh <= 0 {
		r.Window.MinKWh = DefaultMinTransferKWh
	}
	if r.Window.MaxKWh <= 0 {
		r.Window.MaxKWh = DefaultMaxTransferKWh
	}
	if r.Window.MaxKWh < r.Window.MinKWh {
		r.Window.MaxKWh = r.Window.MinKWh
	}
	return r
}

// Outcome is the result of SimulateReverseCharging. TransferredEnergyKWh is
// zero whenever RescueFound is false.
type Outcome struct {
	RescueFound              bool              `json:"rescueFound"`
	Reason                   string            `json:"reason"`
	Donor                    *Vehicle          `json:"donor,omitempty"`
	TransferableEnergyKWh    float64           `json:"transferableEnergyKwh"`
	TransferredEnergyKWh     float64           `json:"transferredEnergyKwh"`
	EmergencyRangeGainedKm   float64           `json:"emergencyRangeGainedKm"`
	ReceiverBatteryPercent   float64           `json:"receiverBatteryPercent"`
	DonorBatteryPercent      float64           `json:"donorBatteryPercent"`
	NearestStation           *stations.Station `json:"nearestStation,omitempty"`
	NearestStationDistanceKm float64           `json:"nearestStationDistanceKm,omitempty"`
	ChargerReachable         bool              `json:"chargerReachable"`
}

// SimulateReverseCharging models one donor-to-receiver transfer from the
// first candidate.
func SimulateReverseCharging(req TransferRequest) Outcome {
	req = req.withDefaults()

	out := Outcome{ReceiverBatteryPercent: req.Receiver.BatteryPercent}
	if req.OneRescuePerTrip && req.AlreadyRescued {
		out.Reason = ReasonLimitReached
		return out
	}
	if len(req.Candidates) == 0 {
		out.Reason = ReasonNoVehicle
		return out
	}

	donor := req.Candidates[0]
	out.Donor = &donor
	out.DonorBatteryPercent = donor.BatteryPercent

	current := donor.BatteryPercent / 100 * req.DonorCapacityKWh
	floor := req.DonorFloorPercent / 100 * req.DonorCapacityKWh
	transferable := max(0, current-floor)
	out.TransferableEnergyKWh = geo.Round(transferable, 2)

	transfer := min(req.Window.MaxKWh, transferable)
	if transfer < req.Window.MinKWh {
		out.Reason = fmt.Sprintf("%s: donor %s can spare %.1f kWh, minimum is %.1f kWh",
			ReasonBelowReserve, donor.VehicleID, transferable, req.Window.MinKWh)
		return out
	}

	out.RescueFound = true
	out.TransferredEnergyKWh = transfer
	out.EmergencyRangeGainedKm = geo.Round(transfer*req.Receiver.EfficiencyKmPerKWh, 1)
	out.ReceiverBatteryPercent = geo.Round(min(100, req.Receiver.BatteryPercent+transfer/req.Receiver.CapacityKWh*100), 1)
	out.DonorBatteryPercent = geo.Round(max(0, donor.BatteryPercent-transfer/req.DonorCapacityKWh*100), 1)

	locations := make([]geo.Coordinate, len(req.Stations))
	for i, st := range req.Stations {
		locations[i] = st.Location
	}
	idx, dist := geo.Nearest(req.Receiver.Location, locations)
	if idx < 0 {
		out.Reason = fmt.Sprintf("received %.1f kWh from %s (+%.1f km); no known charger to head for",
			transfer, donor.VehicleID, out.EmergencyRangeGainedKm)
		return out
	}

	nearest := req.Stations[idx]
	out.NearestStation = &nearest
	out.NearestStationDistanceKm = geo.Round(dist, 2)
	out.ChargerReachable = dist <= out.EmergencyRangeGainedKm
	if out.ChargerReachable {
		out.Reason = fmt.Sprintf("received %.1f kWh from %s; %s is reachable at %.1f km",
			transfer, donor.VehicleID, nearest.Name, dist)
	} else {
		out.Reason = fmt.Sprintf("received %.1f kWh from %s but nearest charger %s is %.1f km away, beyond the %.1f km gained",
			transfer, donor.VehicleID, nearest.Name, dist, out.EmergencyRangeGainedKm)
	}
	return out
}
