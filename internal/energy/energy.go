// Package energy prices charging sessions by energy source and detects when a
// vehicle is stranded.
package energy

import (
	"fmt"
	"math"

	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
)

// Defaults for pricing and stranding detection.
const (
	DefaultBaseTariffPerKWh         = 12.0
	DefaultSolarDiscountPercent     = 35.0
	DefaultHybridDiscountPercent    = 20.0
	DefaultGridDiscountPercent      = 0.0
	DefaultCriticalThresholdPercent = 5.0
)

// Classified is a station with its resolved energy source.
type Classified struct {
	stations.Station
	IsSolarPowered bool `json:"isSolarPowered"`
}

// DetectSolarStations resolves each station's source with manual tags taking
// priority over the source already on the station, then text inference.
func DetectSolarStations(list []stations.Station, manualTags map[string]stations.EnergySource) []Classified {
	out := make([]Classified, len(list))
	for i, st := range list {
		st.EnergySource = stations.ResolveEnergySource(st, manualTags)
		out[i] = Classified{Station: st, IsSolarPowered: st.EnergySource.Renewable()}
	}
	return out
}

// Tariff sets the base price and per-source discounts. A zero base price
// takes the default, so a free tariff cannot be expressed. Nil discounts take
// the defaults; use Percent to set one, including 0.
type Tariff struct {
	BasePerKWh            float64
	SolarDiscountPercent  *float64
	HybridDiscountPercent *float64
	GridDiscountPercent   *float64
}

// Percent returns a pointer to v for the Tariff discount fields.
func Percent(v float64) *float64 {
	return &v
}

// BasePrice returns the base price per kWh with the default applied.
func (t Tariff) BasePrice() float64 {
	if t.BasePerKWh <= 0 {
		return DefaultBaseTariffPerKWh
	}
	return t.BasePerKWh
}

// DiscountPercent returns the discount applied to source, clamped to [0, 100].
func (t Tariff) DiscountPercent(source stations.EnergySource) float64 {
	switch source {
	case stations.SourceSolar:
		return discount(t.SolarDiscountPercent, DefaultSolarDiscountPercent)
	case stations.SourceHybrid:
		return discount(t.HybridDiscountPercent, DefaultHybridDiscountPercent)
	default:
		return discount(t.GridDiscountPercent, DefaultGridDiscountPercent)
	}
}

func discount(set *float64, def float64) float64 {
	if set == nil || math.IsNaN(*set) {
		return def
	}
	return min(max(*set, 0), 100)
}

// Cost is a priced charging session.
type Cost struct {
	EnergyKWh            float64               `json:"energyKwh"`
	EnergySource         stations.EnergySource `json:"energySource"`
	BasePricePerKWh      float64               `json:"basePricePerKwh"`
	DiscountPercent      float64               `json:"discountPercent"`
	EffectivePricePerKWh float64               `json:"effectivePricePerKwh"`
	TotalCost            float64               `json:"totalCost"`
}

// CalculateChargingCost prices energyKWh at station. Negative or non-finite
// energy is treated as zero.
func CalculateChargingCost(energyKWh float64, station stations.Station, tariff Tariff) Cost {
	if energyKWh < 0 || math.IsNaN(energyKWh) || math.IsInf(energyKWh, 0) {
		energyKWh = 0
	}
	source := station.EnergySource
	if !source.Valid() {
		source = stations.SourceGrid
	}
	base := tariff.BasePrice()
	pct := tariff.DiscountPercent(source)
	price := geo.Round(base*(1-pct/100), 2)

	return Cost{
		EnergyKWh:            geo.Round(energyKWh, 2),
		EnergySource:         source,
		BasePricePerKWh:      base,
		DiscountPercent:      pct,
		EffectivePricePerKWh: price,
		TotalCost:            geo.Round(energyKWh*price, 2),
	}
}

// Scenario describes a vehicle's charge and its surroundings.
type Scenario struct {
	BatteryPercent           float64
	CriticalThresholdPercent float64
	NearbyStationsCount      int
	RadiusKm                 float64
}

// Assessment is the result of DetectOutOfCharge.
type Assessment struct {
	IsCritical          bool   `json:"isCritical"`
	HasNoStations       bool   `json:"hasNoStations"`
	ShouldTriggerRescue bool   `json:"shouldTriggerRescue"`
	Reason              string `json:"reason"`
}

// DetectOutOfCharge flags a rescue when the battery is at or below the
// critical threshold and no station is in range.
func DetectOutOfCharge(s Scenario) Assessment {
	threshold := s.CriticalThresholdPercent
	if threshold <= 0 {
		threshold = DefaultCriticalThresholdPercent
	}

	a := Assessment{
		IsCritical:    s.BatteryPercent <= threshold,
		HasNoStations: s.NearbyStationsCount <= 0,
	}
	a.ShouldTriggerRescue = a.IsCritical && a.HasNoStations

	switch {
	case a.ShouldTriggerRescue:
		a.Reason = fmt.Sprintf("battery at %.1f%% (threshold %.1f%%) and no charging stations within %.0f km", s.BatteryPercent, threshold, s.RadiusKm)
	case a.IsCritical:
		a.Reason = fmt.Sprintf("battery at %.1f%% is critical but %d charging station(s) are within %.0f km", s.BatteryPercent, s.NearbyStationsCount, s.RadiusKm)
	case a.HasNoStations:
		a.Reason = fmt.Sprintf("no charging stations within %.0f km but battery at %.1f%% is above the critical threshold", s.RadiusKm, s.BatteryPercent)
	default:
		a.Reason = "battery level and nearby charging options are sufficient"
	}
	return a
}
