// Package community simulates peer-to-peer reverse charging: ranking nearby
// donor vehicles and modelling an emergency energy transfer.
package community

import (
	"sort"
	"strings"
	"unicode"

	"github.com/chargepath/chargepath/pkg/geo"
)

// Matching defaults.
const (
	DefaultMaxDistanceKm          = 8.0
	DefaultMinDonorBatteryPercent = 40.0
	MinRouteSimilarity            = 0.35
)

// Vehicle is a potential donor. Vehicles are simulated per request.
type Vehicle struct {
	VehicleID               string         `json:"vehicleId"`
	Location                geo.Coordinate `json:"location"`
	RouteDirection          string         `json:"routeDirection"`
	BatteryPercent          float64        `json:"batteryPercent"`
	SupportsReverseCharging bool           `json:"supportsReverseCharging"`
}

// Match is a ranked donor.
type Match struct {
	Vehicle
	DistanceKm      float64 `json:"distanceKm"`
	RouteSimilarity float64 `json:"routeSimilarity"`
}

// MatchOptions tunes FindNearbyRescueVehicles. Zero values take the defaults.
type MatchOptions struct {
	MaxDistanceKm          float64
	MinDonorBatteryPercent float64
}

// FindNearbyRescueVehicles returns reverse-charging capable vehicles with
// enough battery that are within range and heading the same way, nearest
// first and fuller battery first on ties.
func FindNearbyRescueVehicles(receiver geo.Coordinate, direction string, vehicles []Vehicle, opts MatchOptions) []Match {
	if opts.MaxDistanceKm <= 0 {
		opts.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if opts.MinDonorBatteryPercent <= 0 {
		opts.MinDonorBatteryPercent = DefaultMinDonorBatteryPercent
	}

	var out []Match
	for _, v := range vehicles {
		if !v.SupportsReverseCharging || v.BatteryPercent < opts.MinDonorBatteryPercent {
			continue
		}
		d := geo.DistanceKm(receiver, v.Location)
		if d > opts.MaxDistanceKm {
			continue
		}
		sim := RouteSimilarity(direction, v.RouteDirection)
		if sim < MinRouteSimilarity {
			continue
		}
		out = append(out, Match{Vehicle: v, DistanceKm: geo.Round(d, 2), RouteSimilarity: sim})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].BatteryPercent > out[j].BatteryPercent
	})
	return out
}

// RouteSimilarity scores how aligned two free-text directions are, in [0,1].
func RouteSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))

	if a == b {
		return 1
	}
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 0.75
	}

	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(max(len(ta), len(tb)))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
