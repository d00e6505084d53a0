package planner

import (
	"context"
	"sort"

	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
)

type candidate struct {
	energy.Classified
	routeKm float64
	solar   bool
}

// selectStop picks the best unused charger near target and marks it used.
// It returns nil when no unused charger is found.
func (p *Planner) selectStop(ctx context.Context, target geo.Coordinate, route []geo.Coordinate,
	used map[string]bool, tags map[string]stations.EnergySource,
) (*Stop, error) {
	found, err := p.stations.Nearby(ctx, stations.Query{
		Location: target,
		RadiusKm: p.radiusKm,
		Limit:    p.limit,
	})
	if err != nil {
		return nil, err
	}

	var all, fast []candidate
	for _, c := range energy.DetectSolarStations(found, tags) {
		if used[c.ID] {
			continue
		}
		cand := candidate{Classified: c, routeKm: geo.MinDistanceToRoute(c.Location, route)}
		all = append(all, cand)
		if c.IsFastCharger() {
			fast = append(fast, cand)
		}
	}
	if len(all) == 0 {
		return nil, nil
	}

	pool := fast
	if len(pool) == 0 {
		pool = all
	}
	rankCandidates(pool)

	best := pool[0]
	used[best.ID] = true
	return &Stop{
		Station:             best.Station,
		DistanceFromRouteKm: geo.Round(best.routeKm, 2),
		IsFastCharger:       best.IsFastCharger(),
		IsSolarPreferred:    best.solar,
	}, nil
}

// rankCandidates flags renewable chargers within SolarDetourWindowKm of the
// closest one, then orders solar-preferred first, nearest to the route next
// and most powerful last.
func rankCandidates(pool []candidate) {
	closest := pool[0].routeKm
	for _, c := range pool[1:] {
		closest = min(closest, c.routeKm)
	}
	for i := range pool {
		pool[i].solar = pool[i].IsSolarPowered && pool[i].routeKm <= closest+SolarDetourWindowKm
	}

	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.solar != b.solar {
			return a.solar
		}
		if a.routeKm != b.routeKm {
			return a.routeKm < b.routeKm
		}
		return a.MaxPowerKW > b.MaxPowerKW
	})
}
