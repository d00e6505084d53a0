// Package geo provides great-circle helpers for working with driving routes.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by all distance calculations.
const EarthRadiusKm = 6371.0

// maxRouteSamples caps the number of vertices MinDistanceToRoute inspects.
const maxRouteSamples = 120

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether c is the (0,0) sentinel returned for empty input.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Valid reports whether c lies within the WGS84 latitude/longitude bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// DistanceKm returns the haversine distance between a and b in kilometers.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// RouteLengthKm sums the segment distances of route.
func RouteLengthKm(route []Coordinate) float64 {
	var total float64
	for i := 1; i < len(route); i++ {
		total += DistanceKm(route[i-1], route[i])
	}
	return total
}

// PointAtDistance walks route and returns the point where the cumulative
// distance first reaches targetKm, interpolating linearly inside the enclosing
// segment. A non-positive target yields the first point and a target past the
// end yields the last point. An empty route yields the zero Coordinate, so
// callers must guard against empty input.
func PointAtDistance(route []Coordinate, targetKm float64) Coordinate {
	if len(route) == 0 {
		return Coordinate{}
	}
	if targetKm <= 0 {
		return route[0]
	}

	var walked float64
	for i := 1; i < len(route); i++ {
		seg := DistanceKm(route[i-1], route[i])
		if seg > 0 && walked+seg >= targetKm {
			fraction := (targetKm - walked) / seg
			return Coordinate{
				Lat: route[i-1].Lat + fraction*(route[i].Lat-route[i-1].Lat),
				Lon: route[i-1].Lon + fraction*(route[i].Lon-route[i-1].Lon),
			}
		}
		walked += seg
	}

	return route[len(route)-1]
}

// MinDistanceToRoute returns the smallest distance from point to a sampled
// vertex of route. Vertices are visited at a fixed stride so that at most
// maxRouteSamples are measured, plus the final vertex. The result is therefore
// an upper bound on the true point-to-polyline distance whose error is at most
// the length of the skipped span between two samples.
func MinDistanceToRoute(point Coordinate, route []Coordinate) float64 {
	if len(route) == 0 {
		return math.Inf(1)
	}

	stride := int(math.Ceil(float64(len(route)) / maxRouteSamples))
	if stride < 1 {
		stride = 1
	}

	best := math.Inf(1)
	for i := 0; i < len(route); i += stride {
		if d := DistanceKm(point, route[i]); d < best {
			best = d
		}
	}
	if d := DistanceKm(point, route[len(route)-1]); d < best {
		best = d
	}
	return best
}

// Nearest returns the index of the candidate closest to point and its
// distance in kilometers. It returns -1 when candidates is empty.
func Nearest(point Coordinate, candidates []Coordinate) (int, float64) {
	idx := -1
	best := math.Inf(1)
	for i, c := range candidates {
		if d := DistanceKm(point, c); d < best {
			idx, best = i, d
		}
	}
	return idx, best
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
