// Package polyline encodes route geometry with Google's polyline algorithm so
// API responses can ship long routes compactly.
// The polyline algorithm is documented at: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"

	"github.com/chargepath/chargepath/pkg/geo"
)

// precision is the fixed 5 decimal place factor used by Google and ORS.
const precision = 1e5

// Encode encodes route into a polyline string.
func Encode(route []geo.Coordinate) string {
	if len(route) == 0 {
		return ""
	}

	out := make([]byte, 0, len(route)*6)
	var prevLat, prevLon int
	for _, c := range route {
		lat := int(math.Round(c.Lat * precision))
		lon := int(math.Round(c.Lon * precision))

		out = appendValue(out, lat-prevLat)
		out = appendValue(out, lon-prevLon)

		prevLat, prevLon = lat, lon
	}
	return string(out)
}

// Decode turns a polyline string back into coordinates.
func Decode(encoded string) []geo.Coordinate {
	if encoded == "" {
		return nil
	}

	var (
		route    []geo.Coordinate
		lat, lon int
		delta    int
	)
	for i := 0; i < len(encoded); {
		delta, i = readValue(encoded, i)
		lat += delta
		delta, i = readValue(encoded, i)
		lon += delta

		route = append(route, geo.Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}
	return route
}

// LengthKm decodes encoded and returns its haversine length.
func LengthKm(encoded string) float64 {
	return geo.RouteLengthKm(Decode(encoded))
}

func appendValue(buf []byte, v int) []byte {
	if v < 0 {
		v = ^(v << 1)
	} else {
		v <<= 1
	}
	for v >= 0x20 {
		buf = append(buf, byte((v&0x1f)|0x20)+63)
		v >>= 5
	}
	return append(buf, byte(v)+63)
}

func readValue(encoded string, i int) (int, int) {
	var shift, result int
	for i < len(encoded) {
		b := int(encoded[i]) - 63
		i++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i
	}
	return result >> 1, i
}
