package openrouteservice

import (
	"encoding/json"
	"fmt"
)

// coordinatesJSON accepts both a Point ([lon, lat]) and a LineString
// ([[lon, lat], ...]) and exposes them as a list of pairs.
type coordinatesJSON [][]float64

func (c *coordinatesJSON) UnmarshalJSON(b []byte) error {
	var line [][]float64
	if err := json.Unmarshal(b, &line); err == nil {
		*c = line
		return nil
	}

	var point []float64
	if err := json.Unmarshal(b, &point); err != nil {
		return fmt.Errorf("coordinates are neither a point nor a line: %w", err)
	}
	if len(point) == 0 {
		*c = nil
		return nil
	}
	*c = [][]float64{point}
	return nil
}
