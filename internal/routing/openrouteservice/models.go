package openrouteservice

// directionsRequest is the body of POST /v2/directions/{profile}/geojson.
type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
	Units        string      `json:"units"`
}

// featureCollection is the GeoJSON envelope returned by both endpoints.
type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   geometry          `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

// geometry holds [lon, lat] pairs for directions or a single pair for geocode.
type geometry struct {
	Type        string          `json:"type"`
	Coordinates coordinatesJSON `json:"coordinates"`
}

type featureProperties struct {
	Label    string         `json:"label,omitempty"`
	Segments []routeSegment `json:"segments,omitempty"`
	Summary  *routeSummary  `json:"summary,omitempty"`
}

type routeSegment struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
}

type routeSummary struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

// errorResponse is the ORS error envelope.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ORS error code for "route could not be found".
const orsErrorCodeRouteNotFound = 2009
