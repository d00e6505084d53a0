package stations

import "strings"

var (
	hybridKeywords = []string{"hybrid", "solar + grid", "solar+grid", "solar/grid", "grid-tied solar", "partially solar", "mixed supply"}
	solarKeywords  = []string{"solar", "photovoltaic", "pv array", "pv-powered", "sun powered", "sun-powered", "renewable", "green energy"}
)

// InferEnergySource guesses the supply from free text. Hybrid keywords take
// precedence over solar ones and anything else is grid.
func InferEnergySource(name, operator, comments string) EnergySource {
	text := strings.ToLower(name + " " + operator + " " + comments)
	for _, kw := range hybridKeywords {
		if strings.Contains(text, kw) {
			return SourceHybrid
		}
	}
	for _, kw := range solarKeywords {
		if strings.Contains(text, kw) {
			return SourceSolar
		}
	}
	return SourceGrid
}

// ResolveEnergySource applies the override table, then any source already
// set on the station, then inference.
func ResolveEnergySource(s Station, overrides map[string]EnergySource) EnergySource {
	if src, ok := overrides[s.ID]; ok && src.Valid() {
		return src
	}
	if s.EnergySource.Valid() {
		return s.EnergySource
	}
	return InferEnergySource(s.Name, s.Operator, s.Comments)
}
