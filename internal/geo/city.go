// Package geo resolves coordinates to the canonical city codes used by
// pricing and matching.  Coverage is a fixed set of bounding boxes, one
// per launched city; anything outside them resolves to nothing and the
// caller falls back to the city named in the request.
package geo

// box is an inclusive lat/lng bounding box for one city.
type box struct {
	city           string
	latMin, latMax float64
	lngMin, lngMax float64
}

// Launched-city geofences.  Boxes are deliberately coarse: they decide
// which rate card applies, not where a guard is standing.
var boxes = []box{
	{"CDMX", 19.0, 19.8, -99.35, -98.8},
	{"GDL", 20.5, 20.9, -103.6, -103.1},
	{"MTY", 25.4, 26.0, -100.5, -99.9},
}

// CityFromLatLng returns the canonical city code containing the given
// coordinates, or "" when the point falls outside every geofence.
func CityFromLatLng(lat, lng float64) string {
	for _, b := range boxes {
		if lat >= b.latMin && lat <= b.latMax && lng >= b.lngMin && lng <= b.lngMax {
			return b.city
		}
	}
	return ""
}

// ResolveCity picks the canonical city for a request: coordinates win
// over the free-text city input when they land inside a geofence.
// Either coordinate may be nil, in which case only the input is used.
func ResolveCity(input string, lat, lng *float64) string {
	if lat != nil && lng != nil {
		if c := CityFromLatLng(*lat, *lng); c != "" {
			return c
		}
	}
	return input
}
