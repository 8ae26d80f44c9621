package geo

import "testing"

func TestCityFromLatLng(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		lat, lng float64
		want     string
	}{
		{"mexico city centro", 19.4326, -99.1332, "CDMX"},
		{"guadalajara centro", 20.6767, -103.3475, "GDL"},
		{"monterrey centro", 25.6866, -100.3161, "MTY"},
		{"cdmx north edge", 19.8, -99.0, "CDMX"},
		{"open ocean", 0, 0, ""},
		{"queretaro outside coverage", 20.5888, -100.3899, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CityFromLatLng(tc.lat, tc.lng); got != tc.want {
				t.Fatalf("CityFromLatLng(%v, %v) = %q, want %q", tc.lat, tc.lng, got, tc.want)
			}
		})
	}
}

func TestResolveCity(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }

	// Coordinates inside a geofence win over the stated city.
	if got := ResolveCity("GDL", f(19.4326), f(-99.1332)); got != "CDMX" {
		t.Fatalf("ResolveCity = %q, want CDMX", got)
	}
	// Outside every geofence the free-text city stands.
	if got := ResolveCity("CDMX", f(40.7), f(-74.0)); got != "CDMX" {
		t.Fatalf("ResolveCity = %q, want CDMX", got)
	}
	// Missing coordinates fall through to the input.
	if got := ResolveCity("MTY", nil, nil); got != "MTY" {
		t.Fatalf("ResolveCity = %q, want MTY", got)
	}
	if got := ResolveCity("MTY", f(19.4), nil); got != "MTY" {
		t.Fatalf("ResolveCity with one coordinate = %q, want MTY", got)
	}
	// No city and no usable coordinates resolves to nothing.
	if got := ResolveCity("", nil, nil); got != "" {
		t.Fatalf("ResolveCity = %q, want empty", got)
	}
}
