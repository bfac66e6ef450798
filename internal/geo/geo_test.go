package geo

import "testing"

func TestDistance_KnownPoints(t *testing.T) {
	// S1 scenario from spec.md: (40.00,-74.00) to (40.01,-74.01) ≈ 1.4km.
	r := Distance(40.00, -74.00, 40.01, -74.01)
	if !r.Known {
		t.Fatal("expected known distance")
	}
	if r.KM < 1.0 || r.KM > 2.0 {
		t.Errorf("distance = %.3fkm, want ~1.4km", r.KM)
	}
}

func TestDistance_MissingCoordinate(t *testing.T) {
	r := Distance(0, 0, 40.01, -74.01)
	if r.Known {
		t.Error("expected unknown distance when a coordinate is missing")
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := Distance(40.0, -74.0, 41.0, -73.0)
	b := Distance(41.0, -73.0, 40.0, -74.0)
	if a.KM != b.KM {
		t.Errorf("distance not symmetric: %.6f vs %.6f", a.KM, b.KM)
	}
}

func TestValid(t *testing.T) {
	cases := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, false},
		{40.0, -74.0, true},
		{91, 0, false},
		{-91, 0, false},
		{0, 181, false},
	}
	for _, c := range cases {
		if got := Valid(c.lat, c.lon); got != c.want {
			t.Errorf("Valid(%v,%v) = %v, want %v", c.lat, c.lon, got, c.want)
		}
	}
}
