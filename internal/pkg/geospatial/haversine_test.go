package geospatial

import (
	"math"
	"testing"
)

func TestHaversineKm_SamePoint(t *testing.T) {
	points := [][2]float64{{0, 0}, {-2.935, 43.263}, {179.9, -89.9}, {-180, 90}}
	for _, p := range points {
		if d := HaversineKm(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("HaversineKm(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	cases := [][4]float64{
		{2.3522, 48.8566, -0.1278, 51.5074},
		{121.5654, 25.0330, 139.6917, 35.6895},
		{-70.0, -33.0, 150.0, 60.0},
	}
	for _, c := range cases {
		ab := HaversineKm(c[0], c[1], c[2], c[3])
		ba := HaversineKm(c[2], c[3], c[0], c[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("asymmetric distance: %v vs %v", ab, ba)
		}
	}
}

func TestHaversineKm_KnownDistances(t *testing.T) {
	// One degree of latitude on a 6371 km sphere.
	oneDeg := HaversineKm(0, 0, 0, 1)
	if want := 6371 * math.Pi / 180; math.Abs(oneDeg-want) > 1e-9 {
		t.Errorf("1 degree = %.6f km, want %.6f km", oneDeg, want)
	}

	// Paris to London is ~343.5 km.
	d := HaversineKm(2.3522, 48.8566, -0.1278, 51.5074)
	if math.Abs(d-343.5) > 1.0 {
		t.Errorf("Paris-London = %.2f km, want ~343.5 km", d)
	}
}

func TestHaversineKm_Bounds(t *testing.T) {
	antipodal := math.Pi * earthRadiusKm
	d := HaversineKm(0, 0, 180, 0)
	if math.Abs(d-antipodal) > 1e-6 {
		t.Errorf("antipodal distance = %.6f, want %.6f", d, antipodal)
	}

	for lon := -180.0; lon <= 180; lon += 45 {
		for lat := -90.0; lat <= 90; lat += 30 {
			d := HaversineKm(lon, lat, -lon/2, -lat)
			if d < 0 || d > antipodal+1e-6 {
				t.Errorf("HaversineKm(%v,%v) = %v out of [0, %v]", lon, lat, d, antipodal)
			}
		}
	}
}

func TestBoundingBox(t *testing.T) {
	minLon, minLat, maxLon, maxLat := BoundingBox(-2.935, 43.263, 10)
	if !(minLon < -2.935 && maxLon > -2.935 && minLat < 43.263 && maxLat > 43.263) {
		t.Fatalf("box does not surround centre: %v %v %v %v", minLon, minLat, maxLon, maxLat)
	}
	// The box edge due north should be ~10 km away.
	if d := HaversineKm(-2.935, 43.263, -2.935, maxLat); math.Abs(d-10) > 0.1 {
		t.Errorf("north edge at %.3f km, want ~10 km", d)
	}

	// Near the pole the longitude span saturates instead of blowing up.
	minLon, _, maxLon, maxLat = BoundingBox(0, 90, 50)
	if minLon != -180 || maxLon != 180 || maxLat != 90 {
		t.Errorf("polar box = [%v, %v] lat<=%v, want full longitude span", minLon, maxLon, maxLat)
	}
}
