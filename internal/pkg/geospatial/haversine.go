package geospatial

import "math"

const earthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance in kilometres between two
// points given in decimal degrees.
func HaversineKm(lon1, lat1, lon2, lat2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dLat := phi2 - phi1
	dLon := toRad(lon2) - toRad(lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// rounding can push a a hair outside [0, 1] near antipodes
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Asin(math.Sqrt(a))
	return earthRadiusKm * c
}

// BoundingBox returns a box around a point with the given radius in kilometres.
// Longitude span is widened by 1/cos(lat) and clamped to valid ranges.
func BoundingBox(lon, lat, radiusKm float64) (minLon, minLat, maxLon, maxLat float64) {
	latDelta := radiusKm / 111.32
	lonDelta := 180.0
	if c := math.Cos(toRad(lat)); c > 1e-9 {
		lonDelta = math.Min(180, radiusKm/(111.32*c))
	}

	minLat = math.Max(-90, lat-latDelta)
	maxLat = math.Min(90, lat+latDelta)
	minLon = math.Max(-180, lon-lonDelta)
	maxLon = math.Min(180, lon+lonDelta)
	return minLon, minLat, maxLon, maxLat
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
