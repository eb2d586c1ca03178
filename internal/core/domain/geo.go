package domain

import (
	"fmt"
	"math"
)

// GeoPoint represents a geographic coordinate (WGS 84, decimal degrees).
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Validate rejects NaN, infinite and out-of-range coordinates.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return &InvalidInputError{Field: "lon", Reason: fmt.Sprintf("must be within [-180, 180], got %v", p.Lon)}
	}
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return &InvalidInputError{Field: "lat", Reason: fmt.Sprintf("must be within [-90, 90], got %v", p.Lat)}
	}
	return nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLon float64 `json:"lon_min"`
	MaxLon float64 `json:"lon_max"`
	MinLat float64 `json:"lat_min"`
	MaxLat float64 `json:"lat_max"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}
