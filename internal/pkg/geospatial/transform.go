package geospatial

import (
	"math"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// Corner selects one of the four corners of a pixel.
type Corner int

const (
	UpperLeft Corner = iota
	UpperRight
	LowerLeft
	LowerRight
)

// PixelCenter returns the geographic coordinate of the centre of (row, col).
func PixelCenter(gt domain.GeoTransform, row, col int) (lon, lat float64) {
	return gt.Apply(float64(row)+0.5, float64(col)+0.5)
}

// PixelCorner returns the geographic coordinate of a corner of (row, col).
func PixelCorner(gt domain.GeoTransform, row, col int, corner Corner) (lon, lat float64) {
	r, c := float64(row), float64(col)
	switch corner {
	case UpperRight:
		c++
	case LowerLeft:
		r++
	case LowerRight:
		r++
		c++
	}
	return gt.Apply(r, c)
}

// PixelSize returns the absolute pixel width and height in geographic units.
func PixelSize(gt domain.GeoTransform) (width, height float64) {
	return math.Abs(gt[1]), math.Abs(gt[5])
}

// Footprint returns the axis-aligned box covered by (row, col), built from
// the upper-left corner and the pixel size. Rotation terms are ignored, so
// for rotated rasters this is an approximation.
func Footprint(gt domain.GeoTransform, row, col int) domain.Bounds {
	lon, lat := PixelCorner(gt, row, col, UpperLeft)
	w, h := PixelSize(gt)

	b := domain.Bounds{MinLon: lon, MaxLon: lon + w, MinLat: lat - h, MaxLat: lat}
	if gt[1] < 0 {
		b.MinLon, b.MaxLon = lon-w, lon
	}
	if gt[5] > 0 {
		// south-up grid: rows grow northwards
		b.MinLat, b.MaxLat = lat, lat+h
	}
	return b
}
