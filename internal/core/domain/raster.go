package domain

import "math"

// GeoTransform is an affine pixel-to-geographic mapping in GDAL coefficient
// order:
//
//	X = gt[0] + col*gt[1] + row*gt[2]
//	Y = gt[3] + col*gt[4] + row*gt[5]
//
// (col, row) address the upper-left corner of a pixel.
type GeoTransform [6]float64

// Apply maps fractional pixel coordinates to geographic coordinates.
func (gt GeoTransform) Apply(row, col float64) (x, y float64) {
	x = gt[0] + col*gt[1] + row*gt[2]
	y = gt[3] + col*gt[4] + row*gt[5]
	return x, y
}

// Determinant of the linear part. Zero means the transform is not invertible.
func (gt GeoTransform) Determinant() float64 {
	return gt[1]*gt[5] - gt[2]*gt[4]
}

// Invertible reports whether gt describes a usable pixel grid.
func (gt GeoTransform) Invertible() bool {
	for _, v := range gt {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return gt.Determinant() != 0 && gt[1] != 0 && gt[5] != 0
}

// Rotated reports whether the transform carries rotation/skew terms.
// Footprints of rotated pixels are still treated as axis-aligned.
func (gt GeoTransform) Rotated() bool {
	return gt[2] != 0 || gt[4] != 0
}

// Band is a single raster band held in row-major order.
type Band struct {
	Index  int // 1-based
	Width  int
	Height int
	Data   []float64
}

// At returns the value at (row, col).
func (b *Band) At(row, col int) float64 {
	return b.Data[row*b.Width+col]
}

// RasterInfo summarises an opened raster for logs and API responses.
type RasterInfo struct {
	Path      string       `json:"path"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	BandCount int          `json:"band_count"`
	Transform GeoTransform `json:"transform"`
	NoData    *float64     `json:"nodata,omitempty"`
}
