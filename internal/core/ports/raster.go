package ports

import "github.com/samirrijal/tifprobe/internal/core/domain"

// RasterSource exposes an opened raster. Implementations decode the file;
// the scanner only reads from them.
type RasterSource interface {
	Width() int
	Height() int
	BandCount() int
	Transform() domain.GeoTransform
	// NoData returns the no-data sentinel and whether one is defined.
	NoData() (float64, bool)
	// ReadBand returns the full grid of band index (1-based).
	ReadBand(index int) (*domain.Band, error)
	Close() error
}

// RasterOpener opens raster files by path.
type RasterOpener interface {
	Open(path string) (RasterSource, error)
}
