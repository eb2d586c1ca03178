package ports

import (
	"context"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// Workflow is one raster-analysis strategy. A workflow instance processes one
// file at a time: Initialize, ReadFile, Estimate, Export, Close.
type Workflow interface {
	// Initialize resets per-file state and fixes the target point.
	Initialize(target domain.GeoPoint) error
	ReadFile(ctx context.Context, path string) (*domain.RasterInfo, error)
	Estimate(ctx context.Context, toleranceKm float64, stopOnFirstMatch bool) (*domain.ScanResult, error)
	// Restore installs a previously computed estimate for path in place of
	// ReadFile and Estimate, so Export can run without rescanning.
	Restore(path string, toleranceKm float64, stopOnFirstMatch bool, result *domain.ScanResult) error
	// Export writes the selected sequence; an empty sequence yields
	// domain.ErrEmptyResult and no file.
	Export(ctx context.Context, fileName, outputDir string, kind domain.ExportKind) (string, error)
	// Result returns the last estimate, nil before Estimate.
	Result() *domain.ScanResult
	Close() error
}
