package ports

import (
	"context"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// ExportRequest carries everything an exporter writes for one file.
type ExportRequest struct {
	FileName  string // base name used in the output file name
	OutputDir string
	Target    domain.GeoPoint
	// ToleranceKm frames plots around the target; zero lets the exporter fit the samples.
	ToleranceKm float64
	Samples     []domain.Sample
}

// ResultExporter writes a result sequence to an artifact and returns its path.
type ResultExporter interface {
	Kind() domain.ExportKind
	Export(ctx context.Context, req ExportRequest) (string, error)
}
