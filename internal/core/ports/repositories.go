package ports

import (
	"context"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// ScanRepository persists scan runs and their classified samples.
type ScanRepository interface {
	// Create stores the run and both sample sequences atomically.
	Create(ctx context.Context, report *domain.ScanReport) error
	GetByID(ctx context.Context, id string) (*domain.ScanRun, error)
	List(ctx context.Context, limit, offset int) ([]domain.ScanRun, int, error)
	Samples(ctx context.Context, runID string, seq domain.Sequence) ([]domain.Sample, error)
}
