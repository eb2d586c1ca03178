package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
)

// Activity names, as registered from the Activities struct methods.
const (
	ActivityListRasterFiles = "ListRasterFiles"
	ActivityValidateRaster  = "ValidateRaster"
)

// Error types that Temporal must not retry.
const (
	ErrTypeInvalidInput = "InvalidInput"
	ErrTypePrecondition = "Precondition"
)

// Validator runs one file validation.
type Validator interface {
	Validate(ctx context.Context, req usecases.ValidateRequest) (*domain.ScanReport, error)
}

// BatchActivities holds the activity implementations for the batch validation workflow.
type BatchActivities struct {
	Validator Validator
	Logger    *slog.Logger
}

// ListRasterFiles returns the raster files in dir.
func (a *BatchActivities) ListRasterFiles(ctx context.Context, dir string) ([]string, error) {
	files, err := usecases.ListRasterFiles(dir)
	if err != nil {
		return nil, classify(err)
	}
	return files, nil
}

// ValidateRaster validates one file and returns its outcome.
func (a *BatchActivities) ValidateRaster(ctx context.Context, req usecases.ValidateRequest) (*FileOutcome, error) {
	info := activity.GetInfo(ctx)
	a.logger().Info("validating raster", "path", req.Path, "attempt", info.Attempt)

	report, err := a.Validator.Validate(ctx, req)
	if err != nil {
		return nil, classify(fmt.Errorf("validate %s: %w", req.Path, err))
	}
	run := report.Run
	return &FileOutcome{
		Path:       req.Path,
		RunID:      run.ID,
		Matched:    run.MatchedCount,
		Validated:  run.ValidatedCount,
		ExportPath: run.ExportPath,
		Warning:    run.Warning,
	}, nil
}

func (a *BatchActivities) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// classify marks caller errors as non-retryable.
func classify(err error) error {
	switch {
	case domain.IsInvalidInput(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err)
	case domain.IsPrecondition(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypePrecondition, err)
	default:
		return err
	}
}
