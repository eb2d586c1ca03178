package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/tifprobe/internal/core/usecases"
)

// TaskQueue is the default task queue of the validation worker.
const TaskQueue = "probe-validation"

// BatchInput is the input for the batch validation workflow. Request.Path is
// ignored; every raster file in Dir is validated with the other parameters.
type BatchInput struct {
	Dir     string
	Request usecases.ValidateRequest
}

// FileOutcome is the result of one file in a batch.
type FileOutcome struct {
	Path       string `json:"path"`
	RunID      string `json:"run_id,omitempty"`
	Matched    int    `json:"matched"`
	Validated  int    `json:"validated"`
	ExportPath string `json:"export_path,omitempty"`
	Warning    string `json:"warning,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Dir       string        `json:"dir"`
	Files     int           `json:"files"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Matched   int           `json:"matched"` // files with at least one Match
	Outcomes  []FileOutcome `json:"outcomes"`
}

// BatchValidationWorkflow validates every raster file in a directory, one
// activity per file, in name order. A failing file is recorded and the batch
// continues.
func BatchValidationWorkflow(ctx workflow.Context, input BatchInput) (*BatchSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting batch validation", "dir", input.Dir)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInvalidInput, ErrTypePrecondition},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var files []string
	if err := workflow.ExecuteActivity(ctx, ActivityListRasterFiles, input.Dir).Get(ctx, &files); err != nil {
		return nil, err
	}

	summary := &BatchSummary{Dir: input.Dir, Files: len(files), Outcomes: make([]FileOutcome, 0, len(files))}
	for _, f := range files {
		req := input.Request
		req.Path = f

		var out FileOutcome
		err := workflow.ExecuteActivity(ctx, ActivityValidateRaster, req).Get(ctx, &out)
		if err != nil {
			logger.Warn("file validation failed", "path", f, "error", err)
			summary.Failed++
			summary.Outcomes = append(summary.Outcomes, FileOutcome{Path: f, Error: err.Error()})
			continue
		}
		summary.Succeeded++
		if out.Matched > 0 {
			summary.Matched++
		}
		summary.Outcomes = append(summary.Outcomes, out)
	}

	logger.Info("Batch validation finished",
		"files", summary.Files, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}
