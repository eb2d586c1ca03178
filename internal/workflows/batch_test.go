package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
)

type fakeValidator struct {
	mu       sync.Mutex
	validate func(req usecases.ValidateRequest) (*domain.ScanReport, error)
	calls    map[string]int
}

func (f *fakeValidator) Validate(ctx context.Context, req usecases.ValidateRequest) (*domain.ScanReport, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[filepath.Base(req.Path)]++
	f.mu.Unlock()
	return f.validate(req)
}

func rasterDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
	return dir
}

func TestBatchValidationWorkflow(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()

	v := &fakeValidator{validate: func(req usecases.ValidateRequest) (*domain.ScanReport, error) {
		switch filepath.Base(req.Path) {
		case "bad.tif":
			return nil, &domain.InvalidInputError{Field: "target", Reason: "out of range"}
		case "flaky.tif":
			return nil, errors.New("disk hiccup")
		case "hit.tif":
			return &domain.ScanReport{Run: domain.ScanRun{ID: "r-hit", MatchedCount: 1, ValidatedCount: 3}}, nil
		}
		return &domain.ScanReport{Run: domain.ScanRun{ID: "r-miss", Warning: domain.ErrEmptyResult.Error()}}, nil
	}}
	env.RegisterActivity(&BatchActivities{Validator: v})

	dir := rasterDir(t, "hit.tif", "bad.tif", "flaky.tif", "miss.tiff", "readme.md")
	env.ExecuteWorkflow(BatchValidationWorkflow, BatchInput{
		Dir:     dir,
		Request: usecases.ValidateRequest{Target: domain.GeoPoint{Lon: 1, Lat: 2}, ToleranceKm: 5},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var summary BatchSummary
	require.NoError(t, env.GetWorkflowResult(&summary))
	require.Equal(t, 4, summary.Files)
	require.Equal(t, 2, summary.Succeeded)
	require.Equal(t, 2, summary.Failed)
	require.Equal(t, 1, summary.Matched)

	names := make([]string, len(summary.Outcomes))
	for i, o := range summary.Outcomes {
		names[i] = filepath.Base(o.Path)
	}
	require.Equal(t, []string{"bad.tif", "flaky.tif", "hit.tif", "miss.tiff"}, names)
	require.Equal(t, "r-hit", summary.Outcomes[2].RunID)
	require.NotEmpty(t, summary.Outcomes[3].Warning)

	// invalid input is not retried, other failures use the full retry budget
	require.Equal(t, 1, v.calls["bad.tif"])
	require.Equal(t, 3, v.calls["flaky.tif"])
}

func TestBatchValidationWorkflow_ListFailure(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(&BatchActivities{Validator: &fakeValidator{}})

	env.OnActivity(ActivityListRasterFiles, mock.Anything, "/nowhere").
		Return([]string(nil), classify(&domain.InvalidInputError{Field: "dir", Reason: "missing"}))

	env.ExecuteWorkflow(BatchValidationWorkflow, BatchInput{Dir: "/nowhere"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}

func TestBatchValidationWorkflow_EmptyDir(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(&BatchActivities{Validator: &fakeValidator{}})

	env.ExecuteWorkflow(BatchValidationWorkflow, BatchInput{Dir: rasterDir(t)})

	require.NoError(t, env.GetWorkflowError())
	var summary BatchSummary
	require.NoError(t, env.GetWorkflowResult(&summary))
	require.Zero(t, summary.Files)
	require.Empty(t, summary.Outcomes)
}

func TestClassify(t *testing.T) {
	plain := errors.New("boom")
	require.Same(t, plain, classify(plain))
	require.Error(t, classify(&domain.PreconditionError{Op: "scan", Reason: "no raster"}))
}
