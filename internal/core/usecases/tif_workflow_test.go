package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
)

// --- Mock RasterOpener ---

type mockOpener struct {
	openFn func(path string) (ports.RasterSource, error)
	opened []string
}

func (m *mockOpener) Open(path string) (ports.RasterSource, error) {
	m.opened = append(m.opened, path)
	if m.openFn != nil {
		return m.openFn(path)
	}
	return nil, errors.New("not found")
}

// --- Mock ResultExporter ---

type mockExporter struct {
	kind     domain.ExportKind
	exportFn func(ctx context.Context, req ports.ExportRequest) (string, error)
	requests []ports.ExportRequest
}

func (m *mockExporter) Kind() domain.ExportKind { return m.kind }

func (m *mockExporter) Export(ctx context.Context, req ports.ExportRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.exportFn != nil {
		return m.exportFn(ctx, req)
	}
	return req.OutputDir + "/" + req.FileName + ".xlsx", nil
}

func openerFor(src *mockSource) *mockOpener {
	return &mockOpener{openFn: func(string) (ports.RasterSource, error) { return src, nil }}
}

// --- Tests ---

func TestTIFWorkflow_Lifecycle(t *testing.T) {
	src := grid2x2([]float64{200, 200, 200, 200})
	excel := &mockExporter{kind: domain.ExportExcel}
	wf := usecases.NewTIFWorkflow(openerFor(src), []ports.ResultExporter{excel}, 100, quietLogger())
	ctx := context.Background()

	if err := wf.Initialize(domain.GeoPoint{Lon: 0.5, Lat: 0.5}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	info, err := wf.ReadFile(ctx, "/data/scene.tif")
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if info.Width != 2 || info.Height != 2 || info.BandCount != 1 {
		t.Errorf("unexpected raster info %+v", info)
	}

	res, err := wf.Estimate(ctx, 1000, false)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if len(res.Matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Matched))
	}
	if wf.Result() != res {
		t.Error("expected Result to return the last estimate")
	}

	out, err := wf.Export(ctx, "scene", "/out", domain.ExportExcel)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out != "/out/scene.xlsx" {
		t.Errorf("unexpected export path %q", out)
	}
	if len(excel.requests) != 1 || len(excel.requests[0].Samples) != 4 {
		t.Fatalf("expected validated (4 rows) exported, got %+v", excel.requests)
	}
	if excel.requests[0].Target != (domain.GeoPoint{Lon: 0.5, Lat: 0.5}) {
		t.Errorf("target not passed to exporter: %+v", excel.requests[0].Target)
	}

	if err := wf.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !src.closed {
		t.Error("expected raster to be closed")
	}
}

func TestTIFWorkflow_ExportsMatchedWhenStopping(t *testing.T) {
	src := grid2x2([]float64{200, 200, 200, 200})
	excel := &mockExporter{kind: domain.ExportExcel}
	wf := usecases.NewTIFWorkflow(openerFor(src), []ports.ResultExporter{excel}, 100, quietLogger())
	ctx := context.Background()

	_ = wf.Initialize(domain.GeoPoint{Lon: 1.5, Lat: -0.5})
	if _, err := wf.ReadFile(ctx, "a.tif"); err != nil {
		t.Fatalf("read file: %v", err)
	}
	if _, err := wf.Estimate(ctx, 1000, true); err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if _, err := wf.Export(ctx, "a", "/out", domain.ExportExcel); err != nil {
		t.Fatalf("export: %v", err)
	}
	rows := excel.requests[0].Samples
	if len(rows) != 1 || rows[0].Status != domain.StatusMatch {
		t.Errorf("expected the single match exported, got %+v", rows)
	}
}

func TestTIFWorkflow_EmptyExportIsWarning(t *testing.T) {
	src := grid2x2([]float64{200, 200, 200, 200})
	excel := &mockExporter{kind: domain.ExportExcel}
	wf := usecases.NewTIFWorkflow(openerFor(src), []ports.ResultExporter{excel}, 100, quietLogger())
	ctx := context.Background()

	_ = wf.Initialize(domain.GeoPoint{Lon: 120, Lat: 23})
	_, _ = wf.ReadFile(ctx, "far.tif")
	if _, err := wf.Estimate(ctx, 1, false); err != nil {
		t.Fatalf("estimate: %v", err)
	}

	out, err := wf.Export(ctx, "far", "/out", domain.ExportExcel)
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if out != "" || len(excel.requests) != 0 {
		t.Error("exporter must not be called for an empty sequence")
	}
}

func TestTIFWorkflow_OutOfOrderCalls(t *testing.T) {
	src := grid2x2([]float64{200, 200, 200, 200})
	wf := usecases.NewTIFWorkflow(openerFor(src), nil, 100, quietLogger())
	ctx := context.Background()

	_ = wf.Initialize(domain.GeoPoint{Lon: 0.5, Lat: 0.5})
	if _, err := wf.Estimate(ctx, 10, false); !domain.IsPrecondition(err) {
		t.Errorf("estimate before read: expected PreconditionError, got %v", err)
	}
	if _, err := wf.Export(ctx, "x", "/out", domain.ExportExcel); !domain.IsPrecondition(err) {
		t.Errorf("export before estimate: expected PreconditionError, got %v", err)
	}

	_, _ = wf.ReadFile(ctx, "x.tif")
	if _, err := wf.ReadFile(ctx, "y.tif"); !domain.IsPrecondition(err) {
		t.Errorf("second read without initialize: expected PreconditionError, got %v", err)
	}

	_, _ = wf.Estimate(ctx, 10, false)
	if _, err := wf.Export(ctx, "x", "/out", domain.ExportPNG); !domain.IsInvalidInput(err) {
		t.Errorf("unregistered exporter: expected InvalidInputError, got %v", err)
	}
}

func TestTIFWorkflow_InitializeResets(t *testing.T) {
	src := grid2x2([]float64{200, 200, 200, 200})
	wf := usecases.NewTIFWorkflow(openerFor(src), nil, 100, quietLogger())
	ctx := context.Background()

	_ = wf.Initialize(domain.GeoPoint{Lon: 0.5, Lat: 0.5})
	_, _ = wf.ReadFile(ctx, "x.tif")
	_, _ = wf.Estimate(ctx, 10, false)

	if err := wf.Initialize(domain.GeoPoint{Lon: 1, Lat: 1}); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	if !src.closed {
		t.Error("expected previous raster closed on Initialize")
	}
	if wf.Result() != nil {
		t.Error("expected result cleared on Initialize")
	}
	if _, err := wf.Export(ctx, "x", "/out", domain.ExportNone); !domain.IsPrecondition(err) {
		t.Errorf("expected previous result discarded, got %v", err)
	}
}

func TestTIFWorkflow_OpenFailure(t *testing.T) {
	wf := usecases.NewTIFWorkflow(&mockOpener{}, nil, 100, quietLogger())
	_ = wf.Initialize(domain.GeoPoint{})

	if _, err := wf.ReadFile(context.Background(), "missing.tif"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := wf.Estimate(context.Background(), 1, false); !domain.IsPrecondition(err) {
		t.Errorf("expected PreconditionError after failed open, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	reg := usecases.NewRegistry()
	reg.Register(usecases.WorkflowTIF, func() ports.Workflow {
		return usecases.NewTIFWorkflow(&mockOpener{}, nil, 100, quietLogger())
	})

	wf, err := reg.New("tif")
	if err != nil || wf == nil {
		t.Fatalf("expected tif workflow, got %v, %v", wf, err)
	}
	if _, err := reg.New("hdf"); !domain.IsInvalidInput(err) {
		t.Errorf("expected InvalidInputError for unknown key, got %v", err)
	}
	if keys := reg.Keys(); len(keys) != 1 || keys[0] != "tif" {
		t.Errorf("unexpected keys %v", keys)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	reg.Register("tif", func() ports.Workflow { return nil })
}

func TestDefaultRegistry(t *testing.T) {
	reg := usecases.DefaultRegistry(&mockOpener{}, nil, 100, quietLogger())
	if keys := reg.Keys(); len(keys) != 1 || keys[0] != usecases.WorkflowTIF {
		t.Fatalf("unexpected keys %v", keys)
	}
	a, _ := reg.New(usecases.WorkflowTIF)
	b, _ := reg.New(usecases.WorkflowTIF)
	if a == b {
		t.Error("expected a fresh workflow per call")
	}
}

func TestTIFWorkflow_RestoreThenExport(t *testing.T) {
	excel := &mockExporter{kind: domain.ExportExcel}
	opener := &mockOpener{}
	wf := usecases.NewTIFWorkflow(opener, []ports.ResultExporter{excel}, 100, quietLogger())
	ctx := context.Background()

	if err := wf.Restore("a.tif", 5, false, nil); !domain.IsPrecondition(err) {
		t.Errorf("nil result: expected PreconditionError, got %v", err)
	}

	_ = wf.Initialize(domain.GeoPoint{Lon: 0.5, Lat: 0.5})
	match := domain.Sample{Level: 1, Status: domain.StatusMatch}
	result := &domain.ScanResult{Matched: []domain.Sample{match}, Validated: []domain.Sample{match}}
	if err := wf.Restore("a.tif", 5, true, result); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if err := wf.Restore("a.tif", 5, true, result); !domain.IsPrecondition(err) {
		t.Errorf("second restore: expected PreconditionError, got %v", err)
	}
	if wf.Result() != result {
		t.Error("expected Result to return the restored estimate")
	}

	out, err := wf.Export(ctx, "a", "/out", domain.ExportExcel)
	if err != nil || out != "/out/a.xlsx" {
		t.Fatalf("export: %q, %v", out, err)
	}
	if len(opener.opened) != 0 {
		t.Error("restore must not open the raster")
	}
	if req := excel.requests[0]; req.ToleranceKm != 5 || len(req.Samples) != 1 {
		t.Errorf("unexpected export request %+v", req)
	}
}
