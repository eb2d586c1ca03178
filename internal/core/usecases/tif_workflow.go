package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/tifprobe/internal/core/usecases")

// TIFWorkflow runs the proximity scan over one GeoTIFF at a time.
type TIFWorkflow struct {
	opener              ports.RasterOpener
	scanner             *ProximityScanner
	exporters           map[domain.ExportKind]ports.ResultExporter
	backgroundThreshold float64
	logger              *slog.Logger

	// per-file state, reset by Initialize
	target      domain.GeoPoint
	path        string
	src         ports.RasterSource
	toleranceKm float64
	stopOnMatch bool
	result      *domain.ScanResult
}

// NewTIFWorkflow creates a new TIFWorkflow.
func NewTIFWorkflow(
	opener ports.RasterOpener,
	exporters []ports.ResultExporter,
	backgroundThreshold float64,
	logger *slog.Logger,
) *TIFWorkflow {
	if logger == nil {
		logger = slog.Default()
	}
	byKind := make(map[domain.ExportKind]ports.ResultExporter, len(exporters))
	for _, e := range exporters {
		byKind[e.Kind()] = e
	}
	logger = logger.With("workflow", WorkflowTIF)
	return &TIFWorkflow{
		opener:              opener,
		scanner:             NewProximityScanner(logger),
		exporters:           byKind,
		backgroundThreshold: backgroundThreshold,
		logger:              logger,
	}
}

// Initialize closes any open raster, discards the previous result and fixes
// the target for the next file.
func (w *TIFWorkflow) Initialize(target domain.GeoPoint) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		w.logger.Warn("close previous raster", "path", w.path, "error", err)
	}
	w.path = ""
	w.result = nil
	w.toleranceKm = 0
	w.stopOnMatch = false
	w.target = target
	w.logger.Info("target selected", "lon", target.Lon, "lat", target.Lat)
	return nil
}

// ReadFile opens the raster at path.
func (w *TIFWorkflow) ReadFile(ctx context.Context, path string) (*domain.RasterInfo, error) {
	_, span := tracer.Start(ctx, "workflow.read_file", trace.WithAttributes(attribute.String(telemetry.AttrRasterPath, path)))
	defer span.End()

	if w.src != nil {
		return nil, &domain.PreconditionError{Op: "read_file", Reason: "a raster is already open; call Initialize first"}
	}

	w.logger.Info("reading raster", "path", path)
	src, err := w.opener.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w.src = src
	w.path = path

	info := &domain.RasterInfo{
		Path:      path,
		Width:     src.Width(),
		Height:    src.Height(),
		BandCount: src.BandCount(),
		Transform: src.Transform(),
	}
	if nd, ok := src.NoData(); ok {
		info.NoData = &nd
	}

	span.SetAttributes(
		attribute.Int(telemetry.AttrRasterWidth, info.Width),
		attribute.Int(telemetry.AttrRasterHeight, info.Height),
		attribute.Int(telemetry.AttrRasterBands, info.BandCount),
	)
	w.logger.Info("raster opened",
		"path", path,
		"width", info.Width,
		"height", info.Height,
		"bands", info.BandCount,
		"transform", info.Transform,
		"nodata", info.NoData)
	return info, nil
}

// Estimate scans the open raster.
func (w *TIFWorkflow) Estimate(ctx context.Context, toleranceKm float64, stopOnFirstMatch bool) (*domain.ScanResult, error) {
	_, span := tracer.Start(ctx, "workflow.estimate", trace.WithAttributes(
		attribute.Float64(telemetry.AttrScanToleranceKm, toleranceKm),
		attribute.Bool(telemetry.AttrScanStopOnMatch, stopOnFirstMatch),
	))
	defer span.End()

	if w.src == nil {
		err := &domain.PreconditionError{Op: "estimate", Reason: "no raster opened; call ReadFile first"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	opts := domain.ScanOptions{
		Target:              w.target,
		ToleranceKm:         toleranceKm,
		StopOnFirstMatch:    stopOnFirstMatch,
		BackgroundThreshold: w.backgroundThreshold,
	}
	result, err := w.scanner.Scan(w.src, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	w.toleranceKm = toleranceKm
	w.stopOnMatch = stopOnFirstMatch
	w.result = result

	span.SetAttributes(
		attribute.Int64(telemetry.AttrScanPixelsVisited, result.PixelsVisited),
		attribute.Int(telemetry.AttrScanMatched, len(result.Matched)),
		attribute.Int(telemetry.AttrScanValidated, len(result.Validated)),
	)
	return result, nil
}

// Restore adopts a cached estimate. It is only valid right after Initialize.
func (w *TIFWorkflow) Restore(path string, toleranceKm float64, stopOnFirstMatch bool, result *domain.ScanResult) error {
	if result == nil {
		return &domain.PreconditionError{Op: "restore", Reason: "no result to restore"}
	}
	if w.src != nil || w.result != nil {
		return &domain.PreconditionError{Op: "restore", Reason: "workflow already holds a file; call Initialize first"}
	}
	w.path = path
	w.toleranceKm = toleranceKm
	w.stopOnMatch = stopOnFirstMatch
	w.result = result
	w.logger.Debug("estimate restored", "path", path, "matched", len(result.Matched), "validated", len(result.Validated))
	return nil
}

// Export writes Matched when the scan stopped on first match, Validated
// otherwise.
func (w *TIFWorkflow) Export(ctx context.Context, fileName, outputDir string, kind domain.ExportKind) (string, error) {
	ctx, span := tracer.Start(ctx, "workflow.export", trace.WithAttributes(attribute.String(telemetry.AttrExportKind, string(kind))))
	defer span.End()

	if w.result == nil {
		return "", &domain.PreconditionError{Op: "export", Reason: "nothing estimated; call Estimate first"}
	}
	if kind == domain.ExportNone {
		return "", nil
	}
	exporter, ok := w.exporters[kind]
	if !ok {
		return "", &domain.InvalidInputError{Field: "export", Reason: fmt.Sprintf("no exporter for %q", kind)}
	}

	samples := w.result.Selected(w.stopOnMatch)
	if len(samples) == 0 {
		w.logger.Warn("nothing to export", "path", w.path, "stop_on_first_match", w.stopOnMatch)
		return "", domain.ErrEmptyResult
	}

	out, err := exporter.Export(ctx, ports.ExportRequest{
		FileName:    fileName,
		OutputDir:   outputDir,
		Target:      w.target,
		ToleranceKm: w.toleranceKm,
		Samples:     samples,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("export %s: %w", kind, err)
	}

	w.logger.Info("results exported", "path", out, "rows", len(samples))
	return out, nil
}

func (w *TIFWorkflow) Result() *domain.ScanResult {
	return w.result
}

// Close releases the open raster, if any.
func (w *TIFWorkflow) Close() error {
	if w.src == nil {
		return nil
	}
	err := w.src.Close()
	w.src = nil
	return err
}
