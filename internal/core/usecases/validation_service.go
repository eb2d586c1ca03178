package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/pkg/metrics"
)

// scanCacheTTL bounds how long a scan result is reused, in seconds.
const scanCacheTTL = 600

// ValidateRequest describes one file validation.
type ValidateRequest struct {
	Path             string            `json:"path"`
	Workflow         string            `json:"workflow"`
	Target           domain.GeoPoint   `json:"target"`
	ToleranceKm      float64           `json:"tolerance_km"`
	StopOnFirstMatch bool              `json:"stop_on_first_match"`
	Export           domain.ExportKind `json:"export"`
	OutputDir        string            `json:"output_dir"`
}

// BatchItem is the outcome of one file in a directory validation.
type BatchItem struct {
	Path   string             `json:"path"`
	Report *domain.ScanReport `json:"report,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// ValidationService runs workflows over raster files and records the results.
// Repository, cache and publisher are optional.
type ValidationService struct {
	registry  *Registry
	scans     ports.ScanRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewValidationService creates a new ValidationService.
func NewValidationService(
	registry *Registry,
	scans ports.ScanRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *ValidationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ValidationService{
		registry:  registry,
		scans:     scans,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Workflows lists the registered workflow keys.
func (s *ValidationService) Workflows() []string {
	return s.registry.Keys()
}

// Validate runs the requested workflow over a single file.
func (s *ValidationService) Validate(ctx context.Context, req ValidateRequest) (*domain.ScanReport, error) {
	if req.Path == "" {
		return nil, &domain.InvalidInputError{Field: "path", Reason: "must not be empty"}
	}
	if req.Workflow == "" {
		req.Workflow = WorkflowTIF
	}
	kind, err := domain.ParseExportKind(string(req.Export))
	if err != nil {
		return nil, err
	}
	req.Export = kind

	logger := s.logger.With("path", req.Path, "workflow", req.Workflow)

	start := s.now()
	report, err := s.run(ctx, req, logger)
	duration := s.now().Sub(start)
	metrics.ScanDuration.WithLabelValues(req.Workflow).Observe(duration.Seconds())
	if err != nil {
		metrics.ScansTotal.WithLabelValues(req.Workflow, "error").Inc()
		return nil, err
	}
	report.Run.Duration = duration

	metrics.ScansTotal.WithLabelValues(req.Workflow, outcome(report)).Inc()
	metrics.PixelsVisited.WithLabelValues(req.Workflow).Add(float64(report.Run.PixelsVisited))
	metrics.SamplesTotal.WithLabelValues(string(domain.StatusMatch)).Add(float64(len(report.Matched)))
	metrics.SamplesTotal.WithLabelValues(string(domain.StatusClose)).Add(float64(countStatus(report.Validated, domain.StatusClose)))

	s.record(ctx, report, logger)
	return report, nil
}

// cachedScan is what the scan cache holds: the raster summary and the
// estimate. Export, persistence and events always run per request.
type cachedScan struct {
	Info   domain.RasterInfo `json:"info"`
	Result domain.ScanResult `json:"result"`
}

func (s *ValidationService) loadScan(ctx context.Context, key string, logger *slog.Logger) *cachedScan {
	if s.cache == nil || key == "" {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues("scan_result").Inc()
		return nil
	}
	var c cachedScan
	if err := json.Unmarshal(data, &c); err != nil {
		// drop undecodable entries
		_ = s.cache.Delete(ctx, key)
		metrics.CacheMisses.WithLabelValues("scan_result").Inc()
		return nil
	}
	metrics.CacheHits.WithLabelValues("scan_result").Inc()
	logger.Debug("scan result served from cache")
	return &c
}

func (s *ValidationService) storeScan(ctx context.Context, key string, c cachedScan) {
	if s.cache == nil || key == "" {
		return
	}
	if data, err := json.Marshal(c); err == nil {
		_ = s.cache.Set(ctx, key, data, scanCacheTTL)
	}
}

// estimate fills wf with a result, from the cache when possible.
func (s *ValidationService) estimate(ctx context.Context, wf ports.Workflow, req ValidateRequest, logger *slog.Logger) (*domain.RasterInfo, *domain.ScanResult, error) {
	key := s.scanCacheKey(req)
	if c := s.loadScan(ctx, key, logger); c != nil {
		if err := wf.Restore(req.Path, req.ToleranceKm, req.StopOnFirstMatch, &c.Result); err == nil {
			return &c.Info, &c.Result, nil
		}
	}

	info, err := wf.ReadFile(ctx, req.Path)
	if err != nil {
		return nil, nil, err
	}
	result, err := wf.Estimate(ctx, req.ToleranceKm, req.StopOnFirstMatch)
	if err != nil {
		return nil, nil, err
	}
	s.storeScan(ctx, key, cachedScan{Info: *info, Result: *result})
	return info, result, nil
}

func (s *ValidationService) run(ctx context.Context, req ValidateRequest, logger *slog.Logger) (*domain.ScanReport, error) {
	wf, err := s.registry.New(req.Workflow)
	if err != nil {
		return nil, err
	}
	if err := wf.Initialize(req.Target); err != nil {
		return nil, err
	}
	defer func() {
		if err := wf.Close(); err != nil {
			logger.Warn("close raster", "error", err)
		}
	}()

	info, result, err := s.estimate(ctx, wf, req, logger)
	if err != nil {
		return nil, err
	}

	fileName := strings.TrimSuffix(filepath.Base(req.Path), filepath.Ext(req.Path))
	run := domain.ScanRun{
		ID:               uuid.NewString(),
		Workflow:         req.Workflow,
		Path:             req.Path,
		FileName:         fileName,
		Target:           req.Target,
		ToleranceKm:      req.ToleranceKm,
		StopOnFirstMatch: req.StopOnFirstMatch,
		Width:            info.Width,
		Height:           info.Height,
		BandCount:        info.BandCount,
		PixelsVisited:    result.PixelsVisited,
		MatchedCount:     len(result.Matched),
		ValidatedCount:   len(result.Validated),
		CreatedAt:        s.now().UTC(),
	}

	exported, err := wf.Export(ctx, fileName, req.OutputDir, req.Export)
	switch {
	case errors.Is(err, domain.ErrEmptyResult):
		run.Warning = err.Error()
	case err != nil:
		return nil, err
	default:
		run.ExportPath = exported
	}

	return &domain.ScanReport{Run: run, Matched: result.Matched, Validated: result.Validated}, nil
}

// record persists and publishes a finished report. Failures here are logged;
// the validation itself already succeeded.
func (s *ValidationService) record(ctx context.Context, report *domain.ScanReport, logger *slog.Logger) {
	if s.scans != nil {
		if err := s.scans.Create(ctx, report); err != nil {
			logger.Error("persist scan run", "id", report.Run.ID, "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishScanCompleted(ctx, &report.Run); err != nil {
			logger.Warn("publish scan completed", "error", err)
		}
		if len(report.Matched) > 0 {
			if err := s.publisher.PublishMatchFound(ctx, &report.Run, report.Matched[0]); err != nil {
				logger.Warn("publish match found", "error", err)
			}
		}
	}

	logger.Info("validation finished",
		"id", report.Run.ID,
		"matched", report.Run.MatchedCount,
		"validated", report.Run.ValidatedCount,
		"export", report.Run.ExportPath,
		"duration", report.Run.Duration.String())
}

// ValidateDir validates every *.tif and *.tiff file directly inside dir.
// Each file is independent: a failure is reported in its BatchItem and the
// batch continues.
func (s *ValidationService) ValidateDir(ctx context.Context, dir string, req ValidateRequest) ([]BatchItem, error) {
	files, err := ListRasterFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		s.logger.Warn("no raster files found", "dir", dir)
		return nil, nil
	}

	items := make([]BatchItem, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		r := req
		r.Path = f
		report, err := s.Validate(ctx, r)
		item := BatchItem{Path: f, Report: report}
		if err != nil {
			s.logger.Error("validation failed", "path", f, "error", err)
			item.Error = err.Error()
		}
		items = append(items, item)
	}
	return items, nil
}

// ListRasterFiles returns the *.tif and *.tiff files in dir, sorted.
func ListRasterFiles(dir string) ([]string, error) {
	if dir == "" {
		return nil, &domain.InvalidInputError{Field: "dir", Reason: "must not be empty"}
	}
	var files []string
	for _, pattern := range []string{"*.tif", "*.tiff"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// scanCacheKey identifies a scan by file identity and scan parameters. Export
// kind and output directory are not part of it: they only affect the export,
// which runs on every request. An empty key disables caching (e.g. the file
// cannot be stat'ed).
func (s *ValidationService) scanCacheKey(req ValidateRequest) string {
	fi, err := os.Stat(req.Path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("scan:result:%s:%s:%d:%d:%.7f:%.7f:%.4f:%t",
		req.Workflow, req.Path, fi.Size(), fi.ModTime().UnixNano(),
		req.Target.Lon, req.Target.Lat, req.ToleranceKm, req.StopOnFirstMatch)
}

func outcome(r *domain.ScanReport) string {
	switch {
	case len(r.Matched) > 0:
		return "matched"
	case len(r.Validated) > 0:
		return "validated"
	default:
		return "empty"
	}
}

func countStatus(samples []domain.Sample, status domain.Status) int {
	n := 0
	for _, s := range samples {
		if s.Status == status {
			n++
		}
	}
	return n
}
