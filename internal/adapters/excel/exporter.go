package excel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
)

const (
	sheetResults = "results"
	sheetTarget  = "target"
)

// Exporter writes result samples to an .xlsx workbook.
type Exporter struct {
	logger  *slog.Logger
	now     func() time.Time
	maxRows int
}

// NewExporter creates a new Exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	// one worksheet row is taken by the header
	return &Exporter{logger: logger, now: time.Now, maxRows: excelize.TotalRows - 1}
}

func (e *Exporter) Kind() domain.ExportKind { return domain.ExportExcel }

// Export writes <OutputDir>/<FileName>_<YYYYMMDD_HHMMSS>.xlsx with one header
// row and one row per sample on the "results" sheet. Samples beyond the
// worksheet row limit are dropped with a warning; the "target" sheet records
// how many were left out.
func (e *Exporter) Export(ctx context.Context, req ports.ExportRequest) (string, error) {
	dir := req.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", req.FileName, e.now().Format("20060102_150405")))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetResults); err != nil {
		return "", err
	}
	sw, err := f.NewStreamWriter(sheetResults)
	if err != nil {
		return "", err
	}

	header := make([]interface{}, len(domain.ExportHeader))
	for i, h := range domain.ExportHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return "", err
	}
	samples, dropped := truncateRows(req.Samples, e.maxRows)
	if dropped > 0 {
		e.logger.Warn("sample rows exceed worksheet limit, truncating",
			"file", req.FileName, "written", len(samples), "dropped", dropped)
	}
	for i, s := range samples {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		if err := sw.SetRow(cell, s.Columns()); err != nil {
			return "", fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(sheetTarget); err != nil {
		return "", err
	}
	summary := [][]interface{}{
		{"lon", req.Target.Lon},
		{"lat", req.Target.Lat},
		{"tolerance_km", req.ToleranceKm},
		{"rows", len(samples)},
		{"truncated", dropped},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(sheetTarget, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return "", err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	e.logger.Debug("workbook written", "path", path, "rows", len(samples))
	return path, nil
}

// truncateRows caps samples at limit and reports how many were cut.
func truncateRows(samples []domain.Sample, limit int) ([]domain.Sample, int) {
	if limit <= 0 || len(samples) <= limit {
		return samples, 0
	}
	return samples[:limit], len(samples) - limit
}
