// Package chart renders result samples as a scatter plot.
package chart

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/pkg/geospatial"
)

const size = 8 * vg.Inch

// Exporter writes a PNG scatter of sample centres, one series per band, with
// the target marked in red.
type Exporter struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExporter creates a new Exporter.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger, now: time.Now}
}

func (e *Exporter) Kind() domain.ExportKind { return domain.ExportPNG }

// Export writes <OutputDir>/<FileName>_<YYYYMMDD_HHMMSS>.png.
func (e *Exporter) Export(ctx context.Context, req ports.ExportRequest) (string, error) {
	dir := req.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", req.FileName, e.now().Format("20060102_150405")))

	p, err := render(req)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := p.Save(size, size, path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	e.logger.Debug("plot written", "path", path, "points", len(req.Samples))
	return path, nil
}

func render(req ports.ExportRequest) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Target (%.5f, %.5f)", req.Target.Lon, req.Target.Lat)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Add(plotter.NewGrid())

	byLevel := make(map[int]plotter.XYs)
	for _, s := range req.Samples {
		byLevel[s.Level] = append(byLevel[s.Level], plotter.XY{X: s.Lon, Y: s.Lat})
	}
	levels := make([]int, 0, len(byLevel))
	for l := range byLevel {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	for i, l := range levels {
		sc, err := plotter.NewScatter(byLevel[l])
		if err != nil {
			return nil, fmt.Errorf("band %d series: %w", l, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(i + 1)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("band %d", l), sc)
	}

	target, err := plotter.NewScatter(plotter.XYs{{X: req.Target.Lon, Y: req.Target.Lat}})
	if err != nil {
		return nil, err
	}
	target.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	target.GlyphStyle.Shape = draw.CrossGlyph{}
	target.GlyphStyle.Radius = vg.Points(6)
	p.Add(target)
	p.Legend.Add("target", target)

	// keep the whole tolerance circle in frame
	if req.ToleranceKm > 0 {
		minLon, minLat, maxLon, maxLat := geospatial.BoundingBox(req.Target.Lon, req.Target.Lat, req.ToleranceKm)
		p.X.Min = math.Min(p.X.Min, minLon)
		p.X.Max = math.Max(p.X.Max, maxLon)
		p.Y.Min = math.Min(p.Y.Min, minLat)
		p.Y.Max = math.Max(p.Y.Max, maxLat)
	}
	return p, nil
}
