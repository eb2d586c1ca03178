package usecases

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/pkg/geospatial"
)

// ProximityScanner classifies every pixel of a raster against a target point.
// It holds no per-scan state, so one scanner may serve concurrent scans over
// independent sources.
type ProximityScanner struct {
	logger *slog.Logger
}

// NewProximityScanner creates a new ProximityScanner.
func NewProximityScanner(logger *slog.Logger) *ProximityScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProximityScanner{logger: logger}
}

// Scan walks bands in ascending order and pixels in row-major order.
//
// A pixel whose footprint contains the target is a Match and goes to both
// Matched and Validated. With StopOnFirstMatch the scan ends on the first
// Match and Validated is cleared. Otherwise pixels whose centre is within
// ToleranceKm are Close and go to Validated only.
//
// A nil source, including a typed nil pointer, is a PreconditionError.
func (s *ProximityScanner) Scan(src ports.RasterSource, opts domain.ScanOptions) (*domain.ScanResult, error) {
	if isNil(src) {
		return nil, &domain.PreconditionError{Op: "scan", Reason: "no raster opened"}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	gt := src.Transform()
	if !gt.Invertible() {
		return nil, &domain.PreconditionError{Op: "scan", Reason: fmt.Sprintf("transform %v is not invertible", gt)}
	}
	if gt.Rotated() {
		s.logger.Warn("rotated transform, footprints treated as axis-aligned", "transform", gt)
	}

	noData, hasNoData := src.NoData()
	skip := func(v float64) bool {
		if math.IsNaN(v) {
			return true
		}
		if hasNoData {
			return v == noData
		}
		return v < opts.BackgroundThreshold
	}

	target := opts.Target
	result := &domain.ScanResult{
		Matched:   []domain.Sample{},
		Validated: []domain.Sample{},
	}

	for level := 1; level <= src.BandCount(); level++ {
		band, err := src.ReadBand(level)
		if err != nil {
			return nil, fmt.Errorf("read band %d: %w", level, err)
		}
		if len(band.Data) != band.Width*band.Height {
			return nil, fmt.Errorf("band %d: %d values for %dx%d grid", level, len(band.Data), band.Width, band.Height)
		}

		var matched, nearby int
		for row := 0; row < band.Height; row++ {
			for col := 0; col < band.Width; col++ {
				result.PixelsVisited++

				value := band.At(row, col)
				if skip(value) {
					continue
				}

				lon, lat := geospatial.PixelCenter(gt, row, col)
				footprint := geospatial.Footprint(gt, row, col)
				dist := geospatial.HaversineKm(lon, lat, target.Lon, target.Lat)

				sample := domain.Sample{
					Level:      level,
					Row:        row,
					Col:        col,
					DistanceKm: dist,
					Lon:        lon,
					Lat:        lat,
					Footprint:  footprint,
					Value:      value,
				}

				switch {
				case footprint.Contains(target):
					sample.Status = domain.StatusMatch
					result.Matched = append(result.Matched, sample)
					result.Validated = append(result.Validated, sample)
					matched++

					if opts.StopOnFirstMatch {
						// drop everything accumulated so far, including Close samples
						result.Validated = []domain.Sample{}
						result.Stopped = true
						s.logger.Info("match found, stopping scan",
							"level", level, "row", row, "col", col,
							"distance_km", dist, "pixels_visited", result.PixelsVisited)
						return result, nil
					}

				case dist <= opts.ToleranceKm:
					sample.Status = domain.StatusClose
					result.Validated = append(result.Validated, sample)
					nearby++
				}
			}
		}

		s.logger.Debug("band scanned", "level", level, "matched", matched, "close", nearby)
	}

	s.logger.Info("scan complete",
		"bands", src.BandCount(),
		"pixels_visited", result.PixelsVisited,
		"matched", len(result.Matched),
		"validated", len(result.Validated))

	return result, nil
}

func isNil(src ports.RasterSource) bool {
	if src == nil {
		return true
	}
	v := reflect.ValueOf(src)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
