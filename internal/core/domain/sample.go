package domain

import (
	"fmt"
	"math"
	"time"
)

// Status classifies a scanned pixel.
type Status string

const (
	// StatusMatch means the pixel footprint contains the target.
	StatusMatch Status = "Match"
	// StatusClose means the pixel centre lies within the tolerance.
	StatusClose Status = "Close"
)

// DefaultBackgroundThreshold is the value below which pixels are ignored when
// the raster declares no no-data sentinel.
const DefaultBackgroundThreshold = 100

// Sample is the outcome of classifying one pixel.
type Sample struct {
	Level      int     `json:"level"` // 1-based band index
	Row        int     `json:"row"`
	Col        int     `json:"col"`
	DistanceKm float64 `json:"distance_km"`
	Lon        float64 `json:"lon"`
	Lat        float64 `json:"lat"`
	Footprint  Bounds  `json:"footprint"`
	Status     Status  `json:"status"`
	Value      float64 `json:"value"`
}

// ExportHeader lists the tabular columns of an exported sample.
var ExportHeader = []string{
	"level", "distance_km", "lon", "lat",
	"lon_max", "lon_min", "lat_max", "lat_min",
	"status", "value",
}

// Columns returns the sample in ExportHeader order.
func (s Sample) Columns() []any {
	return []any{
		s.Level, s.DistanceKm, s.Lon, s.Lat,
		s.Footprint.MaxLon, s.Footprint.MinLon, s.Footprint.MaxLat, s.Footprint.MinLat,
		string(s.Status), s.Value,
	}
}

// ScanOptions fixes the parameters of one scan.
type ScanOptions struct {
	Target              GeoPoint `json:"target"`
	ToleranceKm         float64  `json:"tolerance_km"`
	StopOnFirstMatch    bool     `json:"stop_on_first_match"`
	BackgroundThreshold float64  `json:"background_threshold"`
}

// Validate checks the options before any pixel is read.
func (o ScanOptions) Validate() error {
	if err := o.Target.Validate(); err != nil {
		return err
	}
	if math.IsNaN(o.ToleranceKm) || o.ToleranceKm < 0 {
		return &InvalidInputError{Field: "tolerance_km", Reason: fmt.Sprintf("must be a non-negative number, got %v", o.ToleranceKm)}
	}
	if math.IsNaN(o.BackgroundThreshold) {
		return &InvalidInputError{Field: "background_threshold", Reason: "must be a number"}
	}
	return nil
}

// ScanResult holds the samples accumulated by one scan.
type ScanResult struct {
	Matched       []Sample `json:"matched"`
	Validated     []Sample `json:"validated"`
	PixelsVisited int64    `json:"pixels_visited"`
	Stopped       bool     `json:"stopped"` // terminated on first match
}

// Selected returns the sequence an exporter should write for the given mode.
func (r *ScanResult) Selected(stopOnFirstMatch bool) []Sample {
	if stopOnFirstMatch {
		return r.Matched
	}
	return r.Validated
}

// ExportKind selects a result exporter.
type ExportKind string

const (
	ExportExcel ExportKind = "excel"
	ExportPNG   ExportKind = "png"
	ExportNone  ExportKind = "none"
)

// ScanRun is the persisted summary of one file's validation.
type ScanRun struct {
	ID               string        `json:"id"`
	Workflow         string        `json:"workflow"`
	Path             string        `json:"path"`
	FileName         string        `json:"file_name"`
	Target           GeoPoint      `json:"target"`
	ToleranceKm      float64       `json:"tolerance_km"`
	StopOnFirstMatch bool          `json:"stop_on_first_match"`
	Width            int           `json:"width"`
	Height           int           `json:"height"`
	BandCount        int           `json:"band_count"`
	PixelsVisited    int64         `json:"pixels_visited"`
	MatchedCount     int           `json:"matched_count"`
	ValidatedCount   int           `json:"validated_count"`
	ExportPath       string        `json:"export_path,omitempty"`
	Warning          string        `json:"warning,omitempty"`
	Duration         time.Duration `json:"duration_ns"`
	CreatedAt        time.Time     `json:"created_at"`
}

// ScanReport is a scan run together with its samples.
type ScanReport struct {
	Run       ScanRun  `json:"run"`
	Matched   []Sample `json:"matched"`
	Validated []Sample `json:"validated"`
}

// MatchEvent announces the first Match of a scan run.
type MatchEvent struct {
	RunID    string    `json:"run_id"`
	Workflow string    `json:"workflow"`
	Path     string    `json:"path"`
	Target   GeoPoint  `json:"target"`
	Sample   Sample    `json:"sample"`
	At       time.Time `json:"at"`
}

// Sequence names one of the two result sequences.
type Sequence string

const (
	SequenceMatched   Sequence = "matched"
	SequenceValidated Sequence = "validated"
)

// ParseSequence accepts "matched" or "validated" (default).
func ParseSequence(s string) (Sequence, error) {
	switch Sequence(s) {
	case "", SequenceValidated:
		return SequenceValidated, nil
	case SequenceMatched:
		return SequenceMatched, nil
	}
	return "", &InvalidInputError{Field: "sequence", Reason: fmt.Sprintf("unknown sequence %q", s)}
}

// ParseExportKind accepts "excel", "png", "none"; empty means excel.
func ParseExportKind(s string) (ExportKind, error) {
	switch ExportKind(s) {
	case "", ExportExcel:
		return ExportExcel, nil
	case ExportPNG:
		return ExportPNG, nil
	case ExportNone:
		return ExportNone, nil
	}
	return "", &InvalidInputError{Field: "export", Reason: fmt.Sprintf("unknown export kind %q", s)}
}
