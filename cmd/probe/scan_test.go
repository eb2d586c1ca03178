package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"golang.org/x/image/tiff"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
	"github.com/samirrijal/tifprobe/internal/pkg/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeScene writes a 2x2 TIFF of value 200 whose pixel (0,0) covers
// lon [0,1] x lat [0,1], georeferenced by a world file.
func writeScene(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	path := filepath.Join(dir, name+".tif")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := tiff.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".tfw"), []byte("1\n0\n0\n-1\n0.5\n0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func probeConfig(dir string) config.ProbeConfig {
	return config.ProbeConfig{
		InputDir:            dir,
		OutputDir:           filepath.Join(dir, "out"),
		TargetLon:           0.5,
		TargetLat:           0.5,
		ToleranceKm:         120,
		Export:              "excel",
		Workflow:            "tif",
		BackgroundThreshold: 100,
	}
}

func newService(p config.ProbeConfig) *usecases.ValidationService {
	cfg := &config.Config{Probe: p}
	return usecases.NewValidationService(newRegistry(cfg, quietLogger()), nil, nil, nil, quietLogger())
}

func TestRunScan_Directory(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, "b")
	writeScene(t, dir, "a")
	if err := os.WriteFile(filepath.Join(dir, "broken.tif"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := probeConfig(dir)
	items, err := runScan(context.Background(), newService(p), p, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if filepath.Base(items[0].Path) != "a.tif" || items[0].Report == nil {
		t.Errorf("unexpected first item %+v", items[0])
	}
	// (1,1) is ~157 km away, outside the tolerance
	if r := items[0].Report.Run; r.MatchedCount != 1 || r.ValidatedCount != 3 {
		t.Errorf("unexpected counts %+v", r)
	}
	if _, err := os.Stat(items[0].Report.Run.ExportPath); err != nil {
		t.Errorf("expected workbook on disk: %v", err)
	}
	if countFailed(items) != 1 {
		t.Errorf("expected broken.tif to fail, got %+v", items)
	}

	var buf bytes.Buffer
	if err := printSummary(&buf, items); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "FILE") || strings.Count(out, "\n") != 4 {
		t.Errorf("unexpected summary:\n%s", out)
	}
}

func TestRunScan_SingleFileMatchOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir, "scene")

	p := probeConfig(dir)
	p.MatchOnly = true
	p.Export = "none"
	items, err := runScan(context.Background(), newService(p), p, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	r := items[0].Report
	if len(r.Matched) != 1 || len(r.Validated) != 0 || r.Run.PixelsVisited != 1 {
		t.Errorf("expected first-match stop, got %+v", r.Run)
	}

	var buf bytes.Buffer
	if err := printJSON(&buf, items); err != nil {
		t.Fatal(err)
	}
	var decoded usecases.BatchItem
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected a JSON line: %v", err)
	}
	if decoded.Report.Run.MatchedCount != 1 {
		t.Errorf("unexpected decoded item %+v", decoded)
	}
}

func TestRunScan_NotGeoreferenced(t *testing.T) {
	dir := t.TempDir()
	path := writeScene(t, dir, "plain")
	if err := os.Remove(filepath.Join(dir, "plain.tfw")); err != nil {
		t.Fatal(err)
	}

	p := probeConfig(dir)
	_, err := runScan(context.Background(), newService(p), p, path)
	if !domain.IsPrecondition(err) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "scan"}
	addScanFlags(cmd)
	if err := cmd.ParseFlags([]string{"--lon", "-3.5", "--match-only", "--export", "png"}); err != nil {
		t.Fatal(err)
	}

	p := config.ProbeConfig{TargetLon: 1, TargetLat: 2, ToleranceKm: 5, Export: "excel", InputDir: "./data"}
	applyFlags(cmd, &p)

	if p.TargetLon != -3.5 || !p.MatchOnly || p.Export != "png" {
		t.Errorf("flags not applied: %+v", p)
	}
	if p.TargetLat != 2 || p.ToleranceKm != 5 || p.InputDir != "./data" {
		t.Errorf("unset flags must keep config values: %+v", p)
	}

	req := scanRequest(p)
	if req.Target != (domain.GeoPoint{Lon: -3.5, Lat: 2}) || !req.StopOnFirstMatch || req.Export != domain.ExportPNG {
		t.Errorf("unexpected request %+v", req)
	}
	if in := batchInput(p); in.Dir != "./data" || in.Request.ToleranceKm != 5 {
		t.Errorf("unexpected batch input %+v", in)
	}
}
