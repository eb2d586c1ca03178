package http_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// loadSpec finds api/openapi.yaml above the test directory and parses it.
func loadSpec(t *testing.T) *openapi3.T {
	t.Helper()
	dir, _ := os.Getwd()
	for ; ; dir = filepath.Dir(dir) {
		path := filepath.Join(dir, "api", "openapi.yaml")
		if data, err := os.ReadFile(path); err == nil {
			spec, err := (&openapi3.Loader{}).LoadFromData(data)
			if err != nil {
				t.Fatalf("parse %s: %v", path, err)
			}
			return spec
		}
		if parent := filepath.Dir(dir); parent == dir {
			t.Fatal("api/openapi.yaml not found")
		}
	}
}

func TestOpenAPIDocument(t *testing.T) {
	spec := loadSpec(t)
	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("invalid document: %v", err)
	}

	for _, p := range []string{
		"/v1/health", "/v1/ready", "/v1/workflows",
		"/v1/scans", "/v1/scans/{id}", "/v1/scans/{id}/samples",
		"/graphql",
	} {
		if spec.Paths.Find(p) == nil {
			t.Errorf("path %s is not documented", p)
		}
	}
	for _, name := range []string{
		"GeoPoint", "Bounds", "ScanRequest", "ScanRun",
		"ScanReport", "Sample", "APIError", "Pagination",
	} {
		if spec.Components.Schemas[name] == nil {
			t.Errorf("schema %s is not documented", name)
		}
	}

	if spec.Info.Title != "tifprobe API" || spec.Info.Version != "1.0.0" {
		t.Errorf("unexpected info %q %q", spec.Info.Title, spec.Info.Version)
	}
	if len(spec.Servers) == 0 {
		t.Error("expected at least one server")
	}
}

func TestOpenAPIEnums(t *testing.T) {
	spec := loadSpec(t)

	export := spec.Components.Schemas["ScanRequest"].Value.Properties["export"].Value
	for _, kind := range []domain.ExportKind{domain.ExportExcel, domain.ExportPNG, domain.ExportNone} {
		if err := export.VisitJSON(string(kind)); err != nil {
			t.Errorf("export kind %q rejected: %v", kind, err)
		}
	}
	if err := export.VisitJSON("pdf"); err == nil {
		t.Error("expected unknown export kind rejected")
	}

	status := spec.Components.Schemas["Sample"].Value.Properties["status"].Value
	for _, s := range []domain.Status{domain.StatusMatch, domain.StatusClose} {
		if err := status.VisitJSON(string(s)); err != nil {
			t.Errorf("status %q rejected: %v", s, err)
		}
	}
}
