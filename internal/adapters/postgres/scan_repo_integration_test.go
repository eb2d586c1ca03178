//go:build integration
// +build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/tifprobe/internal/adapters/postgres"
	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/pkg/config"
)

// setupTestDB connects to the database named by the test config. The schema
// from migrations/ must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("tifprobe-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 5)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestScanRepo_CreateAndRead(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewScanRepo(db)
	ctx := context.Background()

	match := domain.Sample{
		Level: 1, Row: 0, Col: 0, DistanceKm: 0, Lon: 0.5, Lat: 0.5,
		Footprint: domain.Bounds{MinLon: 0, MaxLon: 1, MinLat: 0, MaxLat: 1},
		Status:    domain.StatusMatch, Value: 200,
	}
	near := match
	near.Col, near.Lon, near.DistanceKm, near.Status = 1, 1.5, 111.19, domain.StatusClose

	report := &domain.ScanReport{
		Run: domain.ScanRun{
			ID:             uuid.NewString(),
			Workflow:       "tif",
			Path:           "/data/it.tif",
			FileName:       "it",
			Target:         domain.GeoPoint{Lon: 0.5, Lat: 0.5},
			ToleranceKm:    200,
			Width:          2,
			Height:         2,
			BandCount:      1,
			PixelsVisited:  4,
			MatchedCount:   1,
			ValidatedCount: 2,
			Duration:       15 * time.Millisecond,
			CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		},
		Matched:   []domain.Sample{match},
		Validated: []domain.Sample{match, near},
	}
	if err := repo.Create(ctx, report); err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), `DELETE FROM scan_runs WHERE id = $1`, report.Run.ID)
	})

	run, err := repo.GetByID(ctx, report.Run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.Path != "/data/it.tif" || run.Duration != 15*time.Millisecond || run.ExportPath != "" {
		t.Errorf("unexpected run %+v", run)
	}

	validated, err := repo.Samples(ctx, run.ID, domain.SequenceValidated)
	if err != nil {
		t.Fatalf("samples: %v", err)
	}
	if len(validated) != 2 || validated[0].Status != domain.StatusMatch || validated[1].Col != 1 {
		t.Errorf("unexpected validated samples %+v", validated)
	}

	runs, total, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total < 1 || len(runs) == 0 {
		t.Errorf("expected at least one run, got %d/%d", len(runs), total)
	}
}

func TestScanRepo_GetByID_NotFound(t *testing.T) {
	repo := postgres.NewScanRepo(setupTestDB(t))
	_, err := repo.GetByID(context.Background(), uuid.NewString())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
