package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// ScanRepo implements ports.ScanRepository with pgx.
type ScanRepo struct {
	db *DB
}

// NewScanRepo creates a new ScanRepo.
func NewScanRepo(db *DB) *ScanRepo {
	return &ScanRepo{db: db}
}

const runColumns = `id, workflow, path, file_name, target_lon, target_lat, tolerance_km,
	stop_on_first_match, width, height, band_count, pixels_visited,
	matched_count, validated_count, COALESCE(export_path, ''), COALESCE(warning, ''),
	duration_ns, created_at`

// Create stores the run and both sample sequences in one transaction.
// Samples go through COPY.
func (r *ScanRepo) Create(ctx context.Context, report *domain.ScanReport) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	run := report.Run
	_, err = tx.Exec(ctx, `
		INSERT INTO scan_runs (id, workflow, path, file_name, target_lon, target_lat, tolerance_km,
		                       stop_on_first_match, width, height, band_count, pixels_visited,
		                       matched_count, validated_count, export_path, warning, duration_ns, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''), NULLIF($16, ''), $17, $18)
	`, run.ID, run.Workflow, run.Path, run.FileName, run.Target.Lon, run.Target.Lat, run.ToleranceKm,
		run.StopOnFirstMatch, run.Width, run.Height, run.BandCount, run.PixelsVisited,
		run.MatchedCount, run.ValidatedCount, run.ExportPath, run.Warning, int64(run.Duration), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	rows := sampleRows(run.ID, domain.SequenceMatched, report.Matched)
	rows = append(rows, sampleRows(run.ID, domain.SequenceValidated, report.Validated)...)
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"scan_samples"},
			[]string{"run_id", "sequence", "ord", "level", "row_idx", "col_idx", "distance_km",
				"lon", "lat", "lon_min", "lon_max", "lat_min", "lat_max", "status", "value"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy samples: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func sampleRows(runID string, seq domain.Sequence, samples []domain.Sample) [][]any {
	rows := make([][]any, 0, len(samples))
	for i, s := range samples {
		rows = append(rows, []any{
			runID, string(seq), i, s.Level, s.Row, s.Col, s.DistanceKm,
			s.Lon, s.Lat, s.Footprint.MinLon, s.Footprint.MaxLon, s.Footprint.MinLat, s.Footprint.MaxLat,
			string(s.Status), s.Value,
		})
	}
	return rows
}

// GetByID returns a run by UUID.
func (r *ScanRepo) GetByID(ctx context.Context, id string) (*domain.ScanRun, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+runColumns+` FROM scan_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns runs newest first together with the total count.
func (r *ScanRepo) List(ctx context.Context, limit, offset int) ([]domain.ScanRun, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM scan_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM scan_runs
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	runs := []domain.ScanRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *run)
	}
	return runs, total, rows.Err()
}

// Samples returns one sequence of a run in scan order.
func (r *ScanRepo) Samples(ctx context.Context, runID string, seq domain.Sequence) ([]domain.Sample, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT level, row_idx, col_idx, distance_km, lon, lat,
		       lon_min, lon_max, lat_min, lat_max, status, value
		FROM scan_samples
		WHERE run_id = $1 AND sequence = $2
		ORDER BY ord
	`, runID, string(seq))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []domain.Sample{}
	for rows.Next() {
		var s domain.Sample
		var status string
		if err := rows.Scan(
			&s.Level, &s.Row, &s.Col, &s.DistanceKm, &s.Lon, &s.Lat,
			&s.Footprint.MinLon, &s.Footprint.MaxLon, &s.Footprint.MinLat, &s.Footprint.MaxLat,
			&status, &s.Value,
		); err != nil {
			return nil, err
		}
		s.Status = domain.Status(status)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func scanRun(row pgx.Row) (*domain.ScanRun, error) {
	var run domain.ScanRun
	var durationNs int64
	var createdAt time.Time
	if err := row.Scan(
		&run.ID, &run.Workflow, &run.Path, &run.FileName, &run.Target.Lon, &run.Target.Lat, &run.ToleranceKm,
		&run.StopOnFirstMatch, &run.Width, &run.Height, &run.BandCount, &run.PixelsVisited,
		&run.MatchedCount, &run.ValidatedCount, &run.ExportPath, &run.Warning,
		&durationNs, &createdAt,
	); err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationNs)
	run.CreatedAt = createdAt.UTC()
	return &run, nil
}
