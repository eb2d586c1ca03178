package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
)

func TestScanService_GetByID(t *testing.T) {
	repo := &mockScanRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.ScanRun, error) {
			return &domain.ScanRun{ID: id, FileName: "scene_01"}, nil
		},
	}

	svc := usecases.NewScanService(repo, nil)
	run, err := svc.GetByID(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ID != "abc-123" {
		t.Errorf("expected id abc-123, got %s", run.ID)
	}
}

func TestScanService_GetByID_Cached(t *testing.T) {
	calls := 0
	repo := &mockScanRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.ScanRun, error) {
			calls++
			return &domain.ScanRun{ID: id}, nil
		},
	}
	cache := newMockCache()
	svc := usecases.NewScanService(repo, cache)

	for i := 0; i < 3; i++ {
		if _, err := svc.GetByID(context.Background(), "run-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected repository hit once, got %d", calls)
	}
	var cached domain.ScanRun
	if err := json.Unmarshal(cache.data["scan:run:run-1"], &cached); err != nil || cached.ID != "run-1" {
		t.Errorf("expected run cached under scan:run:run-1, got %v", err)
	}
}

func TestScanService_GetByID_NotFound(t *testing.T) {
	svc := usecases.NewScanService(&mockScanRepo{}, nil)
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), ""); !domain.IsInvalidInput(err) {
		t.Errorf("expected InvalidInputError for empty id, got %v", err)
	}
}

func TestScanService_List_ClampLimit(t *testing.T) {
	called := false
	repo := &mockScanRepo{
		listFn: func(ctx context.Context, limit, offset int) ([]domain.ScanRun, int, error) {
			called = true
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			if offset != 0 {
				t.Errorf("expected negative offset reset to 0, got %d", offset)
			}
			return nil, 0, nil
		},
	}

	svc := usecases.NewScanService(repo, nil)
	_, _, _ = svc.List(context.Background(), 999, -5)
	if !called {
		t.Error("repo was not called")
	}
}

func TestScanService_Samples(t *testing.T) {
	repo := &mockScanRepo{
		samplesFn: func(ctx context.Context, runID string, seq domain.Sequence) ([]domain.Sample, error) {
			if seq != domain.SequenceMatched {
				t.Errorf("expected matched sequence, got %s", seq)
			}
			return []domain.Sample{{Level: 1, Status: domain.StatusMatch}}, nil
		},
	}

	svc := usecases.NewScanService(repo, nil)
	samples, err := svc.Samples(context.Background(), "run-1", domain.SequenceMatched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 || samples[0].Status != domain.StatusMatch {
		t.Errorf("unexpected samples %+v", samples)
	}
}
