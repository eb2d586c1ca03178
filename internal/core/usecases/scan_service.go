package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
)

// recordTTL is how long recorded runs stay cached, in seconds. Runs are
// immutable once written, so this only bounds memory.
const recordTTL = 300

// ScanService serves recorded scan runs.
type ScanService struct {
	scans ports.ScanRepository
	cache ports.CacheService
}

// NewScanService creates a new ScanService. cache may be nil.
func NewScanService(scans ports.ScanRepository, cache ports.CacheService) *ScanService {
	return &ScanService{scans: scans, cache: cache}
}

// readThrough serves key from cache, falling back to load and filling the
// cache on success. Cache errors only cost a repository read.
func readThrough[T any](ctx context.Context, cache ports.CacheService, key string, load func() (T, error)) (T, error) {
	if cache != nil {
		if data, err := cache.Get(ctx, key); err == nil {
			var v T
			if json.Unmarshal(data, &v) == nil {
				return v, nil
			}
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if cache != nil {
		if data, err := json.Marshal(v); err == nil {
			_ = cache.Set(ctx, key, data, recordTTL)
		}
	}
	return v, nil
}

// GetByID returns a single scan run.
func (s *ScanService) GetByID(ctx context.Context, id string) (*domain.ScanRun, error) {
	if id == "" {
		return nil, &domain.InvalidInputError{Field: "id", Reason: "must not be empty"}
	}
	return readThrough(ctx, s.cache, "scan:run:"+id, func() (*domain.ScanRun, error) {
		return s.scans.GetByID(ctx, id)
	})
}

// List returns scan runs, newest first, with the total count. Listings are
// never cached since new runs arrive at any time.
func (s *ScanService) List(ctx context.Context, limit, offset int) ([]domain.ScanRun, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.scans.List(ctx, limit, max(offset, 0))
}

// Samples returns one result sequence of a scan run.
func (s *ScanService) Samples(ctx context.Context, id string, seq domain.Sequence) ([]domain.Sample, error) {
	if id == "" {
		return nil, &domain.InvalidInputError{Field: "id", Reason: "must not be empty"}
	}
	key := fmt.Sprintf("scan:samples:%s:%s", id, seq)
	return readThrough(ctx, s.cache, key, func() ([]domain.Sample, error) {
		return s.scans.Samples(ctx, id, seq)
	})
}
