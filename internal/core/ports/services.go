package ports

import (
	"context"

	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// EventPublisher publishes scan events to a message broker.
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, run *domain.ScanRun) error
	PublishMatchFound(ctx context.Context, run *domain.ScanRun, match domain.Sample) error
}

// EventSubscriber subscribes to scan events from a message broker.
type EventSubscriber interface {
	SubscribeScanCompleted(ctx context.Context, handler func(ctx context.Context, run *domain.ScanRun) error) error
	SubscribeMatchFound(ctx context.Context, handler func(ctx context.Context, event *domain.MatchEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
