package http

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/tifprobe/internal/core/usecases"
)

// Pinger is a backing service that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Validation *usecases.ValidationService
	Scans      *usecases.ScanService
	NATS       *nats.Conn
	DB         Pinger
	Cache      Pinger

	// InputDir confines POST /v1/scans paths; relative paths resolve under it.
	InputDir string
	// OutputDir receives exported artifacts.
	OutputDir   string
	ScanTimeout time.Duration
	RateLimit   int
}
