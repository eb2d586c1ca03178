package main

import (
	"context"
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/tifprobe/internal/adapters/chart"
	"github.com/samirrijal/tifprobe/internal/adapters/excel"
	"github.com/samirrijal/tifprobe/internal/adapters/geotiff"
	natsadapter "github.com/samirrijal/tifprobe/internal/adapters/nats"
	"github.com/samirrijal/tifprobe/internal/adapters/postgres"
	"github.com/samirrijal/tifprobe/internal/adapters/valkey"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
	"github.com/samirrijal/tifprobe/internal/pkg/config"
	"github.com/samirrijal/tifprobe/internal/pkg/logging"
	"github.com/samirrijal/tifprobe/internal/pkg/telemetry"
	"github.com/samirrijal/tifprobe/internal/workflows"
)

func main() {
	cfg, err := config.Load("tifprobe-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closeLog, err := logging.SetupWithDir(cfg.Log.Level, cfg.Log.Format, cfg.Log.Dir)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeLog()

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	// Persistence is optional for batch runs; results still land in the summary
	var repo ports.ScanRepository
	if db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns); err != nil {
		logger.Warn("database unavailable, runs not persisted", "error", err)
	} else {
		defer db.Close()
		repo = postgres.NewScanRepo(db)
	}

	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		logger.Warn("valkey unavailable", "error", err)
	} else {
		defer c.Close()
		cache = c
	}

	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		logger.Warn("nats unavailable", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	exporters := []ports.ResultExporter{excel.NewExporter(logger), chart.NewExporter(logger)}
	registry := usecases.DefaultRegistry(geotiff.NewOpener(logger), exporters, cfg.Probe.BackgroundThreshold, logger)
	validation := usecases.NewValidationService(registry, repo, cache, publisher, logger)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.BatchValidationWorkflow)
	w.RegisterActivity(&workflows.BatchActivities{
		Validator: validation,
		Logger:    logger,
	})

	logger.Info("validation worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
