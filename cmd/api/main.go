package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/samirrijal/tifprobe/internal/adapters/chart"
	"github.com/samirrijal/tifprobe/internal/adapters/excel"
	"github.com/samirrijal/tifprobe/internal/adapters/geotiff"
	"github.com/samirrijal/tifprobe/internal/adapters/http"
	natsadapter "github.com/samirrijal/tifprobe/internal/adapters/nats"
	"github.com/samirrijal/tifprobe/internal/adapters/postgres"
	"github.com/samirrijal/tifprobe/internal/adapters/valkey"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
	"github.com/samirrijal/tifprobe/internal/pkg/config"
	"github.com/samirrijal/tifprobe/internal/pkg/logging"
	"github.com/samirrijal/tifprobe/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("tifprobe-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging, mirrored to <log.dir>/activity.log when set
	logger, closeLog, err := logging.SetupWithDir(cfg.Log.Level, cfg.Log.Format, cfg.Log.Dir)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	deps := &http.Dependencies{
		DB:          db,
		InputDir:    cfg.Probe.InputDir,
		OutputDir:   cfg.Probe.OutputDir,
		ScanTimeout: time.Duration(cfg.Server.ScanTimeout) * time.Second,
		RateLimit:   cfg.Server.RateLimit,
	}

	// Cache
	var cache ports.CacheService
	if c, err := valkey.New(cfg.Valkey.Addr); err != nil {
		logger.Warn("valkey unavailable", "error", err)
	} else {
		defer c.Close()
		cache = c
		deps.Cache = c
	}

	// NATS
	var publisher ports.EventPublisher
	if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		logger.Warn("nats unavailable", "error", err)
	} else {
		defer p.Close()
		publisher = p
	}

	// Raw NATS connection for WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		logger.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
	}

	// Workflows and use cases
	exporters := []ports.ResultExporter{excel.NewExporter(logger), chart.NewExporter(logger)}
	registry := usecases.DefaultRegistry(geotiff.NewOpener(logger), exporters, cfg.Probe.BackgroundThreshold, logger)
	scanRepo := postgres.NewScanRepo(db)

	deps.Validation = usecases.NewValidationService(registry, scanRepo, cache, publisher, logger)
	deps.Scans = usecases.NewScanService(scanRepo, cache)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "tifprobe API",
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps, logger)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("API server starting", "addr", addr, "input_dir", cfg.Probe.InputDir)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// In-flight scans get up to 30s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	logger.Info("server stopped")
}
