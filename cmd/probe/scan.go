package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samirrijal/tifprobe/internal/adapters/chart"
	"github.com/samirrijal/tifprobe/internal/adapters/excel"
	"github.com/samirrijal/tifprobe/internal/adapters/geotiff"
	natsadapter "github.com/samirrijal/tifprobe/internal/adapters/nats"
	"github.com/samirrijal/tifprobe/internal/adapters/postgres"
	"github.com/samirrijal/tifprobe/internal/core/domain"
	"github.com/samirrijal/tifprobe/internal/core/ports"
	"github.com/samirrijal/tifprobe/internal/core/usecases"
	"github.com/samirrijal/tifprobe/internal/pkg/config"
)

func scanCommand(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo ports.ScanRepository
		pub  ports.EventPublisher
	)
	if flagRecord {
		db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
		fatalIf(err)
		defer db.Close()
		repo = postgres.NewScanRepo(db)

		if p, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
			logger.Warn("nats unavailable, events not published", "error", err)
		} else {
			defer p.Close()
			pub = p
		}
	}

	svc := usecases.NewValidationService(newRegistry(cfg, logger), repo, nil, pub, logger)
	items, err := runScan(ctx, svc, cfg.Probe, flagFile)
	fatalIf(err)

	if flagJSON {
		fatalIf(printJSON(os.Stdout, items))
	} else {
		fatalIf(printSummary(os.Stdout, items))
	}
	if failed := countFailed(items); failed > 0 {
		fatalIf(fmt.Errorf("%d of %d files failed", failed, len(items)))
	}
}

func newRegistry(cfg *config.Config, logger *slog.Logger) *usecases.Registry {
	exporters := []ports.ResultExporter{excel.NewExporter(logger), chart.NewExporter(logger)}
	return usecases.DefaultRegistry(geotiff.NewOpener(logger), exporters, cfg.Probe.BackgroundThreshold, logger)
}

// scanRequest builds the per-file request from the probe settings.
func scanRequest(p config.ProbeConfig) usecases.ValidateRequest {
	return usecases.ValidateRequest{
		Workflow:         p.Workflow,
		Target:           domain.GeoPoint{Lon: p.TargetLon, Lat: p.TargetLat},
		ToleranceKm:      p.ToleranceKm,
		StopOnFirstMatch: p.MatchOnly,
		Export:           domain.ExportKind(p.Export),
		OutputDir:        p.OutputDir,
	}
}

// runScan validates file, or every raster in p.InputDir when file is empty.
func runScan(ctx context.Context, svc *usecases.ValidationService, p config.ProbeConfig, file string) ([]usecases.BatchItem, error) {
	req := scanRequest(p)
	if file == "" {
		return svc.ValidateDir(ctx, p.InputDir, req)
	}
	req.Path = file
	report, err := svc.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	return []usecases.BatchItem{{Path: file, Report: report}}, nil
}

func printSummary(w io.Writer, items []usecases.BatchItem) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tPIXELS\tMATCHED\tVALIDATED\tEXPORT\tNOTE")
	for _, it := range items {
		if it.Report == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", it.Path, it.Error)
			continue
		}
		r := it.Report.Run
		export := r.ExportPath
		if export == "" {
			export = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", it.Path, r.PixelsVisited, r.MatchedCount, r.ValidatedCount, export, r.Warning)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, items []usecases.BatchItem) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

func countFailed(items []usecases.BatchItem) int {
	n := 0
	for _, it := range items {
		if it.Error != "" {
			n++
		}
	}
	return n
}
