package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/samirrijal/tifprobe/internal/pkg/config"
	"github.com/samirrijal/tifprobe/internal/pkg/logging"
)

var (
	rootCmd = &cobra.Command{
		Use:   "probe",
		Short: "Validate GeoTIFF rasters against a target coordinate.",
	}

	flagDir        string
	flagFile       string
	flagLon        float64
	flagLat        float64
	flagTolerance  float64
	flagMatchOnly  bool
	flagExport     string
	flagOutput     string
	flagWorkflow   string
	flagRecord     bool
	flagJSON       bool
	flagDurable    string
	flagWait       bool
	flagWorkflowID string
)

func init() {
	cobra.EnablePrefixMatching = true

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "scan every raster in a directory, or one file",
		Args:  cobra.NoArgs,
		Run:   scanCommand,
	}
	addScanFlags(scanCmd)
	scanCmd.Flags().StringVar(&flagFile, "file", "", "scan a single file instead of --dir")
	scanCmd.Flags().BoolVar(&flagRecord, "record", false, "persist runs to the database and publish events")
	scanCmd.Flags().BoolVar(&flagJSON, "json", false, "print reports as JSON lines")
	rootCmd.AddCommand(scanCmd)

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "start a batch validation on the Temporal worker",
		Args:  cobra.NoArgs,
		Run:   submitCommand,
	}
	addScanFlags(submitCmd)
	submitCmd.Flags().BoolVar(&flagWait, "wait", false, "wait for the batch summary")
	submitCmd.Flags().StringVar(&flagWorkflowID, "id", "", "workflow ID (default: generated)")
	rootCmd.AddCommand(submitCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "print scan events as they are published",
		Args:  cobra.NoArgs,
		Run:   watchCommand,
	}
	watchCmd.Flags().StringVar(&flagDurable, "durable", "", "durable consumer name (default: only new events)")
	rootCmd.AddCommand(watchCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "workflows",
		Short: "list the registered workflows",
		Args:  cobra.NoArgs,
		Run:   workflowsCommand,
	})
}

// addScanFlags registers the flags that override the probe.* settings.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagDir, "dir", "", "directory of .tif/.tiff files (default: probe.input_dir)")
	cmd.Flags().Float64Var(&flagLon, "lon", 0, "target longitude")
	cmd.Flags().Float64Var(&flagLat, "lat", 0, "target latitude")
	cmd.Flags().Float64Var(&flagTolerance, "tolerance", 0, "tolerance in km")
	cmd.Flags().BoolVar(&flagMatchOnly, "match-only", false, "stop each file at its first match")
	cmd.Flags().StringVar(&flagExport, "export", "", "excel, png or none")
	cmd.Flags().StringVar(&flagOutput, "output", "", "export directory (default: probe.output_dir)")
	cmd.Flags().StringVar(&flagWorkflow, "workflow", "", "workflow key")
}

// loadConfig reads the configuration and applies the command's flags on top.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load("tifprobe-cli")
	fatalIf(err)
	applyFlags(cmd, &cfg.Probe)
	fatalIf(cfg.Validate())
	return cfg
}

func applyFlags(cmd *cobra.Command, p *config.ProbeConfig) {
	f := cmd.Flags()
	if f.Changed("dir") {
		p.InputDir = flagDir
	}
	if f.Changed("lon") {
		p.TargetLon = flagLon
	}
	if f.Changed("lat") {
		p.TargetLat = flagLat
	}
	if f.Changed("tolerance") {
		p.ToleranceKm = flagTolerance
	}
	if f.Changed("match-only") {
		p.MatchOnly = flagMatchOnly
	}
	if f.Changed("export") {
		p.Export = flagExport
	}
	if f.Changed("output") {
		p.OutputDir = flagOutput
	}
	if f.Changed("workflow") {
		p.Workflow = flagWorkflow
	}
}

func setupLogger(cfg *config.Config) (*slog.Logger, func() error) {
	logger, closeLog, err := logging.SetupWithDir(cfg.Log.Level, cfg.Log.Format, cfg.Log.Dir)
	fatalIf(err)
	return logger, closeLog
}

func main() {
	rootCmd.SetHelpTemplate(`{{.UsageString}}`)
	fatalIf(rootCmd.Execute())
}

func fatalIf(err error) {
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
