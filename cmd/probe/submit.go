package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/tifprobe/internal/pkg/config"
	"github.com/samirrijal/tifprobe/internal/workflows"
)

func submitCommand(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	fatalIf(err)
	defer c.Close()

	ctx := context.Background()
	input := batchInput(cfg.Probe)
	opts := client.StartWorkflowOptions{
		ID:        flagWorkflowID,
		TaskQueue: cfg.Temporal.TaskQueue,
	}
	if opts.ID == "" {
		opts.ID = fmt.Sprintf("probe-batch-%d", time.Now().UnixNano())
	}

	run, err := c.ExecuteWorkflow(ctx, opts, workflows.BatchValidationWorkflow, input)
	fatalIf(err)
	logger.Info("batch submitted", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "dir", input.Dir)

	if !flagWait {
		fmt.Println(run.GetID())
		return
	}

	var summary workflows.BatchSummary
	fatalIf(run.Get(ctx, &summary))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	fatalIf(enc.Encode(summary))
}

// batchInput builds the workflow input from the probe settings.
func batchInput(p config.ProbeConfig) workflows.BatchInput {
	return workflows.BatchInput{Dir: p.InputDir, Request: scanRequest(p)}
}
