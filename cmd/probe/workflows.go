package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func workflowsCommand(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	for _, key := range newRegistry(cfg, logger).Keys() {
		fmt.Println(key)
	}
}
