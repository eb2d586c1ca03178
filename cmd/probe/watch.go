package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/tifprobe/internal/adapters/nats"
	"github.com/samirrijal/tifprobe/internal/core/domain"
)

// watchEvent is one line of watch output.
type watchEvent struct {
	Kind  string             `json:"kind"`
	Run   *domain.ScanRun    `json:"run,omitempty"`
	Match *domain.MatchEvent `json:"match,omitempty"`
}

func watchCommand(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	logger, closeLog := setupLogger(cfg)
	defer closeLog()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, flagDurable)
	fatalIf(err)
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	enc := json.NewEncoder(os.Stdout)
	emit := func(ev watchEvent) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(ev)
	}

	fatalIf(sub.SubscribeScanCompleted(ctx, func(ctx context.Context, run *domain.ScanRun) error {
		return emit(watchEvent{Kind: "completed", Run: run})
	}))
	fatalIf(sub.SubscribeMatchFound(ctx, func(ctx context.Context, ev *domain.MatchEvent) error {
		return emit(watchEvent{Kind: "match", Match: ev})
	}))

	logger.Info("watching scan events", "url", cfg.NATS.URL, "durable", flagDurable)
	<-ctx.Done()
}
