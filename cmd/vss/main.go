package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresuchdata/perishable-vss/internal/config"
	"github.com/andresuchdata/perishable-vss/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(cfg, os.Stdout).RunContext(ctx, os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("vss failed")
		stop()
		os.Exit(1)
	}
}
