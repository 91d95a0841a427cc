package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/apiwire-hq/apiwire/internal/app"
	"github.com/apiwire-hq/apiwire/internal/config"
	"github.com/apiwire-hq/apiwire/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.InfoObj("demo starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize runtime", "error", err)
		return err
	}
	defer rt.Close()

	if err := rt.RunDemo(ctx); err != nil {
		return fmt.Errorf("demo run: %w", err)
	}

	return nil
}
