package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"distill/internal/config"
	"distill/internal/daemon"
	"distill/internal/logging"
	"distill/internal/notifications"
	"distill/internal/tasks"
	"distill/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	store, err := tasks.Open(cfg)
	if err != nil {
		logger.Error("open task store", logging.Error(err))
		os.Exit(1)
	}

	seq := workflow.NewSequencer(cfg, logger)
	runner := workflow.NewRunner(cfg, store, seq, notifications.NewService(cfg), logger)

	d, err := daemon.New(cfg, store, runner, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("distilld shutting down")
}
