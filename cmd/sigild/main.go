package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"sigil/internal/config"
	"sigil/internal/daemon"
	"sigil/internal/logging"
	"sigil/internal/queue"
	"sigil/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", "error", err)
		return
	}

	w := worker.New(cfg, logger)
	d, err := daemon.New(cfg, store, w, logger)
	if err != nil {
		logger.Error("create daemon", "error", err)
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", "error", err)
		return
	}

	<-ctx.Done()
	logger.Info("sigild shutting down")
	d.Stop()
}
