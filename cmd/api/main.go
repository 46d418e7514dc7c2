package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pagecopy/internal/gateway/app"
	"pagecopy/internal/gateway/config"
	"pagecopy/internal/logger"
)

func main() {
	port := flag.String("port", "", "server port (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Port = config.NormalizePort(*port)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	if err := a.Run(ctx, 5*time.Second); err != nil {
		lg.Error("server exited", "error", err)
		os.Exit(1)
	}
	lg.Info("server exiting")
}
