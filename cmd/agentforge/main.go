package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Protocol-Lattice/agentforge/src/adk"
	"github.com/Protocol-Lattice/agentforge/src/config"
	"github.com/Protocol-Lattice/agentforge/src/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.Log.Level))
	kit, err := adk.New(ctx, cfg, adk.WithLogger(logger))
	if err != nil {
		log.Fatalf("failed to initialise kit: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := kit.Close(closeCtx); err != nil {
			logger.Warnf("close store: %v", err)
		}
	}()

	if err := kit.Server().ListenAndServe(ctx); err != nil {
		logger.Errorf("server: %v", err)
	}
}
