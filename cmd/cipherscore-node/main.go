package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherscore/cipherscore-node/db"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/service"
)

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Output)
	log.Infow("starting cipherscore-node", "version", Version)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("initializing storage", "datadir", cfg.Datadir, "type", db.TypePebble)
	node, err := service.NewNode(&service.NodeConfig{
		DataDir:         cfg.Datadir,
		DBType:          db.TypePebble,
		Identity:        common.HexToAddress(cfg.Node.Identity),
		Administrator:   common.HexToAddress(cfg.Node.Administrator),
		CooldownSeconds: cfg.Node.CooldownSeconds,
		MaxTotal:        cfg.Node.MaxTotal,
		APIHost:         cfg.API.Host,
		APIPort:         cfg.API.Port,
	})
	if err != nil {
		log.Fatalf("Failed to setup node: %v", err)
	}
	defer node.Stop()

	if err := node.Start(ctx); err != nil {
		log.Fatalf("Failed to start node: %v", err)
	}
	log.Info("cipherscore-node is running, ready to aggregate scores!")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}
