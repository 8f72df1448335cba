package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wfunc/tiltmaze/config"
	"github.com/wfunc/tiltmaze/logger"
	"github.com/wfunc/tiltmaze/persistence"
	"github.com/wfunc/tiltmaze/server"
)

func main() {
	// Initialize logger
	logger.Init()

	err := run(".")
	if err != nil {
		logger.Log.Error(err)
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run returns instead of exiting so every deferred cleanup happens.
func run(configDir string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.SetLevel(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("invalid server.log_level %q: %w", cfg.Server.LogLevel, err)
	}

	// Initialize match archive
	db, err := persistence.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", cfg.Database.Driver, err)
	}
	defer db.Close()
	logger.Log.Infof("Match archive ready (%s).", cfg.Database.Driver)

	gameServer := server.NewGameServer(*cfg, db)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			serveErr = fmt.Errorf("failed to start server: %w", serveErr)
		}
	case s := <-sig:
		logger.Log.Infof("Received %s, shutting down.", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Shutdown error: %v", err)
	}
	return serveErr
}
