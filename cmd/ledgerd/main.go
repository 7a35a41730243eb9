package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentbench/finledger/internal/accounting"
	"github.com/agentbench/finledger/internal/api"
	"github.com/agentbench/finledger/internal/config"
	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/agentbench/finledger/internal/eventbus"
	"github.com/agentbench/finledger/internal/logger"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledgerd")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize event bus
	bus := eventbus.New(cfg.EventBus, log)

	// Initialize ledger with its chart of accounts
	generalLedger := accounting.NewLedger(cfg.Ledger.Currency, log)
	if cfg.Ledger.InitialCapital > 0 {
		capital := money.MustNew(cfg.Ledger.InitialCapital, cfg.Ledger.Currency)
		if err := generalLedger.InitializeCapital(capital); err != nil {
			log.Error("Failed to post initial capital", "error", err)
			os.Exit(1)
		}
	}

	// Financial statements cache, invalidated on each posting
	statements := accounting.NewStatements(generalLedger, log)

	// Subscribe the bookkeeping handler before any events flow
	eventsHandler := accounting.NewEventsHandler(generalLedger, log)
	eventsHandler.Register(bus)

	if err := bus.Start(appCtx); err != nil {
		log.Error("Failed to start event bus", "error", err)
		os.Exit(1)
	}
	bus.StartRecording()

	// Initialize REST server
	server := api.NewServer(log, cfg, generalLedger, statements, bus)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new events are published
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Drain and stop the event bus before cancelling the app context: the
	// bus's run context derives from it, and cancelling early would collapse
	// the handler grace window
	if err = bus.Stop(shutdownCtx); err != nil {
		log.Error("Error during event bus shutdown", "error", err)
	}
	cancelAppCtx()

	// Final integrity check before exit
	if ok, err := generalLedger.VerifyIntegrity(false); err != nil || !ok {
		log.Error("Accounting equation violated at shutdown", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
