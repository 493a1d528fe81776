/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the yardstock inventory server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load configuration
  2. Initialize SQLite store
  3. Wire the reconciliation engine and snapshot parser
  4. Refresh vehicle ages (once per calendar day)
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (optional; ./yardstock.yaml by default)
  -addr    HTTP listen address override
  -db      SQLite database path override
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/yard.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on a different address
  ./server -addr=":3000"

ENVIRONMENT:
  YARDSTOCK_LISTEN_ADDR, YARDSTOCK_DB_PATH, YARDSTOCK_STOCK_FLOOR,
  YARDSTOCK_LOG_LEVEL override the config file.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/salvageops/yardstock/api"
	"github.com/salvageops/yardstock/config"
	"github.com/salvageops/yardstock/inventory"
	"github.com/salvageops/yardstock/snapshot"
	"github.com/salvageops/yardstock/store/sqlite"
)

func main() {
	cfgFile := flag.String("config", "", "config file path")
	addr := flag.String("addr", "", "HTTP listen address override")
	dbPath := flag.String("db", "", "SQLite database path override")
	flag.Parse()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "yardstock",
		Level:           cfg.ParseLevel(),
	})

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", "path", cfg.DBPath, "error", err)
	}
	defer store.Close()

	// Wire engine and parser
	engine := inventory.NewEngine(store,
		inventory.WithFloor(cfg.StockFloor),
		inventory.WithLogger(logger.With("component", "engine")),
	)
	parser := snapshot.New(logger.With("component", "parser"))

	// Ages advance with the calendar, not with imports.
	if err := engine.RefreshAges(context.Background()); err != nil {
		logger.Warn("age refresh failed", "error", err)
	}

	handler := api.NewHandler(engine, parser, logger.With("component", "api"))
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.ListenAddr, "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}
