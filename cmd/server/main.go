/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the studio engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment config, apply flag overrides
  2. Open the persistence backend (sqlite, jsonfile, or memory)
  3. Build the manager (loads prior state)
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -addr     Listen address (overrides STUDIO_ADDR)
  -backend  Persistence backend: sqlite, jsonfile, memory
  -db       SQLite database path (":memory:" for in-memory)
  -state    JSON state file path (jsonfile backend)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Flush state and close the backend
  4. Exit

EXAMPLES:
  # Run with the default sqlite backend
  ./server -db="./data/studio.db"

  # Run fully in memory
  ./server -backend=memory

  # Run against a JSON state file
  ./server -backend=jsonfile -state="./data/studio.json"

SEE ALSO:
  - config/config.go: Environment variables and defaults
  - api/server.go: Router configuration
  - studio/manager.go: The engine behind every endpoint
*/
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/qmx/studio-engine/api"
	"github.com/qmx/studio-engine/config"
	"github.com/qmx/studio-engine/store/jsonfile"
	"github.com/qmx/studio-engine/store/memory"
	"github.com/qmx/studio-engine/store/sqlite"
	"github.com/qmx/studio-engine/studio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Flag overrides
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "persistence backend: sqlite, jsonfile, memory")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.StatePath, "state", cfg.StatePath, "JSON state file path")
	flag.Parse()

	logger := newLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	persist, closer, err := openBackend(cfg)
	if err != nil {
		logger.Error("failed to open backend", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	mgr, err := studio.New(persist)
	if err != nil {
		logger.Error("failed to load state", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler := api.NewHandler(mgr, logger)
	router := api.NewRouter(handler, strings.Split(cfg.AllowedOrigins, ",")...)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.Addr), slog.String("backend", cfg.Backend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := mgr.Save(); err != nil {
		logger.Error("final save failed", slog.String("error", err.Error()))
	}
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func openBackend(cfg *config.Config) (studio.Persistence, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case config.BackendJSONFile:
		return jsonfile.New(cfg.StatePath), nil, nil
	default:
		return memory.New(), nil, nil
	}
}
