// Command raged-worker runs the enrichment worker process: it resolves
// configuration, builds the claim/pipeline/submit wiring, and blocks until
// signalled to shut down.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mfittko/raged/internal/httpserver"
	"github.com/mfittko/raged/internal/workerid"
	"github.com/mfittko/raged/pkg/adapter/factory"
	"github.com/mfittko/raged/pkg/config"
	"github.com/mfittko/raged/pkg/controlapi"
	"github.com/mfittko/raged/pkg/docregistry"
	"github.com/mfittko/raged/pkg/nlp"
	"github.com/mfittko/raged/pkg/pipeline"
	"github.com/mfittko/raged/pkg/queue"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "directory holding .env and doctypes.yaml")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("no .env file loaded", "path", envPath, "error", err)
	}

	cfg := config.Load()
	setupLogging(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	registry, err := docregistry.New(filepath.Join(*configDir, "doctypes.yaml"))
	if err != nil {
		slog.Error("failed to load doc-type registry", "error", err)
		os.Exit(1)
	}

	extractor, err := factory.New(cfg)
	if err != nil {
		slog.Error("failed to build extraction adapter", "error", err)
		os.Exit(1)
	}

	client := controlapi.New(cfg.APIURL, cfg.APIToken)

	orchestrator := &pipeline.Orchestrator{
		Registry: registry,
		NLP:      &nlp.Stage{},
		Adapter:  extractor,
		Client:   client,
		Logger:   slog.Default(),
	}

	workerID := workerid.New()
	pool := queue.NewPool(workerID, client, orchestrator, extractor, cfg.WorkerConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool.Start(ctx)
	srv := httpserver.Run(ctx, cfg.HealthAddr, pool)

	slog.Info("raged-worker started", "worker_id", workerID, "provider", cfg.Provider, "concurrency", cfg.WorkerConcurrency)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining consumers")
	pool.Stop()
	_ = srv.Close()
	slog.Info("raged-worker stopped")
}

func setupLogging(format string) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
