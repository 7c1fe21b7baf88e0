package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/unfold/internal/config"
	"github.com/your-org/unfold/internal/ingest"
	"github.com/your-org/unfold/internal/match"
	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/observability"
	"github.com/your-org/unfold/internal/platform"
	"github.com/your-org/unfold/internal/queue"
	"github.com/your-org/unfold/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	group := flag.String("group", "", "telegram group to ingest")
	maxMembers := flag.Int("max-members", 0, "ingest at most this many members, most active first (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	if *group == "" {
		fmt.Fprintln(os.Stderr, "usage: ingestor -group <telegram group>")
		os.Exit(1)
	}
	slog.Info("starting Unfold ingestor", "group", *group)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		slog.Error("ensure schema", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Telegram connector
	pcfg := cfg.Platforms.Telegram
	if !pcfg.Enabled {
		slog.Error("telegram platform is disabled")
		os.Exit(1)
	}
	client, err := platform.NewRemoteClient(models.PlatformTelegram, pcfg.Endpoint, pcfg.StateFile, pcfg.RatePerSec)
	if err != nil {
		slog.Error("telegram client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	// Ingestion merges bare member profiles with no image signals, so hash
	// similarity never comes into play.
	manager := ingest.NewManager(db, client, match.NeverMatch{}, producer)
	manager.MaxMembers = *maxMembers

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("ingestor metrics listening", "addr", ":8081")
		if err := http.ListenAndServe(":8081", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutdown requested, stopping at next member boundary")
		cancel()
	}()

	created, err := manager.IngestGroup(ctx, *group)
	if err != nil && ctx.Err() == nil {
		slog.Error("ingestion failed", "group", *group, "created", created, "error", err)
		os.Exit(1)
	}

	slog.Info("ingestor stopped", "created", created)
}
