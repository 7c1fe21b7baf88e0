package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/unfold/internal/campaign"
	"github.com/your-org/unfold/internal/config"
	"github.com/your-org/unfold/internal/identity"
	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/observability"
	"github.com/your-org/unfold/internal/platform"
	"github.com/your-org/unfold/internal/queue"
	"github.com/your-org/unfold/internal/storage"
	"github.com/your-org/unfold/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting Unfold resolver",
		"threshold", cfg.Resolution.MatchThreshold,
		"cpu_cores", runtime.NumCPU(),
	)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

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

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
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

	// Load vision models
	oracle, err := vision.NewOracle(cfg.Vision)
	if err != nil {
		slog.Error("init vision oracle", "error", err)
		os.Exit(1)
	}
	defer oracle.Close()

	// Build platform clients
	clients, err := buildClients(cfg)
	if err != nil {
		slog.Error("build platform clients", "error", err)
		os.Exit(1)
	}
	defer func() {
		for _, client := range clients {
			_ = client.Close()
		}
	}()
	if len(clients) == 0 {
		slog.Error("no platforms enabled")
		os.Exit(1)
	}

	elaborator := &identity.Elaborator{
		Faces:     oracle,
		Hashes:    oracle,
		Sources:   imageSources(clients),
		Archive:   minioStore,
		MaxImages: cfg.Resolution.MaxImagesPerProfile,
		Workers:   cfg.Resolution.Workers,
	}

	resolver := &campaign.Resolver{
		Oracle:        oracle,
		Elaborator:    elaborator,
		Threshold:     cfg.Resolution.MatchThreshold,
		MaxResults:    cfg.Resolution.MaxSearchResults,
		ExtraKeywords: cfg.Resolution.ExtraKeywords,
	}

	orchestrator := campaign.NewOrchestrator(db, resolver, clients, producer)
	orchestrator.MinIdentifiability = cfg.Resolution.MinIdentifiability

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
		slog.Info("resolver metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Cooperative shutdown: campaign state is checkpointed per person, so
	// cancelling mid-run only repeats the person in flight.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutdown requested, stopping at next person boundary")
		cancel()
	}()

	if err := orchestrator.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("campaign run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("resolver stopped")
}

// buildClients constructs one client per enabled platform, each wrapped in
// a circuit breaker.
func buildClients(cfg *config.Config) (map[models.Platform]platform.Client, error) {
	clients := make(map[models.Platform]platform.Client)
	for _, pf := range models.AllPlatforms {
		pcfg := cfg.Platforms.For(string(pf))
		if !pcfg.Enabled {
			continue
		}
		remote, err := platform.NewRemoteClient(pf, pcfg.Endpoint, pcfg.StateFile, pcfg.RatePerSec)
		if err != nil {
			return nil, fmt.Errorf("client for %s: %w", pf, err)
		}
		clients[pf] = platform.NewBreakerClient(remote, pcfg.BreakerCooldown)
	}
	return clients, nil
}

func imageSources(clients map[models.Platform]platform.Client) map[models.Platform]identity.ImageSource {
	sources := make(map[models.Platform]identity.ImageSource, len(clients))
	for pf, client := range clients {
		sources[pf] = client
	}
	return sources
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
