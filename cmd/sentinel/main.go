package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/fleetfuel/sentinel/internal/api"
	"github.com/fleetfuel/sentinel/internal/batch"
	"github.com/fleetfuel/sentinel/internal/detect"
	"github.com/fleetfuel/sentinel/internal/ingest"
	"github.com/fleetfuel/sentinel/internal/metrics"
	"github.com/fleetfuel/sentinel/internal/store"
	"github.com/fleetfuel/sentinel/internal/thresholds"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Sentinel fuel anomaly detection service")

	httpAddr := getEnv("SENTINEL_HTTP_ADDR", ":8080")
	natsURL := getEnv("SENTINEL_NATS_URL", "nats://localhost:4222")
	paramAPIURL := getEnv("SENTINEL_PARAM_API_URL", "http://localhost:8085")
	postgresURL := getEnv("SENTINEL_POSTGRES_URL", "")
	redisAddr := getEnv("SENTINEL_REDIS_ADDR", "")
	redisPassword := getEnv("SENTINEL_REDIS_PASSWORD", "")
	redisDB := getEnvInt("SENTINEL_REDIS_DB", 0)
	siteID := getEnv("SENTINEL_SITE_ID", "default")
	zonesFile := getEnv("SENTINEL_ZONES_FILE", "zones.yaml")
	maxAlerts := getEnvInt("SENTINEL_MAX_ALERTS", 10000)
	dedupeCap := getEnvInt("SENTINEL_DEDUPE_CAP", 100000)
	windowDays := getEnvInt("SENTINEL_WINDOW_DAYS", 90)
	evalIntervalSec := getEnvInt("SENTINEL_EVAL_INTERVAL_SEC", 300)

	logger.Info("Configuration loaded",
		"http_addr", httpAddr,
		"nats_url", natsURL,
		"param_api_url", paramAPIURL,
		"site_id", siteID,
		"zones_file", zonesFile,
		"max_alerts", maxAlerts,
		"dedupe_cap", dedupeCap,
		"window_days", windowDays,
		"eval_interval_sec", evalIntervalSec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, err := nats.Connect(natsURL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	logger.Info("Connected to NATS")

	// File overrides sit between built-in defaults and the config API
	fileLoader := thresholds.NewFileLoader(zonesFile, logger)
	baseSnapshot, zones, err := fileLoader.Load(thresholds.Defaults())
	if err != nil {
		logger.Warn("Reference file not loaded, using built-in defaults", "path", zonesFile, "error", err)
		baseSnapshot = thresholds.Defaults()
	} else {
		logger.Info("Reference file loaded", "zones", len(zones))
	}

	thresholdManager := thresholds.NewManager(paramAPIURL, nc, logger)
	if err := thresholdManager.Initialize(ctx, &baseSnapshot); err != nil {
		logger.Warn("Failed to initialize threshold manager, using file defaults", "error", err)
	}

	memoryStore := store.NewMemoryStore(maxAlerts, dedupeCap)

	window := ingest.NewFleetWindow(time.Duration(windowDays) * 24 * time.Hour)
	window.SetZones(zones)
	window.StartGC(time.Minute)
	defer window.StopGC()

	prometheusMetrics := metrics.NewMetrics()

	var persister batch.Persister
	if postgresURL != "" {
		pg, err := store.NewPostgresStore(ctx, postgresURL)
		if err != nil {
			logger.Error("Failed to connect to Postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		persister = pg
		logger.Info("Connected to Postgres")
	}

	var publisher batch.Publisher
	if redisAddr != "" {
		rd, err := store.NewRedisStore(ctx, redisAddr, redisPassword, redisDB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rd.Close()
		publisher = rd
		logger.Info("Connected to Redis")
	}

	engine := detect.NewEngine(logger)
	runner := batch.NewRunner(batch.Config{
		Engine:     engine,
		Thresholds: thresholdManager,
		Memory:     memoryStore,
		Persister:  persister,
		Publisher:  publisher,
		SiteID:     siteID,
		Metrics:    prometheusMetrics,
		Logger:     logger,
	})

	subscriber := ingest.NewSubscriber(nc, window, "sentinel", prometheusMetrics, logger)
	go func() {
		if err := subscriber.Subscribe(ctx); err != nil {
			logger.Error("Telemetry subscriber error", "error", err)
		}
	}()

	// Periodic fleet evaluation
	go func() {
		ticker := time.NewTicker(time.Duration(evalIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runner.EvaluateFleet(ctx, window, time.Now().UTC())
			case <-ctx.Done():
				return
			}
		}
	}()

	httpAPI := api.NewHTTPAPI(memoryStore, window, thresholdManager, prometheusMetrics, nc, logger)
	mux := http.NewServeMux()
	httpAPI.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting HTTP server", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Sentinel service started successfully")
	<-sigChan

	logger.Info("Shutting down sentinel service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("Sentinel service stopped")
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
