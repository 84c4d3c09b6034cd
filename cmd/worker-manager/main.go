// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"place-intelligence/internal/common/auth"
	"place-intelligence/internal/common/camunda"
	"place-intelligence/internal/common/config"
	"place-intelligence/internal/common/database"
	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/observability"
	"place-intelligence/internal/common/validation"
	"place-intelligence/internal/intelligence/cache"
	"place-intelligence/internal/intelligence/engine"
	"place-intelligence/internal/intelligence/external"
	"place-intelligence/internal/intelligence/store"
	"place-intelligence/internal/intelligence/telemetry"
	"place-intelligence/internal/intelligence/weather"
	"place-intelligence/pkg/registry"

	bpi "place-intelligence/internal/workers/intelligence/build-place-intelligence"
	ipi "place-intelligence/internal/workers/intelligence/invalidate-place-intelligence"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New("info", "console")
		bootstrap.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting place intelligence worker manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("modelVersion", cfg.Intelligence.ModelVersion),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFromCamunda(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL (visit reports, telemetry) ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis (shared rating cache) ---
	var shared *cache.RedisStore
	if cfg.Intelligence.RatingProxy.SharedCache {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		shared = cache.NewRedisStore(rdb.Client, cfg.Intelligence.RatingProxy.SharedCachePrefix, cfg.Intelligence.ExternalTTLDuration())
		zapLog.Info("Redis connected successfully")
	}

	// --- Telemetry sinks ---
	var sinks telemetry.MultiSink
	if cfg.Intelligence.Telemetry.PostgresSink {
		if err := pg.EnsureSnapshotTable(ctx); err != nil {
			zapLog.Fatal("snapshot table setup failed", zap.Error(err))
		}
		sinks = append(sinks, telemetry.NewPostgresSink(pg.DB))
	}
	if cfg.Intelligence.Telemetry.ElasticSink {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := es.EnsureIndex(ctx, cfg.Intelligence.Telemetry.Index); err != nil {
			zapLog.Fatal("telemetry index setup failed", zap.Error(err))
		}
		sinks = append(sinks, telemetry.NewElasticsearchSink(es.Client, cfg.Intelligence.Telemetry.Index))
		zapLog.Info("Elasticsearch connected successfully")
	}

	var sampler *telemetry.Sampler
	if cfg.Intelligence.Telemetry.Enabled && len(sinks) > 0 {
		tc := cfg.Intelligence.Telemetry
		sampler = telemetry.NewSampler(telemetry.Options{
			SampleRate: tc.SampleRate,
			RatePerSec: tc.RatePerSec,
			Burst:      tc.Burst,
			QueueSize:  tc.QueueSize,
		}, sinks, log)
	}

	// --- Gateways ---
	var tokens auth.TokenProvider
	if cfg.Auth.KeycloakEnabled() {
		tokens = auth.NewKeycloakClient(
			cfg.Auth.Keycloak.URL,
			cfg.Auth.Keycloak.Realm,
			cfg.Auth.Keycloak.ClientID,
			cfg.Auth.Keycloak.ClientSecret,
		)
	}
	var integrity auth.IntegrityProvider
	if cfg.Auth.IntegrityToken != "" {
		integrity = auth.StaticIntegrity(cfg.Auth.IntegrityToken)
	}

	deps := engine.Deps{Observability: obs, Logger: log}
	if cfg.Intelligence.RatingProxy.Enabled {
		rp := cfg.Intelligence.RatingProxy
		deps.External = external.NewGateway(external.Options{
			BaseURL:         rp.BaseURL,
			Timeout:         config.GetDuration(rp.Timeout),
			TTL:             cfg.Intelligence.ExternalTTLDuration(),
			BreakerFailures: uint32(rp.BreakerFailures),
			BreakerOpenFor:  config.GetDuration(rp.BreakerOpenFor),
		}, tokens, integrity, shared, log)
	}
	deps.Context = weather.NewGateway(weather.Options{
		Enabled: cfg.Intelligence.Weather.Enabled,
		BaseURL: cfg.Intelligence.Weather.BaseURL,
		Timeout: config.GetDuration(cfg.Intelligence.Weather.Timeout),
		TTL:     cfg.Intelligence.ContextTTLDuration(),
	}, log)
	if sampler != nil {
		deps.Telemetry = sampler
	}

	loc, err := time.LoadLocation(cfg.Intelligence.Timezone)
	if err != nil {
		zapLog.Fatal("invalid intelligence timezone", zap.Error(err))
	}

	eng := engine.New(engine.Options{
		ModelVersion: cfg.Intelligence.ModelVersion,
		ResultTTL:    cfg.Intelligence.ResultTTLDuration(),
		MaxReports:   cfg.Intelligence.MaxReports,
		Location:     loc,
	}, deps)

	// --- Job variable schemas ---
	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	validator := validation.NewValidator()
	for _, a := range reg.Activities {
		if err := validator.Register(a.TaskType, a.InputSchema); err != nil {
			zapLog.Fatal("activity schema invalid", zap.String("taskType", a.TaskType), zap.Error(err))
		}
	}

	// --- Workers ---
	var workers []*camunda.Worker

	buildHandler, err := bpi.NewHandler(bpi.HandlerOptions{
		Config:        bpi.ConfigFromApp(cfg),
		Engine:        eng,
		Reports:       store.NewReports(pg.DB, 5*time.Second),
		Validator:     validator,
		Observability: obs,
		Logger:        log,
	})
	if err != nil {
		zapLog.Fatal("failed to create build-place-intelligence handler", zap.Error(err))
	}
	workers = append(workers, camunda.StartWorker(zeebe.GetClient(), bpi.TaskType,
		config.GetWorkerConfig(cfg, bpi.TaskType), buildHandler.Handle, log))

	invalidateHandler := ipi.NewHandler(ipi.ConfigFromApp(cfg), eng, validator, log)
	workers = append(workers, camunda.StartWorker(zeebe.GetClient(), ipi.TaskType,
		config.GetWorkerConfig(cfg, ipi.TaskType), invalidateHandler.Handle, log))

	zapLog.Info("Workers registered", zap.Int("activities", len(reg.Activities)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "ready", http.StatusOK
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			status, code = "zeebe unavailable", http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := sampler.Close(shutdownCtx); err != nil {
		zapLog.Error("Telemetry drain incomplete", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
