// Package main runs the corridor cache warmer. It refreshes on a ticker and,
// when a subscription is configured, on Pub/Sub triggers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/api/middleware"
	"github.com/chargepath/chargepath/internal/cache"
	"github.com/chargepath/chargepath/internal/config"
	"github.com/chargepath/chargepath/internal/provider/resilience"
	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/internal/routing/openrouteservice"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/internal/stations/openchargemap"
	"github.com/chargepath/chargepath/internal/telemetry"
	"github.com/chargepath/chargepath/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "chargepath-worker"

	cfg, err := config.Load(serviceName)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := telemetry.NewLogger(os.Stdout, serviceName, Version, cfg.App.LogLevel)
	log.Info().Str("build_time", BuildTime).Msg("starting ChargePath worker")

	corridors, err := worker.ParseCorridors(cfg.Worker.Corridors)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid worker.corridors")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// Without the shared tier the warm-up only fills this process's memory.
	var shared cache.SharedStore
	if cfg.Cache.ValkeyAddr != "" {
		store, err := cache.NewValkeyStore(cfg.Cache.ValkeyAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Cache.ValkeyAddr).Msg("failed to connect to valkey")
		}
		defer store.Close()
		shared = store
	} else {
		log.Warn().Msg("cache.valkey_addr not set; warmed entries stay local to the worker")
	}

	registry := resilience.NewRegistry()

	routingService := routing.NewService(routing.ServiceConfig{
		Provider: openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.Routing.APIKey,
			BaseURL:  cfg.Routing.BaseURL,
			Profile:  cfg.Routing.Profile,
			Country:  cfg.Routing.Country,
			Timeout:  cfg.Routing.Timeout,
			Registry: registry,
			Metrics:  providerMetrics,
			Logger:   log,
		}),
		Logger:        log,
		GeocodeTTL:    cfg.Routing.GeocodeTTL,
		RouteTTL:      cfg.Routing.RouteTTL,
		CacheCapacity: cfg.Cache.Capacity,
		Shared:        shared,
		Recorder:      providerMetrics,
	})

	stationService := stations.NewService(stations.ServiceConfig{
		Provider: openchargemap.NewClient(openchargemap.ClientConfig{
			APIKey:   cfg.Stations.APIKey,
			BaseURL:  cfg.Stations.BaseURL,
			Timeout:  cfg.Stations.Timeout,
			Registry: registry,
			Metrics:  providerMetrics,
			Logger:   log,
		}),
		Logger:        log,
		CacheTTL:      cfg.Stations.CacheTTL,
		CacheCapacity: cfg.Cache.Capacity,
		Shared:        shared,
		Recorder:      providerMetrics,
	})

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Corridors:   corridors,
			Concurrency: cfg.Worker.MaxConcurrency,
			RadiusKm:    cfg.Planner.SearchRadiusKm,
			Limit:       cfg.Planner.SearchLimit,
		},
		Router:   routingService,
		Stations: stationService,
		Logger:   log,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Worker.HealthPort),
		Handler:      healthRouter(job, registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Worker.PubSubProject != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.PubSubProject,
			SubscriptionName: cfg.Worker.PubSubSubID,
			RefreshJob:       job,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer func() {
			if err := handler.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close pubsub client")
			}
		}()
		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	runTicker(ctx, job, cfg.Worker.Interval, log)

	log.Info().Msg("shutting down worker")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
	log.Info().Msg("worker stopped")
}

// runTicker refreshes once immediately, then every interval until ctx is done.
func runTicker(ctx context.Context, job *worker.RefreshJob, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result := job.Run(ctx)
		if result.Failed > 0 {
			log.Warn().Int("failed", result.Failed).Msg("some corridors were not warmed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func healthRouter(job *worker.RefreshJob, registry *resilience.Registry) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "OK", "version": Version})
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		providers := make(map[string]string)
		for _, h := range registry.GetAllHealth() {
			providers[h.Name] = h.Status()
		}
		writeJSON(w, map[string]any{"refresh": job.MetricsSnapshot(), "providers": providers})
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
