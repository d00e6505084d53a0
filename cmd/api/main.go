// Package main provides the entrypoint for the ChargePath API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/api"
	"github.com/chargepath/chargepath/internal/api/handler"
	"github.com/chargepath/chargepath/internal/api/middleware"
	"github.com/chargepath/chargepath/internal/cache"
	"github.com/chargepath/chargepath/internal/community"
	"github.com/chargepath/chargepath/internal/config"
	"github.com/chargepath/chargepath/internal/database"
	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/energytags"
	"github.com/chargepath/chargepath/internal/planner"
	"github.com/chargepath/chargepath/internal/provider/resilience"
	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/internal/routing/openrouteservice"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/internal/stations/openchargemap"
	"github.com/chargepath/chargepath/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "chargepath-api"

	cfg, err := config.Load(serviceName)
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := telemetry.NewLogger(os.Stdout, serviceName, Version, cfg.App.LogLevel)
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting ChargePath API")

	ctx := context.Background()

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}
	planMetrics, err := telemetry.NewPlanMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize planner metrics")
	}

	dependencies := make(map[string]handler.Pinger)

	var shared cache.SharedStore
	if cfg.Cache.ValkeyAddr != "" {
		store, err := cache.NewValkeyStore(cfg.Cache.ValkeyAddr)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Cache.ValkeyAddr).Msg("failed to connect to valkey")
		}
		defer store.Close()
		shared = store
		dependencies["valkey"] = store
		log.Info().Str("addr", cfg.Cache.ValkeyAddr).Msg("shared cache tier enabled")
	}

	var tagRepo energytags.Repository = energytags.NewInMemoryRepository()
	if cfg.Database.Enabled {
		dbConfig := cfg.Database.Pool()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		pgRepo := energytags.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare energy tag schema")
		}
		tagRepo = pgRepo
		dependencies["postgres"] = pool
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}
	tagService := energytags.NewService(energytags.ServiceConfig{
		Repository: tagRepo,
		Logger:     log,
	})

	// Startup snapshot only; handlers and the planner read fresh tags per request.
	overrides, err := tagService.ManualTags(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load energy tag overrides")
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
		Overrides:     overrides,
		CacheTTL:      cfg.Stations.CacheTTL,
		CacheCapacity: cfg.Cache.Capacity,
		Shared:        shared,
		Recorder:      providerMetrics,
	})

	if cfg.Routing.APIKey == "" || cfg.Stations.APIKey == "" {
		log.Warn().Msg("provider API keys missing; planning requests will fail with missing-credentials")
	}

	tariff := energy.Tariff{BasePerKWh: cfg.Planner.BaseTariffPerKWh}
	vehicles := community.NewSyntheticSource(community.SyntheticConfig{Count: cfg.Planner.SyntheticDonors})

	tripPlanner := planner.New(planner.Config{
		Router:               routingService,
		Stations:             stationService,
		Tags:                 tagService,
		Vehicles:             vehicles,
		Tariff:               tariff,
		SearchRadiusKm:       cfg.Planner.SearchRadiusKm,
		SearchLimit:          cfg.Planner.SearchLimit,
		RescueSearchRadiusKm: cfg.Planner.RescueSearchRadiusKm,
		Logger:               log,
		Metrics:              planMetrics,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		Metrics:        httpMetrics,
		RequireTLS:     cfg.App.RequireTLS,
		Planner:        tripPlanner,
		Stations:       stationService,
		Tags:           tagService,
		TagList:        tagService,
		Tariff:         tariff,
		Vehicles:       vehicles,
		SearchRadiusKm: cfg.Planner.SearchRadiusKm,
		RescueRadiusKm: cfg.Planner.RescueSearchRadiusKm,
		Registry:       registry,
		Dependencies:   dependencies,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
