// Package api wires the HTTP API of the trip planning service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/chargepath/chargepath/internal/api/handler"
	"github.com/chargepath/chargepath/internal/api/middleware"
	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/api/response"
	"github.com/chargepath/chargepath/internal/community"
	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version    string
	BuildTime  string
	Logger     zerolog.Logger
	Metrics    *middleware.Metrics
	RequireTLS bool

	Planner  handler.TripPlanner
	Stations handler.StationFinder

	// Tags and TagList are optional; without them stations keep their
	// inferred energy source.
	Tags    handler.TagSource
	TagList handler.TagLister

	Tariff         energy.Tariff
	Vehicles       community.VehicleSource
	SearchRadiusKm float64
	RescueRadiusKm float64

	Registry     *resilience.Registry
	Dependencies map[string]handler.Pinger
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Order matters: the request ID must exist before tracing and logging.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, models.NewProblem(models.ProblemTypeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed,
			middleware.GetRequestID(r.Context())).WithDetail(r.Method+" is not supported on "+r.URL.Path))
	})

	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		Registry:     cfg.Registry,
		Dependencies: cfg.Dependencies,
	})
	tripHandler := handler.NewTripHandler(cfg.Planner, cfg.Logger)
	stationsHandler := handler.NewStationsHandler(cfg.Stations, cfg.Tags, cfg.Logger)
	chargingHandler := handler.NewChargingHandler(cfg.Tariff, cfg.Tags, cfg.Logger)
	rescueHandler := handler.NewRescueHandler(handler.RescueHandlerConfig{
		Stations:       cfg.Stations,
		Vehicles:       cfg.Vehicles,
		SearchRadiusKm: cfg.SearchRadiusKm,
		ReachRadiusKm:  cfg.RescueRadiusKm,
		Logger:         cfg.Logger,
	})
	metadataHandler := handler.NewMetadataHandler(cfg.TagList)

	planningRateLimit := middleware.RateLimitByIP(middleware.PlanningRateLimit)   // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/enums", metadataHandler.GetEnums)
			r.Get("/energy-tags", metadataHandler.ListEnergyTags)
		})

		// One geocode pair, one route and a directory search per leg.
		r.With(planningRateLimit).Post("/trips:plan", tripHandler.PlanTrip)

		r.With(expensiveRateLimit).Get("/stations", stationsHandler.ListStations)
		r.With(expensiveRateLimit).Post("/rescue:simulate", rescueHandler.SimulateRescue)
		r.With(standardRateLimit).Post("/charging:estimate", chargingHandler.EstimateCost)
	})

	return r
}
