// Package planner turns a start, a destination and a vehicle's charge into a
// trip with charging stops, falling back to a simulated community rescue when
// a leg has no reachable charger.
package planner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chargepath/chargepath/internal/community"
	"github.com/chargepath/chargepath/internal/energy"
	"github.com/chargepath/chargepath/internal/routing"
	"github.com/chargepath/chargepath/internal/stations"
	"github.com/chargepath/chargepath/pkg/geo"
	"github.com/chargepath/chargepath/pkg/polyline"
)

const tracerName = "github.com/chargepath/chargepath/internal/planner"

// Planning constants.
const (
	LegBufferFactor        = 0.9
	ConsumptionKmPerKWh    = 4.5
	SolarDetourWindowKm    = 2.0
	CO2SavedPerCleanStopKg = 1.4
)

// Router resolves places and fetches driving routes.
type Router interface {
	Geocode(ctx context.Context, place string) (geo.Coordinate, error)
	Route(ctx context.Context, start, destination geo.Coordinate) (*routing.Route, error)
}

// StationFinder searches for chargers around a point.
type StationFinder interface {
	Nearby(ctx context.Context, q stations.Query) ([]stations.Station, error)
}

// TagSource supplies manually curated energy-source tags keyed by station ID.
type TagSource interface {
	ManualTags(ctx context.Context) (map[string]stations.EnergySource, error)
}

// Recorder receives planning metrics.
type Recorder interface {
	RecordPlan(ctx context.Context, code string, stops int, d time.Duration)
	RecordRescue(ctx context.Context, found bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordPlan(context.Context, string, int, time.Duration) {}
func (nopRecorder) RecordRescue(context.Context, bool)                     {}

// Config holds configuration for the planner.
type Config struct {
	Router   Router
	Stations StationFinder

	// Tags is optional.
	Tags TagSource

	// Vehicles supplies rescue donors when a request does not carry its own
	// (default: a SyntheticSource).
	Vehicles community.VehicleSource

	Tariff energy.Tariff

	// SearchRadiusKm is the charger search radius around each leg boundary (default: 30).
	SearchRadiusKm float64

	// SearchLimit caps chargers considered per boundary (default: 25).
	SearchLimit int

	// RescueSearchRadiusKm is the radius used to find a charger to head for
	// after a rescue (default: 100).
	RescueSearchRadiusKm float64

	Logger  zerolog.Logger
	Tracer  trace.Tracer
	Metrics Recorder
}

// Planner plans charging trips. It is safe for concurrent use; all per-trip
// state lives inside a single Plan call.
type Planner struct {
	router       Router
	stations     StationFinder
	tags         TagSource
	vehicles     community.VehicleSource
	tariff       energy.Tariff
	radiusKm     float64
	limit        int
	rescueRadius float64
	logger       zerolog.Logger
	tracer       trace.Tracer
	metrics      Recorder
}

// New creates a new Planner.
func New(cfg Config) *Planner {
	if cfg.SearchRadiusKm <= 0 {
		cfg.SearchRadiusKm = stations.DefaultRadiusKm
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = stations.DefaultLimit
	}
	if cfg.RescueSearchRadiusKm <= 0 {
		cfg.RescueSearchRadiusKm = 100
	}
	if cfg.Vehicles == nil {
		cfg.Vehicles = community.NewSyntheticSource(community.SyntheticConfig{})
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}

	return &Planner{
		router:       cfg.Router,
		stations:     cfg.Stations,
		tags:         cfg.Tags,
		vehicles:     cfg.Vehicles,
		tariff:       cfg.Tariff,
		radiusKm:     cfg.SearchRadiusKm,
		limit:        cfg.SearchLimit,
		rescueRadius: cfg.RescueSearchRadiusKm,
		logger:       cfg.Logger,
		tracer:       cfg.Tracer,
		metrics:      cfg.Metrics,
	}
}

// Request is a trip planning request.
type Request struct {
	StartLocation         string
	Destination           string
	EvMaxRangeKm          float64
	CurrentBatteryPercent float64

	// EnableCommunityRescue defaults to true when nil.
	EnableCommunityRescue *bool

	// RescueVehicles replaces the configured VehicleSource when non-empty.
	RescueVehicles []community.Vehicle
}

func (r Request) rescueEnabled() bool {
	return r.EnableCommunityRescue == nil || *r.EnableCommunityRescue
}

// Stop is a selected charging stop.
type Stop struct {
	Station             stations.Station `json:"station"`
	LegIndex            int              `json:"legIndex"`
	DistanceFromRouteKm float64          `json:"distanceFromRouteKm"`
	DistanceFromStartKm float64          `json:"distanceFromStartKm"`
	IsFastCharger       bool             `json:"isFastCharger"`
	IsSolarPreferred    bool             `json:"isSolarPreferred"`
	Cost                energy.Cost      `json:"cost"`
}

// Rescue reports the community rescue path of a plan.
type Rescue struct {
	Triggered  bool               `json:"triggered"`
	LegIndex   int                `json:"legIndex,omitempty"`
	Location   *geo.Coordinate    `json:"location,omitempty"`
	Assessment *energy.Assessment `json:"assessment,omitempty"`
	Candidates []community.Match  `json:"candidates,omitempty"`
	Outcome    *community.Outcome `json:"outcome,omitempty"`
}

// CostSummary aggregates stop costs.
type CostSummary struct {
	TotalEnergyKWh     float64 `json:"totalEnergyKwh"`
	TotalEstimatedCost float64 `json:"totalEstimatedCost"`
}

// Sustainability is a station-mix heuristic, not a physical measurement.
type Sustainability struct {
	Score          float64 `json:"score"`
	CleanStopCount int     `json:"cleanStopCount"`
	TotalStopCount int     `json:"totalStopCount"`
	CO2SavedKg     float64 `json:"co2SavedKg"`
}

// Result is a planned trip.
type Result struct {
	StartLocation         string         `json:"startLocation"`
	Destination           string         `json:"destination"`
	StartCoordinate       geo.Coordinate `json:"startCoordinate"`
	DestinationCoordinate geo.Coordinate `json:"destinationCoordinate"`
	TotalDistanceKm       float64        `json:"totalDistanceKm"`
	DurationSeconds       float64        `json:"durationSeconds"`
	UsableRangeKm         float64        `json:"usableRangeKm"`
	LegRangeKm            float64        `json:"legRangeKm"`
	RequiresCharging      bool           `json:"requiresCharging"`
	Stops                 []Stop         `json:"stops"`
	Rescue                Rescue         `json:"rescue"`
	Cost                  CostSummary    `json:"cost"`
	Sustainability        Sustainability `json:"sustainability"`
	Geometry              string         `json:"geometry"`
	GeneratedAt           time.Time      `json:"generatedAt"`
}

// Plan plans a trip. Every returned error is an *Error.
func (p *Planner) Plan(ctx context.Context, req Request) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "planner.Plan",
		trace.WithAttributes(
			attribute.Float64("ev.max_range_km", req.EvMaxRangeKm),
			attribute.Float64("ev.battery_percent", req.CurrentBatteryPercent),
			attribute.Bool("rescue.enabled", req.rescueEnabled()),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := p.plan(ctx, req, span)
	if err != nil {
		perr := Classify(err)
		p.metrics.RecordPlan(ctx, string(perr.Code), 0, time.Since(start))
		span.SetStatus(codes.Error, string(perr.Code))
		span.RecordError(perr)
		p.logger.Warn().
			Err(perr.Err).
			Str("code", string(perr.Code)).
			Str("start", req.StartLocation).
			Str("destination", req.Destination).
			Dur("duration", time.Since(start)).
			Msg("trip planning failed")
		return nil, perr
	}

	p.metrics.RecordPlan(ctx, "ok", len(res.Stops), time.Since(start))
	span.SetAttributes(
		attribute.Float64("trip.distance_km", res.TotalDistanceKm),
		attribute.Int("trip.stops", len(res.Stops)),
		attribute.Bool("rescue.triggered", res.Rescue.Triggered),
	)
	p.logger.Info().
		Str("start", res.StartLocation).
		Str("destination", res.Destination).
		Float64("distance_km", res.TotalDistanceKm).
		Int("stops", len(res.Stops)).
		Bool("rescue", res.Rescue.Triggered).
		Dur("duration", time.Since(start)).
		Msg("trip planned")
	return res, nil
}

func (p *Planner) plan(ctx context.Context, req Request, span trace.Span) (*Result, error) {
	startName := routing.NormalizePlace(req.StartLocation)
	destName := routing.NormalizePlace(req.Destination)

	startPt, err := p.router.Geocode(ctx, startName)
	if err != nil {
		return nil, fmt.Errorf("start location %q: %w", startName, err)
	}
	destPt, err := p.router.Geocode(ctx, destName)
	if err != nil {
		return nil, fmt.Errorf("destination %q: %w", destName, err)
	}

	route, err := p.router.Route(ctx, startPt, destPt)
	if err != nil {
		return nil, err
	}

	res := &Result{
		StartLocation:         startName,
		Destination:           destName,
		StartCoordinate:       startPt,
		DestinationCoordinate: destPt,
		TotalDistanceKm:       route.DistanceKm,
		DurationSeconds:       route.DurationSeconds,
		UsableRangeKm:         geo.Round(req.CurrentBatteryPercent/100*req.EvMaxRangeKm, 2),
		Stops:                 []Stop{},
		Geometry:              polyline.Encode(route.Geometry),
		GeneratedAt:           time.Now().UTC(),
	}

	if route.DistanceKm <= res.UsableRangeKm {
		res.Sustainability = summarize(nil)
		return res, nil
	}

	res.RequiresCharging = true
	res.LegRangeKm = geo.Round(res.UsableRangeKm*LegBufferFactor, 2)
	if res.LegRangeKm <= 0 {
		return nil, &Error{
			Code:    CodeNoChargersFound,
			Message: fmt.Sprintf("battery too low to plan any leg: usable range is %.2f km", res.UsableRangeKm),
		}
	}

	stopsNeeded := int(math.Ceil(route.DistanceKm/res.LegRangeKm)) - 1
	legEnergy := res.LegRangeKm / ConsumptionKmPerKWh
	span.SetAttributes(attribute.Int("trip.stops_needed", stopsNeeded))

	tags := p.manualTags(ctx)
	used := make(map[string]bool, stopsNeeded)

	for i := 1; i <= stopsNeeded; i++ {
		alongKm := res.LegRangeKm * float64(i)
		target := geo.PointAtDistance(route.Geometry, alongKm)

		stop, err := p.selectStop(ctx, target, route.Geometry, used, tags)
		if err != nil {
			return nil, err
		}
		if stop != nil {
			stop.LegIndex = i
			stop.DistanceFromStartKm = geo.Round(alongKm, 2)
			stop.Cost = energy.CalculateChargingCost(legEnergy, stop.Station, p.tariff)
			res.Stops = append(res.Stops, *stop)
			continue
		}

		if !req.rescueEnabled() {
			return nil, noChargers(i, stopsNeeded, alongKm, "community rescue disabled")
		}

		arrival := max(0, req.CurrentBatteryPercent-res.LegRangeKm/req.EvMaxRangeKm*100)
		assessment := energy.DetectOutOfCharge(energy.Scenario{
			BatteryPercent: arrival,
			RadiusKm:       p.radiusKm,
		})
		if !assessment.ShouldTriggerRescue {
			return nil, noChargers(i, stopsNeeded, alongKm, "rescue not triggered: "+assessment.Reason)
		}

		rescue, err := p.attemptRescue(ctx, req, rescueInput{
			legIndex:   i,
			location:   target,
			battery:    arrival,
			direction:  startName + " to " + destName,
			assessment: assessment,
		})
		if err != nil {
			return nil, err
		}
		if !rescue.Outcome.RescueFound {
			return nil, noChargers(i, stopsNeeded, alongKm, "rescue failed: "+rescue.Outcome.Reason)
		}

		// A successful rescue replaces the missing leg and ends the plan, so
		// no trip ever reaches a second rescue.
		res.Rescue = *rescue
		break
	}

	res.Cost = costOf(res.Stops)
	res.Sustainability = summarize(res.Stops)
	return res, nil
}

func noChargers(leg, total int, alongKm float64, status string) *Error {
	return &Error{
		Code: CodeNoChargersFound,
		Message: fmt.Sprintf("no charging station found for leg %d of %d (%.0f km along the route); %s",
			leg, total, alongKm, status),
	}
}

// manualTags returns curated tags, or nil when none are configured or the
// source fails. Tags only refine classification so planning continues.
func (p *Planner) manualTags(ctx context.Context) map[string]stations.EnergySource {
	if p.tags == nil {
		return nil
	}
	tags, err := p.tags.ManualTags(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to load manual energy tags")
		return nil
	}
	return tags
}

type rescueInput struct {
	legIndex   int
	location   geo.Coordinate
	battery    float64
	direction  string
	assessment energy.Assessment
}

func (p *Planner) attemptRescue(ctx context.Context, req Request, in rescueInput) (*Rescue, error) {
	var source community.VehicleSource = p.vehicles
	if len(req.RescueVehicles) > 0 {
		source = community.StaticSource(req.RescueVehicles)
	}

	vehicles, err := source.Vehicles(ctx, in.location, in.direction)
	if err != nil {
		return nil, fmt.Errorf("rescue vehicles: %w", err)
	}
	matches := community.FindNearbyRescueVehicles(in.location, in.direction, vehicles, community.MatchOptions{})

	candidates := make([]community.Vehicle, len(matches))
	for i, m := range matches {
		candidates[i] = m.Vehicle
	}

	// Chargers the receiver might head for afterwards, used ones included.
	nearby, err := p.stations.Nearby(ctx, stations.Query{
		Location: in.location,
		RadiusKm: p.rescueRadius,
		Limit:    p.limit,
	})
	if err != nil {
		return nil, err
	}

	outcome := community.SimulateReverseCharging(community.TransferRequest{
		Receiver: community.Receiver{
			Location:       in.location,
			BatteryPercent: in.battery,
			CapacityKWh:    req.EvMaxRangeKm / ConsumptionKmPerKWh,
		},
		Candidates:       candidates,
		Stations:         nearby,
		OneRescuePerTrip: true,
	})

	p.metrics.RecordRescue(ctx, outcome.RescueFound)
	p.logger.Info().
		Int("leg", in.legIndex).
		Int("candidates", len(matches)).
		Bool("rescue_found", outcome.RescueFound).
		Str("reason", outcome.Reason).
		Msg("community rescue simulated")

	loc := in.location
	assessment := in.assessment
	return &Rescue{
		Triggered:  true,
		LegIndex:   in.legIndex,
		Location:   &loc,
		Assessment: &assessment,
		Candidates: matches,
		Outcome:    &outcome,
	}, nil
}

func costOf(stops []Stop) CostSummary {
	var c CostSummary
	for _, s := range stops {
		c.TotalEnergyKWh += s.Cost.EnergyKWh
		c.TotalEstimatedCost += s.Cost.TotalCost
	}
	c.TotalEnergyKWh = geo.Round(c.TotalEnergyKWh, 2)
	c.TotalEstimatedCost = geo.Round(c.TotalEstimatedCost, 2)
	return c
}

// summarize scores the stop mix. A trip without stops scores the 50 baseline.
func summarize(stops []Stop) Sustainability {
	s := Sustainability{Score: 50, TotalStopCount: len(stops)}
	for _, st := range stops {
		if st.Cost.EnergySource != stations.SourceGrid {
			s.CleanStopCount++
		}
	}
	if s.TotalStopCount > 0 {
		s.Score = geo.Round(min(100, 50+50*float64(s.CleanStopCount)/float64(s.TotalStopCount)), 1)
	}
	s.CO2SavedKg = geo.Round(float64(s.CleanStopCount)*CO2SavedPerCleanStopKg, 1)
	return s
}
