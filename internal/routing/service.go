package routing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
	"github.com/nasrdanavi/nasrdanavi/internal/graph"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Graph is the immutable road graph shared across all queries.
	Graph *graph.Graph

	// Snapper resolves query coordinates onto the graph.
	Snapper *graph.Snapper

	// Logger for service operations.
	Logger zerolog.Logger

	// WalkingSpeed in meters per second for time estimates (default: 1.4).
	WalkingSpeed float64

	// MinLegMeters is the minimum edge length that may produce a standalone
	// instruction (default: 2).
	MinLegMeters float64

	// Meter records route-computation metrics. Optional.
	Meter metric.Meter
}

// Service computes walking routes. Queries are pure functions over the
// immutable graph and may run concurrently.
type Service struct {
	graph        *graph.Graph
	snapper      *graph.Snapper
	logger       zerolog.Logger
	walkingSpeed float64
	minLegMeters float64

	computeDuration metric.Float64Histogram
	computeErrors   metric.Int64Counter
}

// NewService creates a routing service over the given graph.
func NewService(cfg ServiceConfig) (*Service, error) {
	walkingSpeed := cfg.WalkingSpeed
	if walkingSpeed == 0 {
		walkingSpeed = 1.4
	}
	minLeg := cfg.MinLegMeters
	if minLeg == 0 {
		minLeg = defaultMinLegMeters
	}

	s := &Service{
		graph:        cfg.Graph,
		snapper:      cfg.Snapper,
		logger:       cfg.Logger,
		walkingSpeed: walkingSpeed,
		minLegMeters: minLeg,
	}

	if cfg.Meter != nil {
		var err error
		s.computeDuration, err = cfg.Meter.Float64Histogram(
			"routing.compute.duration",
			metric.WithDescription("Route computation duration in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return nil, err
		}
		s.computeErrors, err = cfg.Meter.Int64Counter(
			"routing.compute.errors",
			metric.WithDescription("Route computation failures by kind"),
		)
		if err != nil {
			return nil, err
		}
	}

	return s, nil
}

// CalculateRoute computes the shortest walking route between two coordinates.
// Both endpoints are snapped independently; a snap failure identifies which
// endpoint failed.
func (s *Service) CalculateRoute(ctx context.Context, start, end geo.Point) (*Route, error) {
	began := time.Now()
	route, err := s.calculate(start, end)
	s.record(ctx, time.Since(began), err)

	if err != nil {
		s.logger.Warn().Err(err).
			Stringer("start", start).
			Stringer("end", end).
			Msg("route calculation failed")
		return nil, err
	}

	s.logger.Info().
		Stringer("start", start).
		Stringer("end", end).
		Int("path_nodes", len(route.Path)).
		Int("instructions", len(route.Instructions)).
		Float64("distance_m", route.TotalDistance).
		Dur("took", time.Since(began)).
		Msg("route calculated")

	return route, nil
}

func (s *Service) calculate(start, end geo.Point) (*Route, error) {
	if !start.Valid() {
		return nil, &Error{
			Kind: KindInvalidInput, Endpoint: "start",
			Message: "start coordinates are out of range",
			Err:     ErrInvalidInput,
		}
	}
	if !end.Valid() {
		return nil, &Error{
			Kind: KindInvalidInput, Endpoint: "end",
			Message: "end coordinates are out of range",
			Err:     ErrInvalidInput,
		}
	}

	startSnap, err := s.snapper.Snap(start)
	if err != nil {
		return nil, snapError("start", err)
	}
	endSnap, err := s.snapper.Snap(end)
	if err != nil {
		return nil, snapError("end", err)
	}

	if startSnap.Node == endSnap.Node {
		return nil, &Error{
			Kind:    KindInvalidInput,
			Message: "start and end are the same location",
			Err:     ErrInvalidInput,
		}
	}

	nodes, edges, total, err := shortestPath(s.graph, startSnap.Node, endSnap.Node)
	if err != nil {
		return nil, &Error{
			Kind:    KindNoPath,
			Message: "no connected road path found between these points",
			Err:     err,
		}
	}

	path := make([]geo.Point, len(nodes))
	for i, n := range nodes {
		path[i] = s.graph.Node(n)
	}
	roads := make([]string, len(edges))
	for i, e := range edges {
		roads[i] = e.Road
	}

	return &Route{
		Path:          path,
		Roads:         roads,
		Instructions:  generateInstructions(path, roads, s.minLegMeters),
		TotalDistance: total,
		EstimatedTime: time.Duration(total / s.walkingSpeed * float64(time.Second)),
	}, nil
}

// snapError translates snapper failures into endpoint-specific route errors.
func snapError(endpoint string, err error) error {
	switch {
	case errors.Is(err, graph.ErrOutOfBounds):
		return &Error{
			Kind: KindOutOfBounds, Endpoint: endpoint,
			Message: endpoint + " point is outside the covered area",
			Err:     err,
		}
	case errors.Is(err, graph.ErrTooFarFromRoad):
		return &Error{
			Kind: KindTooFarFromRoad, Endpoint: endpoint,
			Message: endpoint + " point is too far from any road",
			Err:     err,
		}
	default:
		return &Error{
			Kind: KindInvalidInput, Endpoint: endpoint,
			Message: "could not resolve " + endpoint + " point",
			Err:     err,
		}
	}
}

func (s *Service) record(ctx context.Context, took time.Duration, err error) {
	if s.computeDuration == nil {
		return
	}
	s.computeDuration.Record(ctx, took.Seconds())
	if err != nil {
		s.computeErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", string(KindOf(err))),
		))
	}
}
