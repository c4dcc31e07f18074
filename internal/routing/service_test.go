package routing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
	"github.com/nasrdanavi/nasrdanavi/internal/graph"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	roads := []graph.RoadSegment{
		{
			Name:  "Main Street",
			Parts: [][]geo.Point{{pt(0, 0), pt(0.001, 0), pt(0.002, 0)}},
		},
		{
			Name:  "North Avenue",
			Parts: [][]geo.Point{{pt(0.002, 0), pt(0.002, 0.001), pt(0.002, 0.002)}},
		},
	}
	g, err := graph.Build(roads, zerolog.Nop())
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}

	snapper := graph.NewSnapper(graph.SnapperConfig{Graph: g, Logger: zerolog.Nop()})
	svc, err := NewService(ServiceConfig{
		Graph:   g,
		Snapper: snapper,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCalculateRoute_EndToEnd(t *testing.T) {
	svc := newTestService(t)

	route, err := svc.CalculateRoute(context.Background(), pt(0.0001, 0.0001), pt(0.002, 0.0019))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(route.Path) < 2 {
		t.Fatalf("expected a multi-node path, got %d nodes", len(route.Path))
	}
	if len(route.Roads) != len(route.Path)-1 {
		t.Fatalf("expected %d road names, got %d", len(route.Path)-1, len(route.Roads))
	}

	// Total distance equals the summed great-circle lengths of the path edges.
	sum := 0.0
	for i := 0; i < len(route.Path)-1; i++ {
		sum += geo.Distance(route.Path[i], route.Path[i+1])
	}
	if math.Abs(sum-route.TotalDistance) > 1e-6 {
		t.Errorf("path edges sum to %.6f but TotalDistance is %.6f", sum, route.TotalDistance)
	}

	// Time estimate at 1.4 m/s.
	wantSecs := route.TotalDistance / 1.4
	if math.Abs(route.EstimatedTime.Seconds()-wantSecs) > 0.5 {
		t.Errorf("expected ~%.1fs, got %.1fs", wantSecs, route.EstimatedTime.Seconds())
	}

	if len(route.Instructions) < 2 {
		t.Fatalf("expected head and arrival instructions at minimum, got %d", len(route.Instructions))
	}
	last := route.Instructions[len(route.Instructions)-1]
	if last.Location != route.Destination() {
		t.Errorf("final instruction should anchor at the destination")
	}
}

func TestCalculateRoute_EndpointIdentifiedOnSnapFailure(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name         string
		start, end   geo.Point
		wantKind     ErrorKind
		wantEndpoint string
	}{
		{
			name:         "start out of bounds",
			start:        pt(10, 10),
			end:          pt(0.001, 0),
			wantKind:     KindOutOfBounds,
			wantEndpoint: "start",
		},
		{
			name:         "end too far from road",
			start:        pt(0.001, 0),
			end:          pt(0.001, 0.004),
			wantKind:     KindTooFarFromRoad,
			wantEndpoint: "end",
		},
		{
			name:         "invalid start latitude",
			start:        pt(0, 91),
			end:          pt(0.001, 0),
			wantKind:     KindInvalidInput,
			wantEndpoint: "start",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CalculateRoute(context.Background(), tt.start, tt.end)
			var re *Error
			if !errors.As(err, &re) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if re.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, re.Kind)
			}
			if re.Endpoint != tt.wantEndpoint {
				t.Errorf("expected endpoint %q, got %q", tt.wantEndpoint, re.Endpoint)
			}
		})
	}
}

func TestCalculateRoute_SameSnappedLocation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CalculateRoute(context.Background(), pt(0.0001, 0.00001), pt(0.00011, 0.00002))
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("expected KindInvalidInput for same snapped location, got %v", err)
	}
}

func TestCalculateRoute_NoPath(t *testing.T) {
	roads := []graph.RoadSegment{
		{Name: "Island A", Parts: [][]geo.Point{{pt(0, 0), pt(0.001, 0)}}},
		{Name: "Island B", Parts: [][]geo.Point{{pt(0.005, 0.005), pt(0.006, 0.005)}}},
	}
	g, err := graph.Build(roads, zerolog.Nop())
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	snapper := graph.NewSnapper(graph.SnapperConfig{Graph: g, Logger: zerolog.Nop()})
	svc, err := NewService(ServiceConfig{Graph: g, Snapper: snapper, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.CalculateRoute(context.Background(), pt(0.0001, 0), pt(0.0059, 0.005))
	if KindOf(err) != KindNoPath {
		t.Fatalf("expected KindNoPath, got %v", err)
	}
	if !errors.Is(err, ErrNoPath) {
		t.Errorf("expected chain to include ErrNoPath")
	}
}

func TestCalculateRoute_ConcurrentQueries(t *testing.T) {
	svc := newTestService(t)

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func() {
			_, err := svc.CalculateRoute(context.Background(), pt(0.0001, 0.0001), pt(0.002, 0.0019))
			done <- err
		}()
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent query failed: %v", err)
		}
	}
}
