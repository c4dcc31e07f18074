package graph

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
)

// SnapperConfig holds configuration for the snapper.
type SnapperConfig struct {
	// Graph is the immutable road graph to snap against.
	Graph *Graph

	// MaxDistance is the maximum snap distance in meters for discrete query
	// points (default: 75).
	MaxDistance float64

	// BoundsMargin pads the graph's bounding box by this many meters to form
	// the accepted query region (default: 500).
	BoundsMargin float64

	// Logger for snap diagnostics.
	Logger zerolog.Logger
}

// Snapper projects arbitrary coordinates onto the nearest graph edge.
type Snapper struct {
	g           *Graph
	maxDistance float64
	bounds      Bounds
	logger      zerolog.Logger
}

// SnapResult describes a successful projection onto the graph.
type SnapResult struct {
	// Point is the projected coordinate on the edge.
	Point geo.Point

	// Distance is the great-circle distance from the query to Point, meters.
	Distance float64

	// SegmentIndex identifies the matched edge geometry in the graph.
	SegmentIndex int

	// Segment is the matched edge geometry.
	Segment Segment

	// Fraction is the position of Point along the segment (0 at A, 1 at B).
	Fraction float64

	// Node is the graph node nearest to Point, used as the routing endpoint.
	Node int
}

// NewSnapper creates a snapper over the given graph.
func NewSnapper(cfg SnapperConfig) *Snapper {
	maxDistance := cfg.MaxDistance
	if maxDistance == 0 {
		maxDistance = 75
	}
	boundsMargin := cfg.BoundsMargin
	if boundsMargin == 0 {
		boundsMargin = 500
	}
	return &Snapper{
		g:           cfg.Graph,
		maxDistance: maxDistance,
		bounds:      cfg.Graph.Bounds().Padded(boundsMargin),
		logger:      cfg.Logger,
	}
}

// Bounds returns the accepted query region.
func (s *Snapper) Bounds() Bounds { return s.bounds }

// Snap projects the point onto the nearest edge within the default maximum
// snap distance. Returns ErrOutOfBounds for points outside the accepted
// region and ErrTooFarFromRoad when the nearest edge is beyond the maximum.
func (s *Snapper) Snap(p geo.Point) (SnapResult, error) {
	return s.SnapWithin(p, s.maxDistance)
}

// SnapWithin is Snap with an explicit maximum distance in meters. Live
// tracking uses this with an accuracy-scaled tolerance. A point exactly at
// the maximum is accepted.
func (s *Snapper) SnapWithin(p geo.Point, maxDistance float64) (SnapResult, error) {
	if !s.bounds.Contains(p) {
		return SnapResult{}, ErrOutOfBounds
	}

	// Candidate pre-filter: a box around the query sized to the snap radius.
	// Degrees of longitude shrink with cos(lat), so the box widens east-west
	// by the same factor; a fixed slack would under-cover at high latitudes.
	latRadiusDeg := maxDistance / 111320.0 * 1.1
	cosLat := math.Cos(p.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	candidates := s.g.grid.query(p.Lon, p.Lat, latRadiusDeg/cosLat, latRadiusDeg)

	best := SnapResult{Distance: math.Inf(1), SegmentIndex: -1}
	for _, si := range candidates {
		seg := s.g.Segment(si)
		proj, frac := geo.ClosestOnSegment(p, seg.A, seg.B)
		d := geo.Distance(p, proj)
		// Strict less-than keeps the first-encountered edge on ties. The
		// candidate order is stable, so snapping is deterministic.
		if d < best.Distance {
			best = SnapResult{
				Point:        proj,
				Distance:     d,
				SegmentIndex: si,
				Segment:      seg,
				Fraction:     frac,
			}
		}
	}

	if best.SegmentIndex < 0 || best.Distance > maxDistance {
		s.logger.Debug().
			Float64("lon", p.Lon).
			Float64("lat", p.Lat).
			Float64("max_distance_m", maxDistance).
			Msg("no road edge within snap distance")
		return SnapResult{}, ErrTooFarFromRoad
	}

	if best.Fraction <= 0.5 {
		best.Node = best.Segment.From
	} else {
		best.Node = best.Segment.To
	}
	return best, nil
}
