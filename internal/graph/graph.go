// Package graph builds and queries the weighted road-network graph.
//
// The graph is constructed once per road dataset and is immutable afterwards:
// concurrent route queries and snap lookups read it without locking.
package graph

import (
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
)

// Sentinel errors for graph construction and snapping.
var (
	// ErrEmptyDataset indicates the road dataset produced no usable edges.
	// This is fatal at build time: no graph can serve any request.
	ErrEmptyDataset = errors.New("road dataset produced no graph edges")

	// ErrOutOfBounds indicates the query point lies outside the covered area.
	ErrOutOfBounds = errors.New("point is outside the covered area")

	// ErrTooFarFromRoad indicates no road edge lies within the snap distance.
	ErrTooFarFromRoad = errors.New("point is too far from any road")
)

// Direction describes how a road segment may be traversed.
type Direction int

const (
	// DirectionBoth allows travel in both directions (the default for footpaths).
	DirectionBoth Direction = iota
	// DirectionForward allows travel only in coordinate order.
	DirectionForward
	// DirectionBackward allows travel only against coordinate order.
	DirectionBackward
)

// RoadSegment is one named road feature from the dataset. A feature may carry
// several polyline parts (MultiLineString geometry).
type RoadSegment struct {
	Name      string
	Direction Direction
	Parts     [][]geo.Point
}

// Edge is a directed, weighted connection between two nodes.
type Edge struct {
	To     int     // target node index
	Weight float64 // great-circle length in meters
	Road   string  // originating road name
}

// Segment is the undirected geometry of one graph edge, kept for snapping.
type Segment struct {
	A, B     geo.Point
	From, To int // node indices of A and B
	Road     string
}

// Bounds is an axis-aligned bounding region in degrees.
type Bounds struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Contains reports whether p lies inside the bounds (inclusive).
func (b Bounds) Contains(p geo.Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon &&
		p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Padded returns the bounds expanded by the given margin in meters on every side.
func (b Bounds) Padded(meters float64) Bounds {
	dLat := meters / 111320.0
	midLat := (b.MinLat + b.MaxLat) / 2
	cos := math.Cos(midLat * math.Pi / 180)
	if cos < 0.01 {
		cos = 0.01
	}
	dLon := meters / (111320.0 * cos)
	return Bounds{
		MinLon: b.MinLon - dLon,
		MinLat: b.MinLat - dLat,
		MaxLon: b.MaxLon + dLon,
		MaxLat: b.MaxLat + dLat,
	}
}

// Graph is the immutable road-network graph. Nodes are unique coordinates,
// deduplicated by exact equality so shared endpoints merge without any
// floating-point fuzz introduced by the builder.
type Graph struct {
	nodes    []geo.Point
	nodeIdx  map[geo.Point]int
	adj      [][]Edge
	segments []Segment
	bounds   Bounds
	grid     *cellIndex
}

// Build constructs the graph from parsed road features. Features with fewer
// than two coordinates are skipped as data-quality issues; a dataset yielding
// no edges at all fails with ErrEmptyDataset.
func Build(roads []RoadSegment, logger zerolog.Logger) (*Graph, error) {
	g := &Graph{
		nodeIdx: make(map[geo.Point]int),
	}

	skipped := 0
	for _, road := range roads {
		for _, part := range road.Parts {
			if len(part) < 2 {
				skipped++
				logger.Warn().
					Str("road", road.Name).
					Int("coords", len(part)).
					Msg("skipping road part with fewer than two coordinates")
				continue
			}
			g.addPart(road, part)
		}
	}

	if len(g.segments) == 0 {
		return nil, ErrEmptyDataset
	}

	g.bounds = computeBounds(g.nodes)
	g.grid = newCellIndex(g.segments)

	logger.Info().
		Int("roads", len(roads)).
		Int("nodes", len(g.nodes)).
		Int("segments", len(g.segments)).
		Int("skipped_parts", skipped).
		Msg("road graph built")

	return g, nil
}

func (g *Graph) addPart(road RoadSegment, part []geo.Point) {
	for i := 0; i < len(part)-1; i++ {
		a, b := part[i], part[i+1]
		w := geo.Distance(a, b)

		from := g.node(a)
		to := g.node(b)

		switch road.Direction {
		case DirectionForward:
			g.adj[from] = append(g.adj[from], Edge{To: to, Weight: w, Road: road.Name})
		case DirectionBackward:
			g.adj[to] = append(g.adj[to], Edge{To: from, Weight: w, Road: road.Name})
		default:
			g.adj[from] = append(g.adj[from], Edge{To: to, Weight: w, Road: road.Name})
			g.adj[to] = append(g.adj[to], Edge{To: from, Weight: w, Road: road.Name})
		}

		g.segments = append(g.segments, Segment{
			A: a, B: b, From: from, To: to, Road: road.Name,
		})
	}
}

// node returns the index for the coordinate, inserting it if unseen.
func (g *Graph) node(p geo.Point) int {
	if idx, ok := g.nodeIdx[p]; ok {
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, p)
	g.nodeIdx[p] = idx
	g.adj = append(g.adj, nil)
	return idx
}

func computeBounds(nodes []geo.Point) Bounds {
	b := Bounds{
		MinLon: math.Inf(1), MinLat: math.Inf(1),
		MaxLon: math.Inf(-1), MaxLat: math.Inf(-1),
	}
	for _, n := range nodes {
		b.MinLon = math.Min(b.MinLon, n.Lon)
		b.MinLat = math.Min(b.MinLat, n.Lat)
		b.MaxLon = math.Max(b.MaxLon, n.Lon)
		b.MaxLat = math.Max(b.MaxLat, n.Lat)
	}
	return b
}

// NodeCount returns the number of unique nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Node returns the coordinate of the node at the given index.
func (g *Graph) Node(i int) geo.Point { return g.nodes[i] }

// Neighbors returns the outgoing edges of a node. Callers must not mutate
// the returned slice.
func (g *Graph) Neighbors(i int) []Edge { return g.adj[i] }

// SegmentCount returns the number of undirected edge geometries.
func (g *Graph) SegmentCount() int { return len(g.segments) }

// Segment returns the undirected geometry of edge i.
func (g *Graph) Segment(i int) Segment { return g.segments[i] }

// Bounds returns the tight bounding box of all graph nodes.
func (g *Graph) Bounds() Bounds { return g.bounds }
