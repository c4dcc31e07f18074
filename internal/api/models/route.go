package models

import geojson "github.com/paulmach/go.geojson"

// RouteResponse is a computed walking route.
type RouteResponse struct {
	// Path is the ordered coordinate sequence from start to destination.
	Path []Point `json:"path"`

	// Geometry is the same path as a GeoJSON LineString feature, ready to
	// hand to a map layer.
	Geometry *geojson.Feature `json:"geometry"`

	// Roads names the road of each path edge.
	Roads []string `json:"roads"`

	// Instructions are the ordered turn-by-turn directions.
	Instructions []InstructionModel `json:"instructions"`

	// TotalDistanceM is the route length in meters.
	TotalDistanceM float64 `json:"totalDistanceM"`

	// EstimatedTimeS is the walking time estimate in seconds.
	EstimatedTimeS float64 `json:"estimatedTimeS"`
}

// InstructionModel is one turn-by-turn direction with its anchor coordinate.
type InstructionModel struct {
	Text      string `json:"text"`
	Location  Point  `json:"location"`
	PathIndex int    `json:"pathIndex"`
}

// MapConfig describes the loaded road network for map bootstrap.
type MapConfig struct {
	// Bounds is the covered area.
	Bounds GeoBox `json:"bounds"`

	// Center is the midpoint of the covered area.
	Center Point `json:"center"`

	// NodeCount and SegmentCount size the loaded network.
	NodeCount    int `json:"nodeCount"`
	SegmentCount int `json:"segmentCount"`

	// SnapMaxDistanceM is how far a query point may sit from a road.
	SnapMaxDistanceM float64 `json:"snapMaxDistanceM"`
}
