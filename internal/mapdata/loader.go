// Package mapdata loads the road-network dataset from GeoJSON into the
// polyline features the graph builder consumes.
package mapdata

import (
	"fmt"
	"os"
	"strings"

	geojson "github.com/paulmach/go.geojson"
	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/geo"
	"github.com/nasrdanavi/nasrdanavi/internal/graph"
)

// unnamedRoad labels road features without a name property.
const unnamedRoad = "Unnamed Road"

// LoadRoads reads and parses the roads GeoJSON file. Any failure here is
// fatal at startup: without the dataset no graph can be built.
func LoadRoads(path string, logger zerolog.Logger) ([]graph.RoadSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roads dataset %s: %w", path, err)
	}

	roads, err := ParseRoads(data, logger)
	if err != nil {
		return nil, fmt.Errorf("parse roads dataset %s: %w", path, err)
	}

	logger.Info().
		Str("path", path).
		Int("features", len(roads)).
		Msg("roads dataset loaded")

	return roads, nil
}

// ParseRoads parses a GeoJSON FeatureCollection of LineString and
// MultiLineString road features. Features with other geometry types are
// skipped with a warning.
func ParseRoads(data []byte, logger zerolog.Logger) ([]graph.RoadSegment, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	roads := make([]graph.RoadSegment, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			logger.Warn().Int("feature", i).Msg("skipping road feature without geometry")
			continue
		}

		var parts [][]geo.Point
		switch {
		case f.Geometry.IsLineString():
			parts = append(parts, toPoints(f.Geometry.LineString))
		case f.Geometry.IsMultiLineString():
			for _, line := range f.Geometry.MultiLineString {
				parts = append(parts, toPoints(line))
			}
		default:
			logger.Warn().
				Int("feature", i).
				Str("type", string(f.Geometry.Type)).
				Msg("skipping road feature with unsupported geometry")
			continue
		}

		roads = append(roads, graph.RoadSegment{
			Name:      roadName(f),
			Direction: roadDirection(f),
			Parts:     parts,
		})
	}

	return roads, nil
}

func toPoints(coords [][]float64) []geo.Point {
	pts := make([]geo.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, geo.Point{Lon: c[0], Lat: c[1]})
	}
	return pts
}

func roadName(f *geojson.Feature) string {
	if name, err := f.PropertyString("name"); err == nil && name != "" {
		return name
	}
	return unnamedRoad
}

// roadDirection maps the OSM-style oneway property onto edge directionality.
func roadDirection(f *geojson.Feature) graph.Direction {
	oneway, err := f.PropertyString("oneway")
	if err != nil {
		return graph.DirectionBoth
	}
	switch strings.ToLower(strings.TrimSpace(oneway)) {
	case "yes", "true", "1":
		return graph.DirectionForward
	case "-1", "reverse":
		return graph.DirectionBackward
	default:
		return graph.DirectionBoth
	}
}
