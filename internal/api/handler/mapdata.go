package handler

import (
	"net/http"

	"github.com/nasrdanavi/nasrdanavi/internal/api/models"
	"github.com/nasrdanavi/nasrdanavi/internal/api/response"
	"github.com/nasrdanavi/nasrdanavi/internal/graph"
)

// MapHandler serves map bootstrap data.
type MapHandler struct {
	graph            *graph.Graph
	snapMaxDistanceM float64
}

// NewMapHandler creates a new MapHandler.
func NewMapHandler(g *graph.Graph, snapMaxDistanceM float64) *MapHandler {
	return &MapHandler{graph: g, snapMaxDistanceM: snapMaxDistanceM}
}

// GetConfig handles GET /v1/map/config.
func (h *MapHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	bounds := h.graph.Bounds()

	cfg := models.MapConfig{
		Bounds: models.GeoBox{
			MinLat: bounds.MinLat,
			MinLon: bounds.MinLon,
			MaxLat: bounds.MaxLat,
			MaxLon: bounds.MaxLon,
		},
		Center: models.Point{
			Lat: (bounds.MinLat + bounds.MaxLat) / 2,
			Lon: (bounds.MinLon + bounds.MaxLon) / 2,
		},
		NodeCount:        h.graph.NodeCount(),
		SegmentCount:     h.graph.SegmentCount(),
		SnapMaxDistanceM: h.snapMaxDistanceM,
	}

	response.JSON(w, r, http.StatusOK, cfg)
}
