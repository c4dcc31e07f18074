// Package handler provides HTTP handlers for the NasrdaNavi API.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	geojson "github.com/paulmach/go.geojson"

	"github.com/nasrdanavi/nasrdanavi/internal/api/models"
	"github.com/nasrdanavi/nasrdanavi/internal/api/response"
	"github.com/nasrdanavi/nasrdanavi/internal/geo"
	"github.com/nasrdanavi/nasrdanavi/internal/routing"
)

// RouteHandler serves route computation.
type RouteHandler struct {
	svc *routing.Service
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(svc *routing.Service) *RouteHandler {
	return &RouteHandler{svc: svc}
}

// ComputeRoute handles GET /v1/route?start=lon,lat&end=lon,lat.
func (h *RouteHandler) ComputeRoute(w http.ResponseWriter, r *http.Request) {
	start, err := parsePointParam(r, "start")
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "start", Message: err.Error(), Code: "invalid_coordinate"},
		})
		return
	}
	end, err := parsePointParam(r, "end")
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "end", Message: err.Error(), Code: "invalid_coordinate"},
		})
		return
	}

	route, err := h.svc.CalculateRoute(r.Context(), start, end)
	if err != nil {
		WriteRoutingError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, ToRouteResponse(route))
}

// WriteRoutingError maps a routing failure onto the HTTP error taxonomy:
// malformed input is a 400, a well-formed request the network cannot serve
// is a 422 with a machine-readable code.
func WriteRoutingError(w http.ResponseWriter, r *http.Request, err error) {
	var re *routing.Error
	if !errors.As(err, &re) {
		response.InternalError(w, r, "route computation failed")
		return
	}

	switch re.Kind {
	case routing.KindInvalidInput:
		response.BadRequest(w, r, re.Message, nil)
	case routing.KindOutOfBounds, routing.KindTooFarFromRoad, routing.KindNoPath:
		response.RoutingFailure(w, r, string(re.Kind), re.Message)
	default:
		response.InternalError(w, r, "route computation failed")
	}
}

// ToRouteResponse converts a computed route to its API shape.
func ToRouteResponse(route *routing.Route) models.RouteResponse {
	path := make([]models.Point, len(route.Path))
	coords := make([][]float64, len(route.Path))
	for i, p := range route.Path {
		path[i] = models.Point{Lat: p.Lat, Lon: p.Lon}
		coords[i] = []float64{p.Lon, p.Lat}
	}
	geometry := geojson.NewLineStringFeature(coords)
	geometry.SetProperty("totalDistanceM", route.TotalDistance)
	instructions := make([]models.InstructionModel, len(route.Instructions))
	for i, ins := range route.Instructions {
		instructions[i] = models.InstructionModel{
			Text:      ins.Text,
			Location:  models.Point{Lat: ins.Location.Lat, Lon: ins.Location.Lon},
			PathIndex: ins.PathIndex,
		}
	}
	return models.RouteResponse{
		Path:           path,
		Geometry:       geometry,
		Roads:          route.Roads,
		Instructions:   instructions,
		TotalDistanceM: route.TotalDistance,
		EstimatedTimeS: route.EstimatedTime.Seconds(),
	}
}

// parsePointParam parses a "lon,lat" query parameter.
func parsePointParam(r *http.Request, name string) (geo.Point, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return geo.Point{}, fmt.Errorf("missing %q parameter", name)
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("%q must be \"lon,lat\"", name)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%q longitude is not a number", name)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%q latitude is not a number", name)
	}
	return geo.Point{Lon: lon, Lat: lat}, nil
}
