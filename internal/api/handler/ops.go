package handler

import (
	"net/http"
	"time"

	"github.com/nasrdanavi/nasrdanavi/internal/api/models"
	"github.com/nasrdanavi/nasrdanavi/internal/api/response"
	"github.com/nasrdanavi/nasrdanavi/internal/graph"
	"github.com/nasrdanavi/nasrdanavi/internal/nav"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	graph     *graph.Graph
	manager   *nav.Manager
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, g *graph.Graph, manager *nav.Manager) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		graph:     g,
		manager:   manager,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. The service is ready once the
// road graph is loaded and routable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil || h.graph.NodeCount() == 0 {
		response.ServiceUnavailable(w, r, "road network not loaded")
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	graphStatus := models.HealthStatusOK
	if h.graph == nil || h.graph.NodeCount() == 0 {
		graphStatus = models.HealthStatusFail
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status: graphStatus,
		Time:   models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{
			{Name: "road-graph", Status: graphStatus},
			{Name: "guidance-sessions", Status: models.HealthStatusOK},
		},
	})
}
