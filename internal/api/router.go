// Package api provides the HTTP API for NasrdaNavi.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/api/handler"
	"github.com/nasrdanavi/nasrdanavi/internal/api/middleware"
	"github.com/nasrdanavi/nasrdanavi/internal/graph"
	"github.com/nasrdanavi/nasrdanavi/internal/nav"
	"github.com/nasrdanavi/nasrdanavi/internal/routing"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version          string
	BuildTime        string
	Logger           zerolog.Logger
	Metrics          *middleware.Metrics
	RequireTLS       bool
	Graph            *graph.Graph
	RoutingService   *routing.Service
	NavManager       *nav.Manager
	SnapMaxDistanceM float64
}

// NewRouter creates a chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Graph, cfg.NavManager)
	routeHandler := handler.NewRouteHandler(cfg.RoutingService)
	mapHandler := handler.NewMapHandler(cfg.Graph, cfg.SnapMaxDistanceM)
	navHandler := handler.NewNavHandler(cfg.RoutingService, cfg.NavManager, cfg.Logger)
	logHandler := handler.NewClientLogHandler(cfg.Logger)

	computeRateLimit := middleware.RateLimitByIP(middleware.ComputeRateLimit)
	positionRateLimit := middleware.RateLimitByIP(middleware.PositionRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public, never rate limited)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Route computation - the expensive one
		r.With(computeRateLimit).Get("/route", routeHandler.ComputeRoute)

		// Map bootstrap
		r.With(standardRateLimit).Get("/map/config", mapHandler.GetConfig)

		// Client log ingest
		r.With(standardRateLimit).Post("/logs", logHandler.Ingest)

		// Live guidance sessions
		r.Route("/navigation/sessions", func(r chi.Router) {
			r.With(computeRateLimit).Post("/", navHandler.CreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", navHandler.GetSession)
				r.With(positionRateLimit).Post("/position", navHandler.PushPosition)
				r.Get("/events", navHandler.StreamEvents)
				r.With(standardRateLimit).Delete("/", navHandler.CancelSession)
			})
		})
	})

	return r
}
