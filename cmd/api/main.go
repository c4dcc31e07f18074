// Package main provides the entrypoint for the NasrdaNavi API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nasrdanavi/nasrdanavi/internal/api"
	"github.com/nasrdanavi/nasrdanavi/internal/api/middleware"
	"github.com/nasrdanavi/nasrdanavi/internal/config"
	"github.com/nasrdanavi/nasrdanavi/internal/graph"
	"github.com/nasrdanavi/nasrdanavi/internal/mapdata"
	"github.com/nasrdanavi/nasrdanavi/internal/nav"
	"github.com/nasrdanavi/nasrdanavi/internal/routing"
	"github.com/nasrdanavi/nasrdanavi/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "nasrdanavi-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting NasrdaNavi API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Load the road network and build the routing graph.
	roads, err := mapdata.LoadRoads(cfg.MapDataPath, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.MapDataPath).Msg("failed to load road network")
	}
	g, err := graph.Build(roads, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build road graph")
	}
	log.Info().
		Int("nodes", g.NodeCount()).
		Int("segments", g.SegmentCount()).
		Msg("road graph built")

	snapper := graph.NewSnapper(graph.SnapperConfig{
		Graph:       g,
		MaxDistance: cfg.SnapMaxDistanceM,
		Logger:      log,
	})

	routingService, err := routing.NewService(routing.ServiceConfig{
		Graph:        g,
		Snapper:      snapper,
		Logger:       log,
		WalkingSpeed: cfg.WalkingSpeedMPS,
		Meter:        tp.Meter,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize routing service")
	}
	log.Info().Msg("routing service initialized")

	tuning := cfg.Tuning
	navManager := nav.NewManager(nav.ManagerConfig{
		Logger: log,
		Tuning: &tuning,
	})
	defer navManager.Shutdown()
	log.Info().Msg("guidance session manager initialized")

	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		Metrics:          metrics,
		RequireTLS:       cfg.RequireTLS,
		Graph:            g,
		RoutingService:   routingService,
		NavManager:       navManager,
		SnapMaxDistanceM: cfg.SnapMaxDistanceM,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open indefinitely
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
