// Package config loads service configuration from the environment and an
// optional guidance tuning file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nasrdanavi/nasrdanavi/internal/nav"
)

// Config is the fully resolved service configuration.
type Config struct {
	// Env is the deployment environment name.
	Env string

	// Port is the HTTP listen port.
	Port string

	// MapDataPath points at the road network GeoJSON file.
	MapDataPath string

	// SnapMaxDistanceM is the farthest a query point may sit from any road.
	SnapMaxDistanceM float64

	// WalkingSpeedMPS drives route time estimates.
	WalkingSpeedMPS float64

	// RequireTLS rejects plain-HTTP requests behind a proxy.
	RequireTLS bool

	// OTLPEndpoint is the collector address for traces and metrics.
	OTLPEndpoint string

	// TelemetryEnabled switches the OTLP exporters on.
	TelemetryEnabled bool

	// TuningPath optionally points at a YAML guidance tuning file.
	TuningPath string

	// Tuning holds the guidance thresholds, from TuningPath or defaults.
	Tuning nav.Tuning
}

// Load resolves configuration. A .env file is read first when present, then
// environment variables, then the tuning file named by NAV_TUNING_FILE.
func Load() (*Config, error) {
	// Best effort: absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Env:              envOr("APP_ENV", "development"),
		Port:             envOr("APP_PORT", "8080"),
		MapDataPath:      envOr("MAP_DATA_PATH", "data/roads.geojson"),
		SnapMaxDistanceM: 75,
		WalkingSpeedMPS:  1.4,
		RequireTLS:       os.Getenv("REQUIRE_TLS") == "true",
		OTLPEndpoint:     envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: os.Getenv("OTEL_ENABLED") == "true",
		TuningPath:       os.Getenv("NAV_TUNING_FILE"),
		Tuning:           nav.DefaultTuning(),
	}

	if v := os.Getenv("SNAP_MAX_DISTANCE_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("SNAP_MAX_DISTANCE_M: %q is not a positive number", v)
		}
		cfg.SnapMaxDistanceM = f
	}
	if v := os.Getenv("WALKING_SPEED_MPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("WALKING_SPEED_MPS: %q is not a positive number", v)
		}
		cfg.WalkingSpeedMPS = f
	}

	if cfg.TuningPath != "" {
		tuning, err := LoadTuning(cfg.TuningPath)
		if err != nil {
			return nil, fmt.Errorf("load tuning file: %w", err)
		}
		cfg.Tuning = tuning
	}

	return cfg, nil
}

// tuningFile is the YAML shape of a guidance tuning file. Every field is
// optional; omitted values keep their defaults.
type tuningFile struct {
	ProximityLockM      *float64 `yaml:"proximity_lock_m" validate:"omitempty,gt=0"`
	MaxUsableAccuracyM  *float64 `yaml:"max_usable_accuracy_m" validate:"omitempty,gt=0"`
	OffRouteM           *float64 `yaml:"off_route_m" validate:"omitempty,gt=0"`
	OffRouteRelaxedM    *float64 `yaml:"off_route_relaxed_m" validate:"omitempty,gt=0"`
	RelaxAccuracyAboveM *float64 `yaml:"relax_accuracy_above_m" validate:"omitempty,gt=0"`
	AdvanceWarnNearM    *float64 `yaml:"advance_warn_near_m" validate:"omitempty,gt=0"`
	AdvanceWarnFarM     *float64 `yaml:"advance_warn_far_m" validate:"omitempty,gt=0"`
	AdvanceRadiusM      *float64 `yaml:"advance_radius_m" validate:"omitempty,gt=0"`
	ArrivalRadiusM      *float64 `yaml:"arrival_radius_m" validate:"omitempty,gt=0"`
	ArrivalGraceSeconds *float64 `yaml:"arrival_grace_seconds" validate:"omitempty,gt=0"`
}

// LoadTuning reads a YAML tuning file and overlays it on the defaults. The
// resulting threshold set is validated as a whole.
func LoadTuning(path string) (nav.Tuning, error) {
	tuning := nav.DefaultTuning()

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, err
	}

	var file tuningFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return tuning, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return tuning, fmt.Errorf("validate %s: %w", path, err)
	}

	setIf(&tuning.ProximityLockM, file.ProximityLockM)
	setIf(&tuning.MaxUsableAccuracyM, file.MaxUsableAccuracyM)
	setIf(&tuning.OffRouteM, file.OffRouteM)
	setIf(&tuning.OffRouteRelaxedM, file.OffRouteRelaxedM)
	setIf(&tuning.RelaxAccuracyAboveM, file.RelaxAccuracyAboveM)
	setIf(&tuning.AdvanceWarnNearM, file.AdvanceWarnNearM)
	setIf(&tuning.AdvanceWarnFarM, file.AdvanceWarnFarM)
	setIf(&tuning.AdvanceRadiusM, file.AdvanceRadiusM)
	setIf(&tuning.ArrivalRadiusM, file.ArrivalRadiusM)
	if file.ArrivalGraceSeconds != nil {
		tuning.ArrivalGrace = time.Duration(*file.ArrivalGraceSeconds * float64(time.Second))
	}

	if err := tuning.Validate(); err != nil {
		return tuning, fmt.Errorf("%s: %w", path, err)
	}
	return tuning, nil
}

func setIf(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
