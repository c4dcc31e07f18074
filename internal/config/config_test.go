package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "APP_PORT", "MAP_DATA_PATH", "SNAP_MAX_DISTANCE_M",
		"WALKING_SPEED_MPS", "REQUIRE_TLS", "OTEL_ENABLED", "NAV_TUNING_FILE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 75.0, cfg.SnapMaxDistanceM)
	assert.Equal(t, 1.4, cfg.WalkingSpeedMPS)
	assert.False(t, cfg.RequireTLS)
	assert.False(t, cfg.TelemetryEnabled)
	assert.NoError(t, cfg.Tuning.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SNAP_MAX_DISTANCE_M", "120")
	t.Setenv("WALKING_SPEED_MPS", "1.1")
	t.Setenv("REQUIRE_TLS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 120.0, cfg.SnapMaxDistanceM)
	assert.Equal(t, 1.1, cfg.WalkingSpeedMPS)
	assert.True(t, cfg.RequireTLS)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("SNAP_MAX_DISTANCE_M", "not-a-number")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SNAP_MAX_DISTANCE_M", "-5")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadTuningOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"off_route_m: 40\noff_route_relaxed_m: 55\narrival_grace_seconds: 2.5\n",
	), 0o600))

	tuning, err := LoadTuning(path)
	require.NoError(t, err)

	assert.Equal(t, 40.0, tuning.OffRouteM)
	assert.Equal(t, 55.0, tuning.OffRouteRelaxedM)
	assert.Equal(t, 2500*time.Millisecond, tuning.ArrivalGrace)
	// Untouched fields keep their defaults.
	assert.Equal(t, 25.0, tuning.AdvanceRadiusM)
}

func TestLoadTuningRejectsInconsistentThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"advance_radius_m: 70\n", // beyond the warning band
	), 0o600))

	_, err := LoadTuning(path)
	assert.Error(t, err)
}

func TestLoadTuningRejectsNegativeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte("off_route_m: -10\n"), 0o600))

	_, err := LoadTuning(path)
	assert.Error(t, err)
}

func TestLoadTuningMissingFile(t *testing.T) {
	_, err := LoadTuning(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
