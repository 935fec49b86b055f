// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camera_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultMatchesCalibrationDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, calibration.DefaultConfig(), cfg.Calibration())
	assert.Equal(t, calibration.Inset{X: 408, Y: 0}, cfg.Inset())
	assert.Equal(t, "/dev/video0", cfg.DevicePath())
	assert.Equal(t, 8000, cfg.Port)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
# camera settings
HOST=127.0.0.1
PORT=9000
DEVICE=2
WIDTH=1920
HEIGHT=1080
X_OFFSET=100
Y_OFFSET=20
SKIP=3
CAPTURE_TIMEOUT_MS=1500

BRIGHTNESS_OPTIMAL=40
BRIGHTNESS_DIFF=1.5
HUE_POLICY=inside
HUE_MIN=10
HUE_MAX=40
ENABLE_HUE_OPTIMISATION=true
ENABLE_CONTRAST_OPTIMISATION=false
SINGLE_COLOR_POLICY=reject
SINGLE_COLOR_THRESHOLD=0.8
FINAL_FRAME=best
MAX_ATTEMPTS=20

EXPOSURE_ABSOLUTE_MIN=50
EXPOSURE_ABSOLUTE_MAX=500
EXPOSURE_ABSOLUTE_STEP=10
EXPOSURE_ABSOLUTE=100
CONTRAST_CONTROL=40

OUTPUT_PATH=/var/lib/camera
MQTT_BROKER=tcp://localhost:1883
STATUS_LED_PIN=GPIO17
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/dev/video2", cfg.DevicePath())
	assert.Equal(t, 1500*time.Millisecond, cfg.CaptureTimeout)
	assert.Equal(t, calibration.Inset{X: 100, Y: 20}, cfg.Inset())
	assert.Equal(t, "/var/lib/camera", cfg.Path)
	assert.Equal(t, "GPIO17", cfg.StatusLEDPin)

	cal := cfg.Calibration()
	assert.Equal(t, 40.0, cal.BrightnessTarget)
	assert.Equal(t, 1.5, cal.BrightnessTolerance)
	assert.Equal(t, calibration.HueInsideBand, cal.HuePolicy)
	assert.True(t, cal.OptimizeHue)
	assert.False(t, cal.OptimizeContrast)
	assert.Equal(t, calibration.SingleColorReject, cal.SingleColor)
	assert.Equal(t, calibration.FinalFrameBest, cal.FinalFrame)
	assert.Equal(t, 20, cal.MaxAttempts)
	assert.Equal(t, calibration.Range{Min: 50, Max: 500, Step: 10, Initial: 100}, cal.Exposure)
	assert.Equal(t, calibration.Range{Min: 32, Max: 48, Step: 2, Initial: 40}, cal.Contrast)

	// untouched keys keep defaults
	assert.Equal(t, 30.0, cal.ContrastTarget)
	assert.Equal(t, "accumen/camera/calibration", cfg.TopicCalibration)
}

func TestLegacySingleColorSwitch(t *testing.T) {
	cfg, err := Load(writeConfig(t, "ENABLE_SINGLE_COLOR_REJECTION=false\n"))
	require.NoError(t, err)
	assert.Equal(t, calibration.SingleColorOff, cfg.SingleColorPolicy)

	cfg, err = Load(writeConfig(t, "ENABLE_SINGLE_COLOR_REJECTION=false\nENABLE_SINGLE_COLOR_REJECTION=true\n"))
	require.NoError(t, err)
	assert.Equal(t, calibration.SingleColorFlag, cfg.SingleColorPolicy)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing equals", "PORT 8000\n"},
		{"unknown key", "COLOUR=blue\n"},
		{"bad int", "PORT=eighty\n"},
		{"bad float", "BRIGHTNESS_OPTIMAL=bright\n"},
		{"bad bool", "EXPOSURE_AUTO=maybe\n"},
		{"bad policy", "HUE_POLICY=sideways\n"},
		{"port out of range", "PORT=70000\n"},
		{"inset too large", "WIDTH=800\nX_OFFSET=400\n"},
		{"zero timeout", "CAPTURE_TIMEOUT_MS=0\n"},
		{"empty output path", "OUTPUT_PATH=\n"},
		{"mqtt without topic", "MQTT_BROKER=tcp://b:1883\nTOPIC_CALIBRATION=\n"},
		{"calibration invalid", "EXPOSURE_ABSOLUTE=5000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
