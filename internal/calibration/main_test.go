// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/accumen_camera/internal/camera"
	"github.com/relabs-tech/accumen_camera/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// gray returns an 8x4 PNG frame whose brightness is exactly level.
func gray(t *testing.T, level uint8) []byte {
	t.Helper()
	b, err := camera.GrayFrame(8, 4, level)
	require.NoError(t, err)
	return b
}

func grays(t *testing.T, levels ...uint8) [][]byte {
	t.Helper()
	out := make([][]byte, len(levels))
	for i, l := range levels {
		out[i] = gray(t, l)
	}
	return out
}

func twoTone(t *testing.T, a, b uint8) []byte {
	t.Helper()
	f, err := camera.TwoToneFrame(8, 4, a, b)
	require.NoError(t, err)
	return f
}

// brightnessOnly is the default config with only the brightness axis active
// and dominant-color detection off.
func brightnessOnly() Config {
	cfg := DefaultConfig()
	cfg.OptimizeContrast = false
	cfg.SingleColor = SingleColorOff
	return cfg
}
