// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeGray(t *testing.T, raw []byte) *image.Gray {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	g, ok := img.(*image.Gray)
	require.True(t, ok, "got %T", img)
	return g
}

func TestTwoToneFrame(t *testing.T) {
	raw, err := TwoToneFrame(6, 2, 10, 90)
	require.NoError(t, err)
	g := decodeGray(t, raw)

	assert.Equal(t, image.Rect(0, 0, 6, 2), g.Bounds())
	assert.Equal(t, uint8(10), g.GrayAt(2, 1).Y)
	assert.Equal(t, uint8(90), g.GrayAt(3, 0).Y)
}

func TestScriptedReplaysInOrder(t *testing.T) {
	a, err := GrayFrame(2, 2, 1)
	require.NoError(t, err)
	b, err := GrayFrame(2, 2, 2)
	require.NoError(t, err)
	s := NewScripted(a, b)
	ctx := context.Background()

	require.NoError(t, s.SetExposure(100))
	got, err := s.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	got, err = s.Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = s.Capture(ctx)
	assert.ErrorIs(t, err, ErrScriptExhausted)
	assert.Equal(t, 3, s.Captures)
	assert.Equal(t, 100, s.LastExposure())
}

func TestScriptedHooks(t *testing.T) {
	errFault := errors.New("fault")
	s := NewScripted()
	s.ExposureErr = func(v int) error {
		if v > 500 {
			return errFault
		}
		return nil
	}
	s.ContrastErr = func(int) error { return errFault }

	assert.Equal(t, -1, s.LastExposure())
	require.NoError(t, s.SetExposure(200))
	assert.ErrorIs(t, s.SetExposure(600), errFault)
	assert.ErrorIs(t, s.SetContrast(32), errFault)
	assert.Equal(t, []int{200}, s.Exposures)
	assert.Empty(t, s.Contrasts)
}

func TestScriptedHonoursCancellation(t *testing.T) {
	f, err := GrayFrame(2, 2, 1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewScripted(f).Capture(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedFollowsRegisters(t *testing.T) {
	s := NewSimulated()
	ctx := context.Background()

	mean := func(exposure, contrast int) (lo, hi uint8) {
		require.NoError(t, s.SetExposure(exposure))
		require.NoError(t, s.SetContrast(contrast))
		raw, err := s.Capture(ctx)
		require.NoError(t, err)
		g := decodeGray(t, raw)
		return g.GrayAt(0, 0).Y, g.GrayAt(s.Width-1, 0).Y
	}

	lo, hi := mean(500, 10)
	assert.Equal(t, uint8(26), lo) // 35 - 9
	assert.Equal(t, uint8(44), hi) // 35 + 9

	lo, hi = mean(4000, 10)
	assert.Equal(t, uint8(236), lo)
	assert.Equal(t, uint8(254), hi)

	lo, hi = mean(0, 40)
	assert.Equal(t, uint8(0), lo, "clamped at black")
	assert.Equal(t, uint8(41), hi)
}
