// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/accumen_camera/internal/camera"
)

func decodeFrame(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := ImageDecoder{}.Decode(raw)
	require.NoError(t, err)
	return img
}

func TestEstimateBrightnessAndContrast(t *testing.T) {
	tests := []struct {
		name       string
		a, b       uint8
		brightness float64
		contrast   float64
	}{
		{"black", 0, 0, 0, 0},
		{"uniform", 37, 37, 37, 0},
		{"white", 255, 255, 255, 0},
		{"two tone", 10, 50, math.Sqrt((100 + 2500) / 2.0), 20},
		{"half black", 0, 40, math.Sqrt(800), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Estimate(decodeFrame(t, twoTone(t, tt.a, tt.b)), EstimateOptions{})
			require.NoError(t, err)
			assert.InDelta(t, tt.brightness, s.Brightness, 1e-9)
			assert.InDelta(t, tt.contrast, s.Contrast, 1e-9)
			assert.Zero(t, s.Hue)
			assert.Zero(t, s.SingleColorFraction)
		})
	}
}

func TestEstimateHue(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
		hue  float64
	}{
		{"red", color.RGBA{255, 0, 0, 255}, 0},
		{"green", color.RGBA{0, 255, 0, 255}, 85},
		{"blue", color.RGBA{0, 0, 255, 255}, 170},
		{"gray has no hue", color.RGBA{90, 90, 90, 255}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := camera.SolidFrame(6, 6, tt.c)
			require.NoError(t, err)
			s, err := Estimate(decodeFrame(t, raw), EstimateOptions{Hue: true})
			require.NoError(t, err)
			assert.InDelta(t, tt.hue, s.Hue, 1e-9)
		})
	}
}

func TestEstimateLumaWeights(t *testing.T) {
	raw, err := camera.SolidFrame(4, 4, color.RGBA{0, 255, 0, 255})
	require.NoError(t, err)
	s, err := Estimate(decodeFrame(t, raw), EstimateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 150.0, s.Brightness)
}

func TestEstimateEmptyFrame(t *testing.T) {
	_, err := Estimate(image.NewGray(image.Rect(0, 0, 0, 0)), EstimateOptions{})
	assert.ErrorIs(t, err, ErrNoPixels)
}

func TestEstimateDoesNotModifyImage(t *testing.T) {
	img := decodeFrame(t, twoTone(t, 12, 200)).(*image.Gray)
	before := append([]uint8(nil), img.Pix...)
	_, err := Estimate(img, EstimateOptions{Hue: true, SingleColor: true})
	require.NoError(t, err)
	assert.Equal(t, before, img.Pix)
}

func TestSingleColorFraction(t *testing.T) {
	solid, err := camera.SolidFrame(4, 4, color.RGBA{200, 30, 30, 255})
	require.NoError(t, err)

	tests := []struct {
		name     string
		raw      []byte
		fraction float64
	}{
		{"solid", solid, 1},
		{"split across buckets", twoTone(t, 0, 255), 0.5},
		{"close levels share a bucket", twoTone(t, 36, 38), 1},
		{"neighbouring buckets", twoTone(t, 25, 26), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := SingleColorFraction(decodeFrame(t, tt.raw))
			require.NoError(t, err)
			assert.InDelta(t, tt.fraction, f, 1e-9)
		})
	}

	single, err := IsSingleColor(decodeFrame(t, solid), 0.9)
	require.NoError(t, err)
	assert.True(t, single)
	single, err = IsSingleColor(decodeFrame(t, twoTone(t, 0, 255)), 0.9)
	require.NoError(t, err)
	assert.False(t, single)
}

func TestWebSafeIndexMatchesPalette(t *testing.T) {
	assert.Equal(t, 0, webSafeIndex(0, 0, 0))
	assert.Equal(t, webSafeSize-1, webSafeIndex(255, 255, 255))
	assert.Equal(t, 5*36, webSafeIndex(255, 0, 0))
	assert.Equal(t, 1, webSafeIndex(0, 0, 51))
}

func TestInset(t *testing.T) {
	r := image.Rect(0, 0, 8, 4)

	got, err := Inset{X: 2, Y: 1}.Apply(r)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(2, 1, 6, 3), got)

	_, err = Inset{X: 4}.Apply(r)
	assert.Error(t, err, "inset consuming the whole width")
	_, err = Inset{X: -1}.Apply(r)
	assert.Error(t, err, "negative inset")

	img, err := ImageDecoder{Inset: Inset{X: 2}}.Decode(twoTone(t, 10, 50))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	s, err := Estimate(img, EstimateOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, s.Contrast, 1e-9)
}

func TestImageDecoderErrors(t *testing.T) {
	_, err := ImageDecoder{}.Decode(nil)
	assert.Error(t, err)
	_, err = ImageDecoder{}.Decode([]byte("not an image"))
	assert.Error(t, err)
}
