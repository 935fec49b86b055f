// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"errors"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// webSafeLevels is the number of intensity steps per channel in the web-safe
// palette (image/color/palette.WebSafe has 6*6*6 entries).
const webSafeLevels = 6

const webSafeSize = webSafeLevels * webSafeLevels * webSafeLevels

// ErrNoPixels is returned for frames with an empty bounds rectangle.
var ErrNoPixels = errors.New("frame has no pixels")

var (
	levels  [256]float64 // 0..255
	squares [256]float64 // levels squared
)

func init() {
	for i := range levels {
		levels[i] = float64(i)
		squares[i] = float64(i * i)
	}
}

// EstimateOptions turns the optional measurements on.
type EstimateOptions struct {
	Hue         bool
	SingleColor bool
}

// histograms holds per-frame pixel counts; all statistics derive from them.
type histograms struct {
	luma    [256]float64
	hue     [256]float64
	palette [webSafeSize]float64
	n       float64
}

// Estimate computes brightness (RMS luma), contrast (population stddev of
// luma), and optionally mean hue and the dominant web-safe color fraction.
// It does not modify img.
func Estimate(img image.Image, opts EstimateOptions) (Stats, error) {
	h, err := collect(img, opts)
	if err != nil {
		return Stats{}, err
	}
	var s Stats
	s.Brightness = math.Sqrt(floats.Dot(squares[:], h.luma[:]) / h.n)
	_, s.Contrast = stat.PopMeanStdDev(levels[:], h.luma[:])
	if opts.Hue {
		s.Hue = stat.Mean(levels[:], h.hue[:])
	}
	if opts.SingleColor {
		s.SingleColorFraction = floats.Max(h.palette[:]) / h.n
	}
	return s, nil
}

func collect(img image.Image, opts EstimateOptions) (*histograms, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrNoPixels
	}
	h := &histograms{n: float64(b.Dx() * b.Dy())}
	needRGB := opts.Hue || opts.SingleColor

	switch m := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := m.Pix[m.PixOffset(b.Min.X, y):m.PixOffset(b.Max.X, y)]
			for _, v := range row {
				h.luma[v]++
				if needRGB {
					h.addColor(opts, v, v, v)
				}
			}
		}
	case *image.YCbCr:
		// JPEG frames: the Y plane already is luma.
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				yy := m.Y[m.YOffset(x, y)]
				h.luma[yy]++
				if needRGB {
					ci := m.COffset(x, y)
					r, g, bl := color.YCbCrToRGB(yy, m.Cb[ci], m.Cr[ci])
					h.addColor(opts, r, g, bl)
				}
			}
		}
	default:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r16, g16, b16, _ := img.At(x, y).RGBA()
				r, g, bl := uint8(r16>>8), uint8(g16>>8), uint8(b16>>8)
				h.luma[luma(r, g, bl)]++
				if needRGB {
					h.addColor(opts, r, g, bl)
				}
			}
		}
	}
	return h, nil
}

func (h *histograms) addColor(opts EstimateOptions, r, g, b uint8) {
	if opts.Hue {
		h.hue[hueByte(r, g, b)]++
	}
	if opts.SingleColor {
		h.palette[webSafeIndex(r, g, b)]++
	}
}

// luma is the ITU-R 601-2 transform with round-half-up in 16.16 fixed point.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

// hueByte returns HSV hue scaled to 0..255.
func hueByte(r, g, b uint8) uint8 {
	maxC := max(r, g, b)
	minC := min(r, g, b)
	if maxC == minC {
		return 0
	}
	delta := float64(maxC - minC)
	rf, gf, bf := float64(r), float64(g), float64(b)

	var h float64
	switch maxC {
	case r:
		h = math.Mod((gf-bf)/delta, 6)
	case g:
		h = (bf-rf)/delta + 2
	default:
		h = (rf-gf)/delta + 4
	}
	h /= 6
	if h < 0 {
		h++
	}
	return uint8(math.Min(math.Round(h*255), 255))
}
