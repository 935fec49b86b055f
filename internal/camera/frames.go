// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// GrayFrame encodes a w x h frame of a single gray level as PNG. Its RMS
// luma is exactly level and its luma stddev is zero.
func GrayFrame(w, h int, level uint8) ([]byte, error) {
	return TwoToneFrame(w, h, level, level)
}

// TwoToneFrame encodes a frame whose left half is level a and right half is
// level b (w must be even for an exact 50/50 split).
func TwoToneFrame(w, h int, a, b uint8) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := a
			if x >= w/2 {
				v = b
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return encode(img)
}

// SolidFrame encodes a single-color RGB frame.
func SolidFrame(w, h int, c color.RGBA) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return encode(img)
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode synthetic frame: %w", err)
	}
	return buf.Bytes(), nil
}
