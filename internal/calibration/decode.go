// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Decoder turns raw frame bytes into pixels.
type Decoder interface {
	Decode(raw []byte) (image.Image, error)
}

// Inset trims a fixed border from each side of a frame. The camera delivers a
// wider field of view than the calibration target occupies.
type Inset struct {
	X int
	Y int
}

// Apply returns the rectangle left after trimming r.
func (in Inset) Apply(r image.Rectangle) (image.Rectangle, error) {
	out := image.Rect(r.Min.X+in.X, r.Min.Y+in.Y, r.Max.X-in.X, r.Max.Y-in.Y)
	if in.X < 0 || in.Y < 0 || out.Empty() {
		return image.Rectangle{}, fmt.Errorf("inset %dx%d leaves no pixels in %v", in.X, in.Y, r)
	}
	return out, nil
}

// Crop returns the inset region of img, sharing pixels when the image type
// supports SubImage and copying otherwise.
func (in Inset) Crop(img image.Image) (image.Image, error) {
	r, err := in.Apply(img.Bounds())
	if err != nil {
		return nil, err
	}
	if r == img.Bounds() {
		return img, nil
	}
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, img, r, draw.Src, nil)
	return dst, nil
}

// ImageDecoder decodes any registered still-image format (JPEG from the
// camera, PNG for synthetic frames) and trims the configured inset.
type ImageDecoder struct {
	Inset Inset
}

var errEmptyFrame = errors.New("empty frame")

func (d ImageDecoder) Decode(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, errEmptyFrame
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return d.Inset.Crop(img)
}
