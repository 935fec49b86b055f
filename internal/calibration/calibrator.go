// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration tunes a camera's exposure and contrast-control
// registers until captured frames land inside target brightness, contrast
// and hue bands.
//
// A run is two steps: a two-point exposure fit to jump near the target,
// then a bounded loop that nudges each register one step at a time in the
// direction that shrinks its error.
package calibration

import (
	"context"

	"github.com/relabs-tech/accumen_camera/internal/monitoring"
)

// FrameSource is the capture device as the calibrator sees it. Register
// writes are fire-and-forget; Capture blocks until a frame is available,
// ctx is done, or the source's own timeout expires.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
	SetExposure(v int) error
	SetContrast(v int) error
}

// Calibrator runs calibrations against one exclusively owned FrameSource.
// It is not safe for concurrent use; callers serialise runs.
type Calibrator struct {
	cfg      Config
	src      FrameSource
	dec      Decoder
	observer Observer
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithDecoder replaces the default ImageDecoder.
func WithDecoder(d Decoder) Option {
	return func(c *Calibrator) { c.dec = d }
}

// WithObserver registers a per-attempt callback.
func WithObserver(o Observer) Option {
	return func(c *Calibrator) { c.observer = o }
}

// New validates cfg and binds it to src. An invalid configuration is
// reported as *ConfigError and nothing touches the device.
func New(cfg Config, src FrameSource, opts ...Option) (*Calibrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Calibrator{cfg: cfg, src: src, dec: ImageDecoder{}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns the configuration the calibrator was built with.
func (c *Calibrator) Config() Config { return c.cfg }

// Run performs the exposure fit followed by the optimizer loop.
func (c *Calibrator) Run(ctx context.Context) (Result, error) {
	fit, err := c.Linearize(ctx)
	if err != nil {
		return Result{}, err
	}
	res, err := c.Optimize(ctx, fit.Start)
	if err != nil {
		return Result{}, err
	}
	res.Fit = &fit
	return res, nil
}

// sample writes both registers, captures one frame and measures it. stage
// and attempt only label decode failures.
func (c *Calibrator) sample(ctx context.Context, exposure, contrast int, stage string, attempt int) (FrameSample, error) {
	if err := c.write("set_exposure", c.src.SetExposure, exposure); err != nil {
		return FrameSample{}, err
	}
	if err := c.write("set_contrast", c.src.SetContrast, contrast); err != nil {
		return FrameSample{}, err
	}

	raw, err := c.src.Capture(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return FrameSample{}, ctxErr
		}
		return FrameSample{}, &DeviceError{Op: "capture", Err: err}
	}

	img, err := c.dec.Decode(raw)
	if err != nil {
		return FrameSample{}, &DecodeError{Stage: stage, Attempt: attempt, Err: err}
	}
	st, err := Estimate(img, EstimateOptions{
		Hue:         c.cfg.OptimizeHue,
		SingleColor: c.cfg.SingleColor != SingleColorOff,
	})
	if err != nil {
		return FrameSample{}, &DecodeError{Stage: stage, Attempt: attempt, Err: err}
	}

	return FrameSample{
		Exposure:        exposure,
		ContrastControl: contrast,
		Raw:             raw,
		Stats:           st,
	}, nil
}

// write performs one register write, retrying once before giving up.
func (c *Calibrator) write(op string, set func(int) error, v int) error {
	err := set(v)
	if err == nil {
		return nil
	}
	monitoring.Logf("calibration: %s(%d) failed, retrying: %v", op, v, err)
	if err := set(v); err != nil {
		return &DeviceError{Op: op, Err: err}
	}
	return nil
}
