// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package camera

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

// V4L2 control IDs (linux/v4l2-controls.h).
const (
	ctrlContrast         v4l2.CtrlID = 0x00980901 // V4L2_CID_CONTRAST
	ctrlExposureAuto     v4l2.CtrlID = 0x009a0901 // V4L2_CID_EXPOSURE_AUTO
	ctrlExposureAbsolute v4l2.CtrlID = 0x009a0902 // V4L2_CID_EXPOSURE_ABSOLUTE

	exposureManual       = 1 // V4L2_EXPOSURE_MANUAL
	exposureAperturePrio = 3 // V4L2_EXPOSURE_APERTURE_PRIORITY
)

// ErrCaptureTimeout is returned when no frame arrives within the capture timeout.
var ErrCaptureTimeout = errors.New("camera: capture timed out")

// ErrStreamClosed is returned when the device stops delivering frames.
var ErrStreamClosed = errors.New("camera: frame stream closed")

// Options configure a V4L2 device.
type Options struct {
	Path         string        // e.g. /dev/video0
	Width        int           // MJPEG frame width
	Height       int           // MJPEG frame height
	Skip         int           // frames to discard after every register change
	WarmUp       int           // frames to discard once the stream starts
	Timeout      time.Duration // per-frame wait
	ExposureAuto bool          // leave auto exposure on (aperture priority)
}

// V4L2 is a frame source backed by a V4L2 capture device streaming MJPEG.
// The device is held open, and exclusively owned, until Close.
type V4L2 struct {
	opts   Options
	dev    *device.Device
	frames <-chan []byte
	cancel context.CancelFunc

	mu    sync.Mutex
	dirty bool // a register changed since the last delivered frame
}

// Open opens and starts the device at opts.Path.
func Open(ctx context.Context, opts Options) (*V4L2, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	dev, err := device.Open(opts.Path,
		device.WithIOType(v4l2.IOTypeMMAP),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       uint32(opts.Width),
			Height:      uint32(opts.Height),
			Field:       v4l2.FieldNone,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", opts.Path, err)
	}

	mode := exposureManual
	if opts.ExposureAuto {
		mode = exposureAperturePrio
	}
	if err := dev.SetControlValue(ctrlExposureAuto, v4l2.CtrlValue(mode)); err != nil {
		log.Printf("camera: %s does not accept exposure mode %d: %v", opts.Path, mode, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	if err := dev.Start(streamCtx); err != nil {
		cancel()
		dev.Close()
		return nil, fmt.Errorf("camera: start stream on %s: %w", opts.Path, err)
	}
	log.Printf("camera: %s streaming MJPEG %dx%d", opts.Path, opts.Width, opts.Height)

	c := &V4L2{opts: opts, dev: dev, frames: dev.GetOutput(), cancel: cancel}
	for i := 0; i < opts.WarmUp; i++ {
		if _, err := c.next(ctx); err != nil {
			c.Close()
			return nil, fmt.Errorf("camera: warm-up frame %d: %w", i+1, err)
		}
	}
	return c, nil
}

// SetExposure writes the absolute exposure register.
func (c *V4L2) SetExposure(v int) error {
	if err := c.dev.SetControlValue(ctrlExposureAbsolute, v4l2.CtrlValue(v)); err != nil {
		return fmt.Errorf("set exposure %d: %w", v, err)
	}
	c.markDirty()
	return nil
}

// SetContrast writes the contrast control register.
func (c *V4L2) SetContrast(v int) error {
	if err := c.dev.SetControlValue(ctrlContrast, v4l2.CtrlValue(v)); err != nil {
		return fmt.Errorf("set contrast %d: %w", v, err)
	}
	c.markDirty()
	return nil
}

func (c *V4L2) markDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// Capture returns one MJPEG frame. After a register change the first Skip
// frames are discarded so the sensor can settle.
func (c *V4L2) Capture(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	skip := 0
	if c.dirty {
		skip = c.opts.Skip
		c.dirty = false
	}
	c.mu.Unlock()

	for i := 0; i < skip; i++ {
		if _, err := c.next(ctx); err != nil {
			return nil, err
		}
	}
	return c.next(ctx)
}

func (c *V4L2) next(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrCaptureTimeout
	case f, ok := <-c.frames:
		if !ok {
			return nil, ErrStreamClosed
		}
		// the driver reuses its buffers
		out := make([]byte, len(f))
		copy(out, f)
		return out, nil
	}
}

// Close stops streaming and releases the device.
func (c *V4L2) Close() error {
	c.cancel()
	return c.dev.Close()
}
