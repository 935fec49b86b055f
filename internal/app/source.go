// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
	"github.com/relabs-tech/accumen_camera/internal/camera"
	"github.com/relabs-tech/accumen_camera/internal/config"
	"github.com/relabs-tech/accumen_camera/internal/history"
	"github.com/relabs-tech/accumen_camera/internal/indicator"
	"github.com/relabs-tech/accumen_camera/internal/sink"
)

// OpenSource opens the configured capture device, or a simulated camera
// when dryRun is set, and seeds both registers with their configured
// initial values. The returned func releases the device.
func OpenSource(ctx context.Context, cfg *config.Config, dryRun bool) (calibration.FrameSource, func() error, error) {
	var (
		src     calibration.FrameSource
		release func() error
	)
	if dryRun {
		log.Println("camera: dry run, using simulated camera")
		sim := camera.NewSimulated()
		sim.Width, sim.Height = cfg.Width, cfg.Height
		src, release = sim, func() error { return nil }
	} else {
		dev, err := camera.Open(ctx, camera.Options{
			Path:         cfg.DevicePath(),
			Width:        cfg.Width,
			Height:       cfg.Height,
			Skip:         cfg.Skip,
			WarmUp:       cfg.Skip,
			Timeout:      cfg.CaptureTimeout,
			ExposureAuto: cfg.ExposureAuto,
		})
		if err != nil {
			return nil, nil, err
		}
		src, release = dev, dev.Close
	}

	if err := seed(src, cfg.Exposure.Initial, cfg.Contrast.Initial); err != nil {
		release()
		return nil, nil, err
	}
	return src, release, nil
}

// seed puts the registers on a known state before the first run.
func seed(src calibration.FrameSource, exposure, contrast int) error {
	if err := src.SetExposure(exposure); err != nil {
		return &calibration.DeviceError{Op: "set_exposure", Err: err}
	}
	if err := src.SetContrast(contrast); err != nil {
		return &calibration.DeviceError{Op: "set_contrast", Err: err}
	}
	return nil
}

// Collaborators builds the service dependencies cfg asks for: the output
// sink (whose directory must exist), and the optional run history, MQTT
// notifier and status LED. The returned func closes whatever was opened.
func Collaborators(cfg *config.Config) (ServiceOptions, func(), error) {
	opts := ServiceOptions{Inset: cfg.Inset()}
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (ServiceOptions, func(), error) {
		closeAll()
		return ServiceOptions{}, nil, err
	}

	fs, err := sink.New(cfg.Path, cfg.Inset())
	if err != nil {
		return fail(err)
	}
	opts.Sink = fs

	if cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fail(err)
		}
		opts.History = store
		closers = append(closers, func() { store.Close() })
	}

	if cfg.MQTTBroker != "" {
		n, err := NewMQTTNotifier(MQTTOptions{
			Broker:           cfg.MQTTBroker,
			ClientID:         cfg.MQTTClientID,
			TopicCalibration: cfg.TopicCalibration,
			TopicStatus:      cfg.TopicStatus,
		})
		if err != nil {
			return fail(err)
		}
		opts.Notifier = n
		closers = append(closers, n.Close)
	}

	ind, err := indicator.Open(cfg.StatusLEDPin)
	if err != nil {
		return fail(err)
	}
	opts.Indicator = ind

	return opts, closeAll, nil
}
