// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the calibration core to its outer surfaces: the HTTP
// trigger, the websocket progress feed, MQTT notifications, run history
// and the status LED.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
	"github.com/relabs-tech/accumen_camera/internal/history"
	"github.com/relabs-tech/accumen_camera/internal/indicator"
)

// ErrBusy is returned when a run is requested while another one holds the camera.
var ErrBusy = errors.New("calibration already in progress")

// Persister stores the frame a run settled on.
type Persister interface {
	Persist(ctx context.Context, sample calibration.FrameSample) (string, error)
}

// RunLog keeps finished runs.
type RunLog interface {
	Record(ctx context.Context, run history.Run) (string, error)
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Notifier is told about every finished run and every busy/idle change.
type Notifier interface {
	Calibrated(rep Report)
	Status(state string)
}

// Report is the outcome of one triggered run as returned to clients.
type Report struct {
	OK                  bool      `json:"ok"`
	RunID               string    `json:"run_id"`
	Trigger             string    `json:"trigger"`
	Time                time.Time `json:"time"`
	Exposure            int       `json:"exposure"`
	ContrastControl     int       `json:"contrast_control"`
	Brightness          float64   `json:"brightness"`
	Contrast            float64   `json:"contrast"`
	Hue                 float64   `json:"hue"`
	SingleColorFraction float64   `json:"single_color_fraction"`
	SingleColor         bool      `json:"single_color"`
	Path                string    `json:"path"`
	Attempts            int       `json:"attempts"`
	Converged           bool      `json:"converged"`
	Phase               string    `json:"phase"`
	Message             string    `json:"message,omitempty"`
}

// ServiceOptions carries the optional collaborators of a Service. Nil
// fields are skipped.
type ServiceOptions struct {
	Inset     calibration.Inset
	Sink      Persister
	History   RunLog
	Notifier  Notifier
	Indicator indicator.Indicator
	Now       func() time.Time
}

// Service owns the camera and runs at most one calibration at a time.
type Service struct {
	mu   sync.Mutex // held for the duration of a run
	cal  *calibration.Calibrator
	opts ServiceOptions
	hub  *ProgressHub
}

// NewService validates cfg and binds it to src.
func NewService(cfg calibration.Config, src calibration.FrameSource, opts ServiceOptions) (*Service, error) {
	if opts.Indicator == nil {
		opts.Indicator = indicator.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	hub := NewProgressHub()
	cal, err := calibration.New(cfg, src,
		calibration.WithDecoder(calibration.ImageDecoder{Inset: opts.Inset}),
		calibration.WithObserver(hub.Attempt),
	)
	if err != nil {
		return nil, err
	}
	return &Service{cal: cal, opts: opts, hub: hub}, nil
}

// Hub is the progress feed attached to every run.
func (s *Service) Hub() *ProgressHub { return s.hub }

// History returns the run log, or nil when none is configured.
func (s *Service) History() RunLog { return s.opts.History }

// Calibrate runs one full calibration and persists its frame. It returns
// ErrBusy without waiting when another run is in progress.
func (s *Service) Calibrate(ctx context.Context, trigger string) (Report, error) {
	if !s.mu.TryLock() {
		return Report{}, ErrBusy
	}
	defer s.mu.Unlock()

	started := s.opts.Now()
	run := history.Run{ID: history.NewID(), Trigger: trigger, StartedAt: started}
	s.setBusy(true)
	defer s.setBusy(false)
	s.hub.Started(run.ID, trigger)

	log.Printf("calibration: run %s started (%s)", run.ID, trigger)
	rep, err := s.calibrate(ctx, &run)
	run.FinishedAt = s.opts.Now()
	if err != nil {
		run.Error = err.Error()
		log.Printf("calibration: run %s failed: %v", run.ID, err)
		s.hub.Failed(run.ID, err)
	} else {
		log.Printf("calibration: run %s finished in %s: exposure=%d contrast_control=%d brightness=%.2f contrast=%.2f converged=%t",
			run.ID, run.FinishedAt.Sub(started).Round(time.Millisecond), rep.Exposure, rep.ContrastControl,
			rep.Brightness, rep.Contrast, rep.Converged)
		s.hub.Completed(rep)
	}

	if s.opts.History != nil {
		// The run is over; a cancelled request context must not lose the record.
		if _, herr := s.opts.History.Record(context.WithoutCancel(ctx), run); herr != nil {
			log.Printf("calibration: record run %s: %v", run.ID, herr)
		}
	}
	if err != nil {
		return Report{}, err
	}
	if s.opts.Notifier != nil {
		s.opts.Notifier.Calibrated(rep)
	}
	return rep, nil
}

func (s *Service) calibrate(ctx context.Context, run *history.Run) (Report, error) {
	res, err := s.cal.Run(ctx)
	if err != nil {
		return Report{}, err
	}
	run.FromResult(res)

	if s.opts.Sink != nil {
		path, err := s.opts.Sink.Persist(ctx, res.Sample)
		if err != nil {
			return Report{}, err
		}
		run.Path = path
	}

	return Report{
		OK:                  true,
		RunID:               run.ID,
		Trigger:             run.Trigger,
		Time:                s.opts.Now(),
		Exposure:            res.FinalExposure,
		ContrastControl:     res.FinalContrast,
		Brightness:          res.Sample.Brightness,
		Contrast:            res.Sample.Contrast,
		Hue:                 res.Sample.Hue,
		SingleColorFraction: res.Sample.SingleColorFraction,
		SingleColor:         res.Sample.SingleColor,
		Path:                run.Path,
		Attempts:            res.Attempts,
		Converged:           res.Converged,
		Phase:               string(res.Phase),
	}, nil
}

func (s *Service) setBusy(busy bool) {
	s.opts.Indicator.Busy(busy)
	if s.opts.Notifier == nil {
		return
	}
	if busy {
		s.opts.Notifier.Status("busy")
	} else {
		s.opts.Notifier.Status("idle")
	}
}
