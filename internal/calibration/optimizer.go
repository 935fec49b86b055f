// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"context"
	"math"

	"github.com/relabs-tech/accumen_camera/internal/monitoring"
)

// Optimize runs the capture/evaluate/adjust loop starting from
// startExposure and the initial contrast register value. It stops on
// convergence or after MaxAttempts attempts; either way the exposure
// register is left at the best-known exposure.
func (c *Calibrator) Optimize(ctx context.Context, startExposure int) (Result, error) {
	st := newState(c.cfg, startExposure)
	var last FrameSample

	for st.Phase == PhaseRunning {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		s, err := c.sample(ctx, st.Exposure, st.Contrast, StageOptimize, st.Attempts+1)
		if err != nil {
			return Result{}, err
		}
		rep := c.advance(&st, &s)
		last = s

		monitoring.Logf("calibration: attempt %d/%d exposure=%d contrast_control=%d brightness=%.2f contrast=%.2f hue=%.2f -> %s",
			rep.Attempt, c.cfg.MaxAttempts, rep.Exposure, rep.ContrastControl,
			s.Brightness, s.Contrast, s.Hue, rep.Phase)
		if c.observer != nil {
			c.observer(rep)
		}
	}

	st.Exposure = st.BestExposure
	if err := c.write("set_exposure", c.src.SetExposure, st.Exposure); err != nil {
		return Result{}, err
	}

	// The best frame is recaptured with the contrast it was measured at, so
	// the persisted frame is one the loop actually evaluated.
	if c.cfg.FinalFrame == FinalFrameBest &&
		(last.Exposure != st.BestExposure || last.ContrastControl != st.BestContrast) {
		st.Contrast = st.BestContrast
		best, err := c.sample(ctx, st.Exposure, st.Contrast, StageRecapture, st.Attempts)
		if err != nil {
			return Result{}, err
		}
		best.SingleColor, _ = c.cfg.singleColorVerdict(best.SingleColorFraction)
		last = best
	}

	if st.Phase == PhaseConverged {
		monitoring.Logf("calibration: converged after %d attempts, exposure=%d", st.Attempts, st.Exposure)
	} else {
		monitoring.Logf("calibration: no convergence in %d attempts, keeping best exposure %d (|error|=%.2f)",
			st.Attempts, st.Exposure, st.BestBrightnessErr)
	}

	return Result{
		Sample:        last,
		Attempts:      st.Attempts,
		Converged:     st.Phase == PhaseConverged,
		Phase:         st.Phase,
		FinalExposure: st.Exposure,
		FinalContrast: st.Contrast,
		BestExposure:  st.BestExposure,
	}, nil
}

// advance folds one measured sample into st: best-seen tracking, per-axis
// evaluation, the terminal transition, or one step per unsatisfied axis.
// Registers are not stepped on the final attempt since no capture follows.
func (c *Calibrator) advance(st *State, s *FrameSample) AttemptReport {
	cfg := c.cfg
	st.Attempts++

	bErr := cfg.BrightnessTarget - s.Brightness
	cErr := cfg.ContrastTarget - s.Contrast
	flagged, rejected := cfg.singleColorVerdict(s.SingleColorFraction)
	s.SingleColor = flagged

	if !rejected && math.Abs(bErr) < st.BestBrightnessErr {
		st.BestBrightnessErr = math.Abs(bErr)
		st.BestExposure = st.Exposure
		st.BestContrast = st.Contrast
	}

	bOK := !cfg.OptimizeBrightness || math.Abs(bErr) <= cfg.BrightnessTolerance
	cOK := !cfg.OptimizeContrast || math.Abs(cErr) <= cfg.ContrastTolerance
	hOK := !cfg.OptimizeHue || cfg.hueSatisfied(s.Hue)

	rep := AttemptReport{
		Attempt:         st.Attempts,
		MaxAttempts:     cfg.MaxAttempts,
		Exposure:        st.Exposure,
		ContrastControl: st.Contrast,
		Stats:           s.Stats,
		BrightnessError: bErr,
		ContrastError:   cErr,
		BrightnessOK:    bOK,
		ContrastOK:      cOK,
		HueOK:           hOK,
		SingleColor:     flagged,
	}

	switch {
	case bOK && cOK && hOK && !rejected:
		st.Phase = PhaseConverged
	case st.Attempts >= cfg.MaxAttempts:
		st.Phase = PhaseExhausted
	default:
		if !bOK {
			st.Exposure = cfg.Exposure.Clamp(st.Exposure + sign(bErr)*cfg.Exposure.Step)
		}
		if !cOK {
			st.Contrast = cfg.Contrast.Clamp(st.Contrast + sign(cErr)*cfg.Contrast.Step)
		}
	}
	rep.Phase = st.Phase
	return rep
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
