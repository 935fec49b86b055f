// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"context"
	"math"

	"github.com/relabs-tech/accumen_camera/internal/monitoring"
)

// SolveExposure fits brightness = slope*exposure + intercept through the two
// extreme samples and solves it for target. When the slope is zero, the
// solution is not finite, or it lands outside [r.Min, r.Max], Start falls
// back to the range midpoint.
func SolveExposure(r Range, target, lowBrightness, highBrightness float64) Fit {
	fit := Fit{
		LowExposure:    r.Min,
		LowBrightness:  lowBrightness,
		HighExposure:   r.Max,
		HighBrightness: highBrightness,
		Solved:         math.NaN(),
	}

	span := float64(r.Max - r.Min)
	if span != 0 {
		fit.Slope = (highBrightness - lowBrightness) / span
	}
	fit.Intercept = highBrightness - fit.Slope*float64(r.Max)

	if fit.Slope != 0 && !math.IsNaN(fit.Slope) && !math.IsInf(fit.Slope, 0) {
		fit.Solved = (target - fit.Intercept) / fit.Slope
	}

	s := fit.Solved
	if math.IsNaN(s) || math.IsInf(s, 0) || s < float64(r.Min) || s > float64(r.Max) {
		fit.Start = r.Midpoint()
		fit.Fallback = true
		return fit
	}
	fit.Start = int(s)
	return fit
}

// Linearize captures one frame at each end of the exposure range and returns
// the resulting fit. It always performs exactly two captures; contrast is
// held at its initial value for both.
func (c *Calibrator) Linearize(ctx context.Context) (Fit, error) {
	if err := ctx.Err(); err != nil {
		return Fit{}, err
	}
	low, err := c.sample(ctx, c.cfg.Exposure.Min, c.cfg.Contrast.Initial, StageLinearizeMin, 0)
	if err != nil {
		return Fit{}, err
	}
	high, err := c.sample(ctx, c.cfg.Exposure.Max, c.cfg.Contrast.Initial, StageLinearizeMax, 0)
	if err != nil {
		return Fit{}, err
	}

	fit := SolveExposure(c.cfg.Exposure, c.cfg.BrightnessTarget, low.Brightness, high.Brightness)
	if fit.Fallback {
		monitoring.Logf("calibration: linear fit unusable (slope=%.5f solved=%.1f), starting at midpoint %d",
			fit.Slope, fit.Solved, fit.Start)
	} else {
		monitoring.Logf("calibration: linear fit slope=%.5f intercept=%.2f, starting exposure %d",
			fit.Slope, fit.Intercept, fit.Start)
	}
	return fit, nil
}
