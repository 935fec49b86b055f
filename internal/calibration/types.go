// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "math"

// Stats are the scalar measures derived from one decoded frame.
type Stats struct {
	Brightness float64 `json:"brightness"` // RMS of luma
	Contrast   float64 `json:"contrast"`   // population stddev of luma
	Hue        float64 `json:"hue"`        // mean hue, 0..255 scale
	// SingleColorFraction is max palette bucket / pixel count; 0 when not measured.
	SingleColorFraction float64 `json:"single_color_fraction"`
}

// FrameSample is one capture together with the register values that produced it.
type FrameSample struct {
	Exposure        int    `json:"exposure"`
	ContrastControl int    `json:"contrast_control"`
	Raw             []byte `json:"-"`
	Stats
	SingleColor bool `json:"single_color"`
}

// Phase is the optimizer state.
type Phase string

const (
	PhaseRunning   Phase = "running"
	PhaseConverged Phase = "converged"
	PhaseExhausted Phase = "exhausted"
)

// State is the mutable bookkeeping of one optimizer run. It never holds pixel data.
type State struct {
	Exposure          int
	Contrast          int
	BestBrightnessErr float64 // absolute value; +Inf until the first eligible attempt
	BestExposure      int
	BestContrast      int // contrast register BestExposure was measured with
	Attempts          int
	Phase             Phase
}

func newState(cfg Config, startExposure int) State {
	return State{
		Exposure:          cfg.Exposure.Clamp(startExposure),
		Contrast:          cfg.Contrast.Initial,
		BestBrightnessErr: math.Inf(1),
		BestExposure:      cfg.Exposure.Clamp(startExposure),
		BestContrast:      cfg.Contrast.Initial,
		Phase:             PhaseRunning,
	}
}

// Fit is the two-point brightness/exposure model produced by the linearizer.
type Fit struct {
	LowExposure    int     `json:"low_exposure"`
	LowBrightness  float64 `json:"low_brightness"`
	HighExposure   int     `json:"high_exposure"`
	HighBrightness float64 `json:"high_brightness"`
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`

	// Solved is the exposure that puts the line on the target; NaN when the slope is zero.
	Solved float64 `json:"-"`

	// Start is the exposure the optimizer begins from.
	Start int `json:"start"`

	// Fallback is set when Solved was unusable and Start is the range midpoint.
	Fallback bool `json:"fallback"`
}

// Result is what a finished run returns to its caller.
type Result struct {
	Sample        FrameSample `json:"sample"`
	Attempts      int         `json:"attempts"`
	Converged     bool        `json:"converged"`
	Phase         Phase       `json:"phase"`
	FinalExposure int         `json:"final_exposure"`
	FinalContrast int         `json:"final_contrast"`
	BestExposure  int         `json:"best_exposure"`
	Fit           *Fit        `json:"fit,omitempty"`
}

// AttemptReport describes one finished attempt for progress observers.
type AttemptReport struct {
	Attempt         int     `json:"attempt"`
	MaxAttempts     int     `json:"max_attempts"`
	Exposure        int     `json:"exposure"`
	ContrastControl int     `json:"contrast_control"`
	Stats           Stats   `json:"stats"`
	BrightnessError float64 `json:"brightness_error"`
	ContrastError   float64 `json:"contrast_error"`
	BrightnessOK    bool    `json:"brightness_ok"`
	ContrastOK      bool    `json:"contrast_ok"`
	HueOK           bool    `json:"hue_ok"`
	SingleColor     bool    `json:"single_color"`
	Phase           Phase   `json:"phase"`
}

// Observer receives a report after every attempt. It runs synchronously on
// the calibration goroutine and must not block.
type Observer func(AttemptReport)
