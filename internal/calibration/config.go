// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"
	"strings"
)

// Range describes one device register: its legal bounds, the size of a single
// correction step and its initial value. Initial is written when the device
// is opened and is where the contrast register starts every run; the
// exposure register starts from the linearizer's fit instead.
type Range struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Step    int `json:"step"`
	Initial int `json:"initial"`
}

// Clamp limits v to [Min, Max].
func (r Range) Clamp(v int) int {
	if v > r.Max {
		return r.Max
	}
	if v < r.Min {
		return r.Min
	}
	return v
}

// Contains reports whether v lies inside [Min, Max].
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Midpoint is the integer midpoint of the range.
func (r Range) Midpoint() int {
	return (r.Min + r.Max) / 2
}

func (r Range) validate(name string) error {
	if r.Min > r.Max {
		return &ConfigError{Field: name, Msg: fmt.Sprintf("min %d > max %d", r.Min, r.Max)}
	}
	if r.Step <= 0 {
		return &ConfigError{Field: name, Msg: fmt.Sprintf("step must be positive, got %d", r.Step)}
	}
	if !r.Contains(r.Initial) {
		return &ConfigError{Field: name, Msg: fmt.Sprintf("initial %d outside [%d, %d]", r.Initial, r.Min, r.Max)}
	}
	return nil
}

// HuePolicy selects how the hue axis is judged satisfied.
type HuePolicy int

const (
	// HueInsideBand is satisfied when HueMin <= hue <= HueMax.
	HueInsideBand HuePolicy = iota
	// HueOutsideBand is satisfied when hue falls outside the forbidden band [HueMin, HueMax].
	HueOutsideBand
)

func (p HuePolicy) String() string {
	switch p {
	case HueInsideBand:
		return "inside"
	case HueOutsideBand:
		return "outside"
	}
	return fmt.Sprintf("HuePolicy(%d)", int(p))
}

// ParseHuePolicy accepts "inside" or "outside".
func ParseHuePolicy(s string) (HuePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inside":
		return HueInsideBand, nil
	case "outside":
		return HueOutsideBand, nil
	}
	return 0, fmt.Errorf("unknown hue policy %q (want inside|outside)", s)
}

// SingleColorPolicy decides what happens to frames dominated by one palette color.
type SingleColorPolicy int

const (
	// SingleColorOff skips the dominant-color measurement entirely.
	SingleColorOff SingleColorPolicy = iota
	// SingleColorFlag measures and reports, but never blocks acceptance.
	SingleColorFlag
	// SingleColorReject makes a dominated frame unable to converge or become best-seen.
	SingleColorReject
)

func (p SingleColorPolicy) String() string {
	switch p {
	case SingleColorOff:
		return "off"
	case SingleColorFlag:
		return "flag"
	case SingleColorReject:
		return "reject"
	}
	return fmt.Sprintf("SingleColorPolicy(%d)", int(p))
}

// ParseSingleColorPolicy accepts "off", "flag" or "reject".
func ParseSingleColorPolicy(s string) (SingleColorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return SingleColorOff, nil
	case "flag":
		return SingleColorFlag, nil
	case "reject":
		return SingleColorReject, nil
	}
	return 0, fmt.Errorf("unknown single color policy %q (want off|flag|reject)", s)
}

// FinalFramePolicy selects which frame a run hands to the result sink.
type FinalFramePolicy int

const (
	// FinalFrameLast keeps the frame captured on the terminal attempt.
	FinalFrameLast FinalFramePolicy = iota
	// FinalFrameBest recaptures once at the best-known exposure after the loop ends.
	FinalFrameBest
)

func (p FinalFramePolicy) String() string {
	switch p {
	case FinalFrameLast:
		return "last"
	case FinalFrameBest:
		return "best"
	}
	return fmt.Sprintf("FinalFramePolicy(%d)", int(p))
}

// ParseFinalFramePolicy accepts "last" or "best".
func ParseFinalFramePolicy(s string) (FinalFramePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last":
		return FinalFrameLast, nil
	case "best":
		return FinalFrameBest, nil
	}
	return 0, fmt.Errorf("unknown final frame policy %q (want last|best)", s)
}

// Config is the immutable parameter set for one calibration run.
type Config struct {
	BrightnessTarget    float64
	BrightnessTolerance float64

	ContrastTarget    float64
	ContrastTolerance float64

	HuePolicy HuePolicy
	HueMin    float64
	HueMax    float64

	Exposure Range
	Contrast Range

	MaxAttempts int

	OptimizeBrightness bool
	OptimizeContrast   bool
	OptimizeHue        bool

	SingleColor          SingleColorPolicy
	SingleColorThreshold float64

	FinalFrame FinalFramePolicy
}

// DefaultConfig mirrors the values the camera service ships with.
func DefaultConfig() Config {
	return Config{
		BrightnessTarget:     37,
		BrightnessTolerance:  2,
		ContrastTarget:       30,
		ContrastTolerance:    3,
		HuePolicy:            HueOutsideBand,
		HueMin:               80,
		HueMax:               150,
		Exposure:             Range{Min: 25, Max: 1000, Step: 25, Initial: 300},
		Contrast:             Range{Min: 32, Max: 48, Step: 2, Initial: 32},
		MaxAttempts:          50,
		OptimizeBrightness:   true,
		OptimizeContrast:     true,
		OptimizeHue:          false,
		SingleColor:          SingleColorFlag,
		SingleColorThreshold: 0.9,
		FinalFrame:           FinalFrameLast,
	}
}

// HueBandAround builds an inclusive band of +/- tolerance around target.
func HueBandAround(target, tolerance float64) (lo, hi float64) {
	return target - tolerance, target + tolerance
}

// Validate rejects configurations that cannot run. It is called before any
// capture takes place.
func (c Config) Validate() error {
	if err := c.Exposure.validate("exposure"); err != nil {
		return err
	}
	if err := c.Contrast.validate("contrast"); err != nil {
		return err
	}
	if c.MaxAttempts < 1 {
		return &ConfigError{Field: "max_attempts", Msg: fmt.Sprintf("must be >= 1, got %d", c.MaxAttempts)}
	}
	if c.BrightnessTolerance < 0 {
		return &ConfigError{Field: "brightness_tolerance", Msg: "must not be negative"}
	}
	if c.ContrastTolerance < 0 {
		return &ConfigError{Field: "contrast_tolerance", Msg: "must not be negative"}
	}
	if c.HueMin > c.HueMax {
		return &ConfigError{Field: "hue", Msg: fmt.Sprintf("min %.2f > max %.2f", c.HueMin, c.HueMax)}
	}
	if c.HuePolicy != HueInsideBand && c.HuePolicy != HueOutsideBand {
		return &ConfigError{Field: "hue_policy", Msg: c.HuePolicy.String()}
	}
	switch c.SingleColor {
	case SingleColorOff:
	case SingleColorFlag, SingleColorReject:
		if c.SingleColorThreshold <= 0 || c.SingleColorThreshold > 1 {
			return &ConfigError{Field: "single_color_threshold", Msg: fmt.Sprintf("must be in (0, 1], got %.3f", c.SingleColorThreshold)}
		}
	default:
		return &ConfigError{Field: "single_color_policy", Msg: c.SingleColor.String()}
	}
	if c.FinalFrame != FinalFrameLast && c.FinalFrame != FinalFrameBest {
		return &ConfigError{Field: "final_frame", Msg: c.FinalFrame.String()}
	}
	return nil
}

// hueSatisfied applies the configured hue policy to a measured hue.
func (c Config) hueSatisfied(hue float64) bool {
	inBand := hue >= c.HueMin && hue <= c.HueMax
	if c.HuePolicy == HueOutsideBand {
		return !inBand
	}
	return inBand
}
