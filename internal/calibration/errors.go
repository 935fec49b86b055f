// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "fmt"

// ConfigError reports an invalid calibration configuration.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("calibration config %s: %s", e.Field, e.Msg)
}

// DeviceError reports a failed capture or register write. It always ends the run.
type DeviceError struct {
	Op  string // "capture", "set_exposure", "set_contrast"
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Capture stages reported by DecodeError.
const (
	StageLinearizeMin = "linearize_min"
	StageLinearizeMax = "linearize_max"
	StageOptimize     = "optimize"
	StageRecapture    = "recapture"
)

// DecodeError reports a frame that could not be turned into pixels.
// Attempt is zero for the linearizer captures.
type DecodeError struct {
	Stage   string
	Attempt int
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Attempt == 0 {
		return fmt.Sprintf("decode frame (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("decode frame (%s attempt %d): %v", e.Stage, e.Attempt, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
