// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package camera

import (
	"context"
	"errors"
	"sync"
)

// ErrScriptExhausted is returned by Scripted.Capture once every frame has been served.
var ErrScriptExhausted = errors.New("scripted source: no frames left")

// Scripted replays a fixed list of frames in order, regardless of the
// register values written to it, and records every write. It lets the
// calibration loop run against a known sequence of measurements.
type Scripted struct {
	mu     sync.Mutex
	frames [][]byte
	next   int

	// Hooks let tests inject device faults.
	CaptureErr  func(n int) error
	ExposureErr func(v int) error
	ContrastErr func(v int) error

	Exposures []int
	Contrasts []int
	Captures  int
}

// NewScripted returns a source that serves frames in order.
func NewScripted(frames ...[]byte) *Scripted {
	return &Scripted{frames: frames}
}

func (s *Scripted) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Captures++
	if s.CaptureErr != nil {
		if err := s.CaptureErr(s.Captures); err != nil {
			return nil, err
		}
	}
	if s.next >= len(s.frames) {
		return nil, ErrScriptExhausted
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

func (s *Scripted) SetExposure(v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ExposureErr != nil {
		if err := s.ExposureErr(v); err != nil {
			return err
		}
	}
	s.Exposures = append(s.Exposures, v)
	return nil
}

func (s *Scripted) SetContrast(v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ContrastErr != nil {
		if err := s.ContrastErr(v); err != nil {
			return err
		}
	}
	s.Contrasts = append(s.Contrasts, v)
	return nil
}

// LastExposure is the most recent successful exposure write, or -1.
func (s *Scripted) LastExposure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Exposures) == 0 {
		return -1
	}
	return s.Exposures[len(s.Exposures)-1]
}
