// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package camera

import (
	"context"
	"math"
	"sync"
)

// Simulated synthesises frames from the last register values written, with
// mean luma linear in exposure and tonal spread linear in contrast control.
// It stands in for a real device in dry runs.
type Simulated struct {
	Width  int
	Height int

	Offset float64 // mean luma at exposure 0
	Gain   float64 // mean luma per exposure unit
	Spread float64 // half the gap between the two tones per contrast-control unit

	mu       sync.Mutex
	exposure int
	contrast int
}

// NewSimulated returns a 64x48 simulator with a response that reaches the
// default brightness target around the middle of the default exposure range.
func NewSimulated() *Simulated {
	return &Simulated{Width: 64, Height: 48, Offset: 5, Gain: 0.06, Spread: 0.9}
}

func (s *Simulated) SetExposure(v int) error {
	s.mu.Lock()
	s.exposure = v
	s.mu.Unlock()
	return nil
}

func (s *Simulated) SetContrast(v int) error {
	s.mu.Lock()
	s.contrast = v
	s.mu.Unlock()
	return nil
}

// Registers returns the last exposure and contrast values written.
func (s *Simulated) Registers() (exposure, contrast int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exposure, s.contrast
}

func (s *Simulated) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	mean := s.Offset + s.Gain*float64(s.exposure)
	half := s.Spread * float64(s.contrast)
	s.mu.Unlock()

	return TwoToneFrame(s.Width, s.Height, clampLevel(mean-half), clampLevel(mean+half))
}

func clampLevel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
