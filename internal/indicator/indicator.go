// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package indicator drives an optional status LED that is lit while a
// calibration run owns the camera.
package indicator

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Indicator shows whether the service is busy.
type Indicator interface {
	Busy(on bool)
}

// Nop is used when no LED pin is configured.
type Nop struct{}

func (Nop) Busy(bool) {}

// LED is a GPIO output held high while busy.
type LED struct {
	mu  sync.Mutex
	pin gpio.PinOut
}

// NewLED wraps an already resolved pin and switches it off.
func NewLED(pin gpio.PinOut) (*LED, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("status LED %s: %w", pin, err)
	}
	return &LED{pin: pin}, nil
}

// Open resolves pinName through the periph registry. An empty name yields Nop.
func Open(pinName string) (Indicator, error) {
	if pinName == "" {
		return Nop{}, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("status LED: periph host init: %w", err)
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, fmt.Errorf("status LED: pin %q not found", pinName)
	}
	led, err := NewLED(p)
	if err != nil {
		return nil, err
	}
	log.Printf("indicator: status LED on %s", pinName)
	return led, nil
}

// Busy drives the pin. Write failures are logged and otherwise ignored.
func (l *LED) Busy(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.pin.Out(gpio.Level(on)); err != nil {
		log.Printf("indicator: set %s: %v", l.pin, err)
	}
}
