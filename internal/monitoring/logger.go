// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package monitoring holds the diagnostic logger shared by the device-facing
// packages.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// may be replaced by SetLogger so tests can mute calibration chatter.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// RedirectToFile sends the standard logger to path (appending) in addition
// to stderr. The returned func closes the file.
func RedirectToFile(path string) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	log.SetOutput(io.MultiWriter(f, os.Stderr))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return f.Close, nil
}
