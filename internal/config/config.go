// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
)

// DefaultPath is where the service looks for its configuration file.
const DefaultPath = "camera_config.txt"

// Config holds all application configuration values.
type Config struct {
	// HTTP service
	Host        string
	Port        int
	ServiceName string

	// Capture device
	Device         int
	Width          int
	Height         int
	XOffset        int
	YOffset        int
	Skip           int // warm-up frames at start, and settle frames after each register change
	CaptureTimeout time.Duration
	ExposureAuto   bool

	// Calibration targets
	BrightnessOptimal float64
	BrightnessDiff    float64
	ContrastOptimal   float64
	ContrastDiff      float64
	HuePolicy         calibration.HuePolicy
	HueMin            float64
	HueMax            float64
	MaxAttempts       int

	EnableBrightnessOptimisation bool
	EnableContrastOptimisation   bool
	EnableHueOptimisation        bool

	SingleColorPolicy    calibration.SingleColorPolicy
	SingleColorThreshold float64
	FinalFrame           calibration.FinalFramePolicy

	// Registers
	Exposure calibration.Range
	Contrast calibration.Range

	// Output
	Path      string
	LogFile   string
	HistoryDB string

	// MQTT (optional; empty broker disables notifications)
	MQTTBroker       string
	MQTTClientID     string
	TopicCalibration string
	TopicStatus      string

	// Status LED (optional GPIO name, e.g. "GPIO17")
	StatusLEDPin string
}

// Default returns the configuration the service runs with when the file
// does not override a key.
func Default() *Config {
	cal := calibration.DefaultConfig()
	return &Config{
		Host:        "0.0.0.0",
		Port:        8000,
		ServiceName: "camera",

		Device:         0,
		Width:          3264,
		Height:         2448,
		XOffset:        408,
		YOffset:        0,
		Skip:           2,
		CaptureTimeout: 5 * time.Second,

		BrightnessOptimal: cal.BrightnessTarget,
		BrightnessDiff:    cal.BrightnessTolerance,
		ContrastOptimal:   cal.ContrastTarget,
		ContrastDiff:      cal.ContrastTolerance,
		HuePolicy:         cal.HuePolicy,
		HueMin:            cal.HueMin,
		HueMax:            cal.HueMax,
		MaxAttempts:       cal.MaxAttempts,

		EnableBrightnessOptimisation: cal.OptimizeBrightness,
		EnableContrastOptimisation:   cal.OptimizeContrast,
		EnableHueOptimisation:        cal.OptimizeHue,

		SingleColorPolicy:    cal.SingleColor,
		SingleColorThreshold: cal.SingleColorThreshold,
		FinalFrame:           cal.FinalFrame,

		Exposure: cal.Exposure,
		Contrast: cal.Contrast,

		Path:      "/tmp",
		LogFile:   "accumen_camera.log",
		HistoryDB: "calibration_history.db",

		MQTTClientID:     "accumen-camera",
		TopicCalibration: "accumen/camera/calibration",
		TopicStatus:      "accumen/camera/status",
	}
}

// Load reads the configuration file and returns a Config struct. Keys not
// present in the file keep their Default values.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// HTTP service
	case "HOST":
		c.Host = value
	case "PORT":
		c.Port, err = parseInt(key, value)
	case "SERVICE_NAME":
		c.ServiceName = value

	// Capture device
	case "DEVICE":
		c.Device, err = parseInt(key, value)
	case "WIDTH":
		c.Width, err = parseInt(key, value)
	case "HEIGHT":
		c.Height, err = parseInt(key, value)
	case "X_OFFSET":
		c.XOffset, err = parseInt(key, value)
	case "Y_OFFSET":
		c.YOffset, err = parseInt(key, value)
	case "SKIP":
		c.Skip, err = parseInt(key, value)
	case "CAPTURE_TIMEOUT_MS":
		var ms int
		ms, err = parseInt(key, value)
		c.CaptureTimeout = time.Duration(ms) * time.Millisecond
	case "EXPOSURE_AUTO":
		c.ExposureAuto, err = parseBool(key, value)

	// Calibration targets
	case "BRIGHTNESS_OPTIMAL":
		c.BrightnessOptimal, err = parseFloat(key, value)
	case "BRIGHTNESS_DIFF":
		c.BrightnessDiff, err = parseFloat(key, value)
	case "CONTRAST_OPTIMAL":
		c.ContrastOptimal, err = parseFloat(key, value)
	case "CONTRAST_DIFF":
		c.ContrastDiff, err = parseFloat(key, value)
	case "HUE_POLICY":
		c.HuePolicy, err = calibration.ParseHuePolicy(value)
	case "HUE_MIN":
		c.HueMin, err = parseFloat(key, value)
	case "HUE_MAX":
		c.HueMax, err = parseFloat(key, value)
	case "MAX_ATTEMPTS":
		c.MaxAttempts, err = parseInt(key, value)
	case "ENABLE_BRIGHTNESS_OPTIMISATION":
		c.EnableBrightnessOptimisation, err = parseBool(key, value)
	case "ENABLE_CONTRAST_OPTIMISATION":
		c.EnableContrastOptimisation, err = parseBool(key, value)
	case "ENABLE_HUE_OPTIMISATION":
		c.EnableHueOptimisation, err = parseBool(key, value)
	case "ENABLE_SINGLE_COLOR_REJECTION":
		// Legacy switch: true keeps the measurement on (flag), false turns it off.
		var on bool
		on, err = parseBool(key, value)
		if on {
			if c.SingleColorPolicy == calibration.SingleColorOff {
				c.SingleColorPolicy = calibration.SingleColorFlag
			}
		} else {
			c.SingleColorPolicy = calibration.SingleColorOff
		}
	case "SINGLE_COLOR_POLICY":
		c.SingleColorPolicy, err = calibration.ParseSingleColorPolicy(value)
	case "SINGLE_COLOR_THRESHOLD":
		c.SingleColorThreshold, err = parseFloat(key, value)
	case "FINAL_FRAME":
		c.FinalFrame, err = calibration.ParseFinalFramePolicy(value)

	// Exposure register
	case "EXPOSURE_ABSOLUTE_MIN":
		c.Exposure.Min, err = parseInt(key, value)
	case "EXPOSURE_ABSOLUTE_MAX":
		c.Exposure.Max, err = parseInt(key, value)
	case "EXPOSURE_ABSOLUTE_STEP":
		c.Exposure.Step, err = parseInt(key, value)
	case "EXPOSURE_ABSOLUTE":
		c.Exposure.Initial, err = parseInt(key, value)

	// Contrast register
	case "CONTRAST_CONTROL_MIN":
		c.Contrast.Min, err = parseInt(key, value)
	case "CONTRAST_CONTROL_MAX":
		c.Contrast.Max, err = parseInt(key, value)
	case "CONTRAST_CONTROL_STEP":
		c.Contrast.Step, err = parseInt(key, value)
	case "CONTRAST_CONTROL":
		c.Contrast.Initial, err = parseInt(key, value)

	// Output
	case "OUTPUT_PATH":
		c.Path = value
	case "LOG_FILE":
		c.LogFile = value
	case "HISTORY_DB":
		c.HistoryDB = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "TOPIC_CALIBRATION":
		c.TopicCalibration = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Status LED
	case "STATUS_LED_PIN":
		c.StatusLEDPin = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks fields the calibration config does not cover.
func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be 1-65535, got %d", c.Port)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("WIDTH and HEIGHT must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.XOffset < 0 || c.YOffset < 0 || 2*c.XOffset >= c.Width || 2*c.YOffset >= c.Height {
		return fmt.Errorf("X_OFFSET/Y_OFFSET %d/%d leave no image inside %dx%d", c.XOffset, c.YOffset, c.Width, c.Height)
	}
	if c.Skip < 0 {
		return fmt.Errorf("SKIP must not be negative, got %d", c.Skip)
	}
	if c.CaptureTimeout <= 0 {
		return fmt.Errorf("CAPTURE_TIMEOUT_MS must be positive")
	}
	if c.Path == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}
	if c.MQTTBroker != "" && c.TopicCalibration == "" {
		return fmt.Errorf("TOPIC_CALIBRATION is required when MQTT_BROKER is set")
	}
	return c.Calibration().Validate()
}

// Calibration builds the immutable per-run calibration parameters.
func (c *Config) Calibration() calibration.Config {
	return calibration.Config{
		BrightnessTarget:     c.BrightnessOptimal,
		BrightnessTolerance:  c.BrightnessDiff,
		ContrastTarget:       c.ContrastOptimal,
		ContrastTolerance:    c.ContrastDiff,
		HuePolicy:            c.HuePolicy,
		HueMin:               c.HueMin,
		HueMax:               c.HueMax,
		Exposure:             c.Exposure,
		Contrast:             c.Contrast,
		MaxAttempts:          c.MaxAttempts,
		OptimizeBrightness:   c.EnableBrightnessOptimisation,
		OptimizeContrast:     c.EnableContrastOptimisation,
		OptimizeHue:          c.EnableHueOptimisation,
		SingleColor:          c.SingleColorPolicy,
		SingleColorThreshold: c.SingleColorThreshold,
		FinalFrame:           c.FinalFrame,
	}
}

// Inset is the border trimmed from every frame before measuring and saving.
func (c *Config) Inset() calibration.Inset {
	return calibration.Inset{X: c.XOffset, Y: c.YOffset}
}

// DevicePath is the V4L2 node for Device.
func (c *Config) DevicePath() string {
	return fmt.Sprintf("/dev/video%d", c.Device)
}
