// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/calibrate/main.go
//
// One-shot camera calibration: runs the exposure fit and optimizer once,
// saves the accepted frame and prints the report as JSON.
//
// Run:
//
//	go run ./cmd/calibrate -config camera_config.txt
//	go run ./cmd/calibrate -dry-run -v
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/accumen_camera/internal/app"
	"github.com/relabs-tech/accumen_camera/internal/calibration"
	"github.com/relabs-tech/accumen_camera/internal/config"
	"github.com/relabs-tech/accumen_camera/internal/monitoring"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	dryRun := flag.Bool("dry-run", false, "Use a simulated camera instead of the V4L2 device")
	verbose := flag.Bool("v", false, "Log every attempt")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !*dryRun {
			log.Fatalf("failed to load config: %v", err)
		}
		log.Printf("config: %v, using defaults for dry run", err)
		cfg = config.Default()
	}
	if !*verbose {
		monitoring.SetLogger(nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := calibrate(ctx, cfg, *dryRun)
	if err != nil {
		log.Fatalf("calibration failed: %v", err)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal report: %v", err)
	}
	fmt.Println(string(data))
	if !rep.Converged {
		fmt.Fprintf(os.Stderr, "warning: targets not reached in %d attempts, kept best exposure %d\n", rep.Attempts, rep.Exposure)
	}
}

func calibrate(ctx context.Context, cfg *config.Config, dryRun bool) (app.Report, error) {
	opts, closeDeps, err := app.Collaborators(cfg)
	if err != nil {
		return app.Report{}, err
	}
	defer closeDeps()

	src, release, err := app.OpenSource(ctx, cfg, dryRun)
	if err != nil {
		return app.Report{}, err
	}
	defer release()

	svc, err := app.NewService(cfg.Calibration(), src, opts)
	var ce *calibration.ConfigError
	if errors.As(err, &ce) {
		return app.Report{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err != nil {
		return app.Report{}, err
	}
	return svc.Calibrate(ctx, "cli")
}
