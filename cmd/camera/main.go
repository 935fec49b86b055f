// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command camera is the calibration service: it tunes the camera once at
// startup, then serves HTTP triggers and advertises itself over mDNS.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/relabs-tech/accumen_camera/internal/app"
	"github.com/relabs-tech/accumen_camera/internal/config"
	"github.com/relabs-tech/accumen_camera/internal/discovery"
	"github.com/relabs-tech/accumen_camera/internal/monitoring"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	dryRun := flag.Bool("dry-run", false, "Use a simulated camera instead of the V4L2 device")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	closeLog, err := monitoring.RedirectToFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer closeLog()

	log.Printf("starting accumen camera %s", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *dryRun); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	log.Println("shutdown complete")
}

// loadConfig reads path, falling back to defaults when the default file is absent.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == config.DefaultPath {
		log.Printf("no %s found, using defaults", path)
		return config.Default(), nil
	}
	return cfg, err
}

func run(ctx context.Context, cfg *config.Config, dryRun bool) error {
	opts, closeDeps, err := app.Collaborators(cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	src, release, err := app.OpenSource(ctx, cfg, dryRun)
	if err != nil {
		return err
	}
	defer release()

	svc, err := app.NewService(cfg.Calibration(), src, opts)
	if err != nil {
		return err
	}

	if _, err := svc.Calibrate(ctx, "startup"); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("startup calibration failed: %v", err)
	}

	go advertise(ctx, cfg.ServiceName, cfg.Port)

	return app.Serve(ctx, net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)), app.Handler(ctx, svc))
}

// advertise registers the service once the LAN address is known and
// withdraws it when ctx ends.
func advertise(ctx context.Context, name string, port int) {
	ip, err := discovery.WaitForIP(ctx, time.Second, nil)
	if err != nil {
		return
	}
	ad, err := discovery.Register(name, port, ip)
	if err != nil {
		log.Printf("discovery: %v", err)
		return
	}
	<-ctx.Done()
	ad.Close()
}
