// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package discovery advertises the camera service over mDNS so clients on
// the LAN can find the trigger endpoint without configuration.
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	ServiceType = "_accumen._tcp"
	Domain      = "local."
	HostName    = "accumen"
)

// probeAddr is only used to pick the outbound interface; nothing is sent.
const probeAddr = "8.8.8.8:80"

// Advertisement is a registered service record.
type Advertisement struct {
	server *zeroconf.Server
	IP     string
}

// LocalIP returns the address of the interface that routes to the LAN.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", probeAddr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsUnspecified() {
		return "", fmt.Errorf("no usable local address")
	}
	return addr.IP.String(), nil
}

// WaitForIP polls LocalIP once per interval until it succeeds or ctx ends.
func WaitForIP(ctx context.Context, interval time.Duration, lookup func() (string, error)) (string, error) {
	if lookup == nil {
		lookup = LocalIP
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ip, err := lookup()
		if err == nil {
			return ip, nil
		}
		log.Printf("discovery: waiting for network: %v", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// TXT builds the TXT records announced with the service.
func TXT(path string) []string {
	return []string{"path=" + path}
}

// Register announces name on port at ip.
func Register(name string, port int, ip string) (*Advertisement, error) {
	srv, err := zeroconf.RegisterProxy(name, ServiceType, Domain, port, HostName, []string{ip}, TXT("/"), nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register %s.%s: %w", name, ServiceType, err)
	}
	log.Printf("discovery: advertising %s.%s%s at %s:%d", name, ServiceType, Domain, ip, port)
	return &Advertisement{server: srv, IP: ip}, nil
}

// Close withdraws the advertisement.
func (a *Advertisement) Close() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	log.Printf("discovery: advertisement withdrawn")
}
