// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"
)

const maxLogBody = 1 << 20

// Handler returns the HTTP surface of svc. Triggered runs live as long as
// ctx, not the request, so a client that hangs up mid-run does not leave
// the camera half tuned.
//
//	GET  /          health
//	POST /          run a calibration and return its Report
//	POST /logs      log a client-supplied JSON document
//	GET  /api/runs  recent run history
//	GET  /ws        live attempt feed
func Handler(ctx context.Context, svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleHealth)
	mux.HandleFunc("POST /{$}", handleTrigger(ctx, svc))
	mux.HandleFunc("POST /logs", handleLogs)
	mux.HandleFunc("GET /api/runs", handleRuns(svc))
	mux.Handle("GET /ws", svc.Hub())
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "time": time.Now()})
}

func handleTrigger(ctx context.Context, svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Calibrate(ctx, "http")
		switch {
		case errors.Is(err, ErrBusy):
			writeError(w, http.StatusConflict, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, rep)
		}
	}
}

func handleLogs(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLogBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return
	}
	log.Printf("client log: %s", body)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func handleRuns(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := svc.History()
		if h == nil {
			writeError(w, http.StatusNotFound, "run history disabled")
			return
		}
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
				return
			}
			limit = n
		}
		runs, err := h.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "runs": runs})
	}
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		// Handlers see ctx cancellation through their request context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Printf("web: server listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("web: server stopped")
	return nil
}
