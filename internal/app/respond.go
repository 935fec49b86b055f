// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// errorBody is the failure shape every endpoint shares.
type errorBody struct {
	OK      bool      `json:"ok"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("web: failed to encode json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	log.Printf("web: %d %s", status, msg)
	writeJSON(w, status, errorBody{OK: false, Time: time.Now(), Message: msg})
}
