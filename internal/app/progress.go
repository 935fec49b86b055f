// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/accumen_camera/internal/calibration"
)

const (
	clientQueue  = 64
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins on the local network
	},
}

// ProgressMessage is one websocket frame of the progress feed.
type ProgressMessage struct {
	Type    string                     `json:"type"` // started, attempt, complete, error
	RunID   string                     `json:"run_id,omitempty"`
	Trigger string                     `json:"trigger,omitempty"`
	Attempt *calibration.AttemptReport `json:"attempt,omitempty"`
	Results *Report                    `json:"results,omitempty"`
	Message string                     `json:"message,omitempty"`
}

type progressClient struct {
	conn *websocket.Conn
	send chan ProgressMessage
}

// ProgressHub fans calibration progress out to websocket subscribers.
// Publishing never blocks: a subscriber whose queue is full misses messages.
type ProgressHub struct {
	mu      sync.Mutex
	clients map[*progressClient]struct{}
	runID   string
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{clients: make(map[*progressClient]struct{})}
}

// ServeHTTP upgrades the request and streams progress until the peer goes away.
func (h *ProgressHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	c := &progressClient{conn: conn, send: make(chan ProgressMessage, clientQueue)}
	h.add(c)
	defer h.remove(c)

	go c.writeLoop()

	// Subscribers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *progressClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("web: websocket write error: %v", err)
			return
		}
	}
}

func (h *ProgressHub) add(c *progressClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("web: progress subscriber connected (%d total)", n)
}

func (h *ProgressHub) remove(c *progressClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Subscribers is the number of connected websocket clients.
func (h *ProgressHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *ProgressHub) broadcast(msg ProgressMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Started announces a new run.
func (h *ProgressHub) Started(runID, trigger string) {
	h.mu.Lock()
	h.runID = runID
	h.mu.Unlock()
	h.broadcast(ProgressMessage{Type: "started", RunID: runID, Trigger: trigger})
}

// Attempt is a calibration.Observer.
func (h *ProgressHub) Attempt(rep calibration.AttemptReport) {
	h.mu.Lock()
	id := h.runID
	h.mu.Unlock()
	h.broadcast(ProgressMessage{Type: "attempt", RunID: id, Attempt: &rep})
}

// Completed announces the final report of a run.
func (h *ProgressHub) Completed(rep Report) {
	h.broadcast(ProgressMessage{Type: "complete", RunID: rep.RunID, Results: &rep})
}

// Failed announces a run that ended with an error.
func (h *ProgressHub) Failed(runID string, err error) {
	h.broadcast(ProgressMessage{Type: "error", RunID: runID, Message: err.Error()})
}
