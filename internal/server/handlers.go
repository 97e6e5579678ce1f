// Package server exposes the HTTP handlers: the WebSocket upgrade endpoint,
// the health check, and the diagnostics snapshot.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection and registers the resulting
// client with the relay, which takes over the connection's lifecycle.
func WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	rl := currentRelay()
	if rl == nil {
		http.Error(w, "Chat relay is not running.", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	rl.Register(NewClient(conn, rl, r.RemoteAddr))
}

// HealthHandler provides a simple health check endpoint that returns service status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat relay is running!")
}

// StatsHandler serves the relay's diagnostics snapshot as JSON: connection
// and room totals, per-room detail, uptime, and memory figures.
func StatsHandler(w http.ResponseWriter, _ *http.Request) {
	rl := currentRelay()
	if rl == nil {
		http.Error(w, "Chat relay is not running.", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rl.Stats()); err != nil {
		log.Printf("Error writing stats response: %v", err)
	}
}
