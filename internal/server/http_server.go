// Package server constructs and starts the HTTP service hosting the chat
// relay, with helpers that apply sensible production defaults.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

var (
	relayMu     sync.RWMutex
	activeRelay *Relay
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartRelay builds a relay from the active configuration and starts its
// event loop. Call after SetConfig and before serving traffic.
func StartRelay() *Relay {
	rl := NewRelay(currentConfig())

	relayMu.Lock()
	activeRelay = rl
	relayMu.Unlock()

	go rl.Run()
	log.Println("Relay started and ready to manage WebSocket connections")
	return rl
}

func currentRelay() *Relay {
	relayMu.RLock()
	defer relayMu.RUnlock()
	return activeRelay
}

// GetRelay returns the running relay instance for shutdown coordination.
func GetRelay() *Relay {
	return currentRelay()
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns an error if the server fails to start.
func StartServer(server *http.Server) error {
	fmt.Printf("Server listening on port %s\n", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	log.Println("Shutting down HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return err
	}

	log.Println("HTTP server shutdown completed")
	return nil
}
