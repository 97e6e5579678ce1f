package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/inventario/chat-relay/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Println("Starting chat relay service...")

	cfg := server.NewConfigFromEnv()
	server.SetConfig(cfg)

	mux := server.SetupRoutes()
	relay := server.StartRelay()
	httpServer := server.CreateServer(cfg.Port, mux)

	go func() {
		if err := server.StartServer(httpServer); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := relay.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Error shutting down relay: %v", err)
	}

	log.Println("Server gracefully stopped")
}
