package main

import (
	"log"
	"net/http"
	"time"

	"github.com/haldane/peritext/internal/api"
	"github.com/haldane/peritext/internal/collab"
	"github.com/haldane/peritext/internal/relay"
	"github.com/haldane/peritext/internal/storage"
)

func main() {
	store := storage.NewMemoryStore()
	hub := relay.NewHub()
	snapshotPolicy := storage.NewSnapshotPolicy(50)

	manager := collab.NewManager(collab.ManagerConfig{
		Store:          store,
		Hub:            hub,
		SnapshotPolicy: snapshotPolicy,
	})

	server := api.NewServer(api.ServerConfig{
		Manager: manager,
		Store:   store,
		Hub:     hub,
	})

	addr := ":8080"
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Starting server on %s", addr)

	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
