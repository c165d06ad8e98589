// Package api exposes the document and WebSocket endpoints a client
// talks to, adapted from the teacher's HTTP surface (internal/api,
// internal/handler) onto the document/collab/relay stack. Authentication
// and per-document permissions are out of scope (spec.md §1 Non-goals);
// that's also why the teacher's internal/acl and its X-User-Id auth
// middleware have no counterpart here.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/haldane/peritext/internal/collab"
	"github.com/haldane/peritext/internal/relay"
	"github.com/haldane/peritext/internal/storage"
)

// Server handles HTTP and WebSocket requests for the collaboration API.
type Server struct {
	manager  *collab.Manager
	store    storage.Store
	hub      *relay.Hub
	upgrader websocket.Upgrader
}

// ServerConfig holds configuration for creating a server.
type ServerConfig struct {
	Manager *collab.Manager
	Store   storage.Store
	Hub     *relay.Hub
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		manager: cfg.Manager,
		store:   cfg.Store,
		hub:     cfg.Hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool {
				return true // demo: allow all origins
			},
		},
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/documents", s.handleCreateDocument)
	mux.HandleFunc("/documents/", s.handleGetDocument)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return mux
}
