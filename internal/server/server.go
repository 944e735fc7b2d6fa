package server

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"duotris/internal/room"
)

// Server is the HTTP server: one websocket endpoint plus a health
// route. All game traffic flows over the websocket.
type Server struct {
	router chi.Router
	hub    *room.Hub
}

// New creates a server with all routes.
func New(hub *room.Hub) *Server {
	s := &Server{hub: hub}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
