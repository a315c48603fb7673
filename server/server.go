// Package server exposes the simulation and genetic_search engines over
// websocket, adapted from the teacher's fastview HTTP/websocket plumbing:
// gorilla/mux routing, a gorilla/websocket upgrader, and one supervised
// client goroutine group per connection.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server serves the simulation and genetic_search control surfaces.
type Server struct {
	Host string
	Port string

	router   *mux.Router
	upgrader websocket.Upgrader
}

// NewServer builds a Server with its route table wired, mirroring the
// teacher's NewServer(host, port) constructor shape.
func NewServer(host, port string) *Server {
	s := &Server{
		Host:   host,
		Port:   port,
		router: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/simulation", s.handleSimulationSocket)
	s.router.HandleFunc("/ws/genetic", s.handleGeneticSocket)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleSimulationSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("simulation socket upgrade failed: %v", err)
		return
	}

	out := make(chan ServerMessage, 8)
	session := newSimulationSession(out)
	defer session.close()

	cli := newClient[ServerMessage](conn, r.Context(), out, session.handle)
	if err := cli.Sync(); err != nil {
		log.Printf("simulation socket closed: %v", err)
	}
}

func (s *Server) handleGeneticSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("genetic socket upgrade failed: %v", err)
		return
	}

	out := make(chan ServerMessage, 8)
	session := newGeneticSession(out)
	defer session.close()

	cli := newClient[ServerMessage](conn, r.Context(), out, session.handle)
	if err := cli.Sync(); err != nil {
		log.Printf("genetic socket closed: %v", err)
	}
}

// Serve blocks, running the HTTP server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.Host + ":" + s.Port
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeGracePeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
