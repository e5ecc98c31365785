package web

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"screenblur/internal/config"
)

type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
}

func NewServer(cfg *config.Config, handler *Handler) *Server {
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
	}
}

// Listen binds the address so a port conflict is reported before the
// engine starts. Serve the returned listener with Serve.
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.server.Addr)
}

func (s *Server) Serve(ln net.Listener) error {
	log.Printf("Starting control API on http://%s", ln.Addr())
	return s.server.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down control API...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
