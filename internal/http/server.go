package http

import (
	"context"
	"net/http"
	"time"
)

// Server envuelve http.Server con shutdown graceful.
type Server struct {
	srv *http.Server
}

// NewServer crea el server HTTP.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start bloquea sirviendo hasta error o Shutdown.
func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown apaga el server drenando conexiones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
