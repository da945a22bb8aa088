package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server exposes the correlation engine over HTTP.
type Server struct {
	Addr    string
	Service ports.IntelService
	srv     *http.Server
}

// NewServer creates a new API server.
func NewServer(addr string, service ports.IntelService) *Server {
	return &Server{
		Addr:    addr,
		Service: service,
	}
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler := otelhttp.NewHandler(SetupRoutes(s), "threatwatch-api")

	s.srv = &http.Server{
		Addr:         s.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Graceful Shutdown implementation
	go func() {
		<-ctx.Done()
		log.Println("API server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
	}()

	log.Printf("API server listening on %s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
