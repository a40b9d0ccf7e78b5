package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/inkfs/inkfs/internal/logger"
	"github.com/inkfs/inkfs/server/internal/contentstore"
	"github.com/inkfs/inkfs/server/internal/metastore"
	"github.com/inkfs/inkfs/server/internal/nodelock"
)

// Server wraps an http.Server configured with NewRouter, supporting
// graceful shutdown.
type Server struct {
	httpServer   *http.Server
	addr         string
	shutdownOnce sync.Once
}

// NewServer builds a Server listening on addr (host:port, or ":3000") once
// Start is called.
func NewServer(addr string, store metastore.Store, content *contentstore.Store, locker *nodelock.Locker) *Server {
	router := NewRouter(store, content, locker)

	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // large file uploads
			IdleTimeout:  90 * time.Second,
		},
	}
}

// Start serves traffic until ctx is cancelled, at which point it performs a
// graceful shutdown and returns.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("api server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("api server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("api server shutdown: %w", shutdownErr)
			return
		}
		logger.Info("api server stopped gracefully")
	})
	return err
}
