// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/devicelab-dev/uiharness/pkg/config"
	"github.com/devicelab-dev/uiharness/pkg/engine"
	"github.com/devicelab-dev/uiharness/pkg/logger"
)

// Server manages the HTTP server and routes.
type Server struct {
	engine  *engine.Engine
	cfg     config.ServerConfig
	version string

	limiter *rate.Limiter
	router  *http.ServeMux
	handler http.Handler
	server  *http.Server
	errLog  io.Closer
}

// New creates a server dispatching requests to eng.
func New(cfg config.ServerConfig, eng *engine.Engine, version string) *Server {
	s := &Server{
		engine:  eng,
		cfg:     cfg,
		version: version,
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(int(cfg.RateLimit), 1)
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	s.router = s.setupRoutes()
	s.handler = s.withMiddleware(s.router)

	errWriter := logger.GetWriter()
	s.errLog = errWriter
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     log.New(errWriter, "", 0),
	}

	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	logger.WithFields(logger.Fields{
		"address": ln.Addr().String(),
		"settle":  s.engine.SettleMode(),
	}).Info("HTTP server starting")

	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server...")
	defer s.errLog.Close()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("HTTP server stopped")
	return nil
}
