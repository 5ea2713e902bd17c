// Package server provides the HTTP API over the session engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/turnono/sim/internal/config"
	"github.com/turnono/sim/internal/event"
	"github.com/turnono/sim/internal/logging"
	"github.com/turnono/sim/internal/memory"
	"github.com/turnono/sim/internal/session"
	"github.com/turnono/sim/internal/tools"
	"github.com/turnono/sim/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Server is the HTTP server.
type Server struct {
	config    *Config
	router    *chi.Mux
	httpSrv   *http.Server
	appConfig *config.Config

	sessions  *session.Service
	tools     *tools.Registry
	memory    memory.Service
	responder session.Responder
	bus       *event.Bus
}

// New creates a new Server instance. A nil responder falls back to a
// deterministic acknowledgement, which keeps the engine runnable
// without any model runtime attached.
func New(cfg *Config, appConfig *config.Config, sessions *session.Service, toolReg *tools.Registry, mem memory.Service, bus *event.Bus, responder session.Responder) *Server {
	if responder == nil {
		responder = defaultResponder()
	}

	s := &Server{
		config:    cfg,
		router:    chi.NewRouter(),
		appConfig: appConfig,
		sessions:  sessions,
		tools:     toolReg,
		memory:    mem,
		responder: responder,
		bus:       bus,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	logging.Info().Int("port", s.config.Port).Msg("server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// defaultResponder acknowledges the message without any model call.
func defaultResponder() session.Responder {
	return session.ResponderFunc(func(ctx context.Context, sess *types.Session, message string) (string, error) {
		return fmt.Sprintf("Noted: %s", message), nil
	})
}
