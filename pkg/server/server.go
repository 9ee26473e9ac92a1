package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/gilchrisn/triangle-stream-service/pkg/metrics"
	"github.com/gilchrisn/triangle-stream-service/pkg/service"
	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

// Server is the HTTP front of the session service
type Server struct {
	cfg        *triest.Config
	sessions   *service.SessionService
	registry   *prometheus.Registry
	handler    http.Handler
	httpServer *http.Server
}

// New wires the session service, metrics registry, router and middleware
func New(cfg *triest.Config) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessions := service.NewSessionService(service.Options{
		MaxSessions:   cfg.MaxSessions(),
		MaxBatchEdges: cfg.MaxBatchEdges(),
	}, metrics.New(registry), log.Logger)

	router := mux.NewRouter()
	SetupRoutes(router, NewHandlers(sessions, cfg), registry)
	router.Use(LoggingMiddleware)
	router.Use(RecoveryMiddleware)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}).Handler(router)

	return &Server{
		cfg:      cfg,
		sessions: sessions,
		registry: registry,
		handler:  handler,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout(),
			WriteTimeout: cfg.WriteTimeout(),
		},
	}
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler { return s.handler }

// Sessions returns the underlying session service
func (s *Server) Sessions() *service.SessionService { return s.sessions }

// ListenAndServe blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) ListenAndServe() error {
	log.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes every session
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.sessions.Shutdown()
	return err
}
