package server

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes registers the REST API and the metrics endpoint
func SetupRoutes(router *mux.Router, handlers *Handlers, reg *prometheus.Registry) {
	api := router.PathPrefix("/api/v1").Subrouter()

	sessions := api.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("", handlers.ListSessions).Methods("GET")
	sessions.HandleFunc("", handlers.CreateSession).Methods("POST")
	sessions.HandleFunc("/{sessionId}", handlers.GetSession).Methods("GET")
	sessions.HandleFunc("/{sessionId}", handlers.DeleteSession).Methods("DELETE")
	sessions.HandleFunc("/{sessionId}/edges", handlers.IngestEdges).Methods("POST")
	sessions.HandleFunc("/{sessionId}/vertices/{vertex:-?[0-9]+}", handlers.GetVertex).Methods("GET")

	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods("GET")
}
