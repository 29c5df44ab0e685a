// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hive-dispatch/internal/database"
	"github.com/hive-dispatch/internal/jobs"
	"github.com/hive-dispatch/internal/logger"
	"github.com/hive-dispatch/internal/queue"
	"github.com/hive-dispatch/internal/server/middleware"
)

// maxPayloadBytes caps a submission body.
const maxPayloadBytes = 1 << 20

// AuditReader lists recorded audit entries.
type AuditReader interface {
	GetRecentLogs(ctx context.Context, limit int, actionFilter, queueFilter string) ([]database.AuditLog, error)
}

// Server exposes the dispatch HTTP API.
type Server struct {
	Router *chi.Mux

	store      *jobs.JobStore
	dispatcher *jobs.Dispatcher
	audit      AuditReader
	logs       *logger.Logger
}

// New builds the router. audit may be nil; logs falls back to the default logger.
func New(store *jobs.JobStore, dispatcher *jobs.Dispatcher, audit AuditReader, logs *logger.Logger) *Server {
	s := &Server{
		Router:     chi.NewRouter(),
		store:      store,
		dispatcher: dispatcher,
		audit:      audit,
		logs:       logs,
	}

	s.Router.Use(chimiddleware.Recoverer)
	s.Router.Use(middleware.TrafficLogger)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/queues", s.handleListQueues)
		r.Post("/queues/{queue}/jobs", s.handleSubmit)
		r.Get("/queues/{queue}/jobs", s.handlePending)
		r.Get("/audit", s.handleAudit)
		r.Get("/logs/stream", s.handleLogStream)
	})
	s.Router.Get("/ws/logs", s.handleLogSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) logger() *logger.Logger {
	if s.logs != nil {
		return s.logs
	}
	return logger.GetDefault()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("writeJSON: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps dispatch errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, queue.ErrUnknownQueue):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrPayloadMismatch),
		errors.Is(err, queue.ErrEmptyPayload),
		errors.Is(err, queue.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusServiceUnavailable
	}
}
