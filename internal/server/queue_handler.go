// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hive-dispatch/internal/jobs"
	"github.com/hive-dispatch/internal/logger"
	"github.com/hive-dispatch/internal/queue"
)

// handleSubmit handles POST /api/v1/queues/{queue}/jobs
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")

	r.Body = http.MaxBytesReader(w, r.Body, maxPayloadBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	payload, err := jobs.DecodePayload(body)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	receipt, err := s.dispatcher.Submit(r.Context(), name, payload)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, receipt)
}

// handleListQueues handles GET /api/v1/queues
func (s *Server) handleListQueues(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		logger.Errorf("handleListQueues: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// pendingResponse is the body of GET /api/v1/queues/{queue}/jobs
type pendingResponse struct {
	Queue string       `json:"queue"`
	Mode  queue.Mode   `json:"mode"`
	Items []queue.Item `json:"items"`
}

// handlePending handles GET /api/v1/queues/{queue}/jobs
func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "queue")

	store, err := s.store.Store(name)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	items, err := store.Items(r.Context())
	if err != nil {
		logger.Errorf("handlePending: queue=%s: %v", name, err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	if items == nil {
		items = []queue.Item{}
	}

	writeJSON(w, http.StatusOK, pendingResponse{Queue: name, Mode: store.Mode(), Items: items})
}
