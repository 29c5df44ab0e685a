// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package server

import (
	"net/http"
	"strconv"

	"github.com/hive-dispatch/internal/logger"
)

// handleAudit handles GET /api/v1/audit?limit=N&action=SUBMIT&queue=name
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotImplemented, "audit log disabled")
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	logs, err := s.audit.GetRecentLogs(r.Context(), limit, r.URL.Query().Get("action"), r.URL.Query().Get("queue"))
	if err != nil {
		logger.Errorf("handleAudit: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
