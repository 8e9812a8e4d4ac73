// File path: internal/api/status_handler.go
package api

import (
	"net/http"

	"github.com/nicodishanthj/reqlens/internal/common"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	storeStatus := "ok"
	code := http.StatusOK
	if err := s.service.Health(r.Context()); err != nil {
		status = "degraded"
		storeStatus = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":       status,
		"vector_store": storeStatus,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := common.LogEntries()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(entries),
		"logs":  entries,
	})
}
