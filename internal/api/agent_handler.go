// File path: internal/api/agent_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicodishanthj/reqlens/internal/agent"
	"github.com/nicodishanthj/reqlens/internal/common"
)

type agentExtractRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	Intent   string `json:"intent,omitempty"`
}

// handleAgentExtract routes an excerpt through the provider fallback chain.
// An exhausted chain surfaces as 502 with the per-provider reasons attached.
func (s *Server) handleAgentExtract(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req agentExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("content is required"))
		return
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = "inline.cbl"
	}
	logger.Info("api: agent extract request", "filename", filename, "bytes", len(req.Content))
	result, report, err := s.service.AgentExtract(r.Context(), filename, req.Content, req.Intent)
	if err != nil {
		var exhausted *agent.AllProvidersFailed
		if errors.As(err, &exhausted) {
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":    exhausted.Error(),
				"failures": exhausted.Attempts,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider": result.Provider,
		"failures": result.Failures,
		"report":   report,
	})
}
