// File path: internal/api/search_handler.go
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/ingest"
	"github.com/nicodishanthj/reqlens/internal/kb"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	query := r.URL.Query().Get("q")
	if query == "" {
		logger.Warn("api: search missing query parameter")
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing q parameter"))
		return
	}
	opts := ingest.SearchOptions{Limit: 5}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			opts.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("min_score"); v != "" {
		parsed, err := strconv.ParseFloat(v, 32)
		if err != nil || parsed < 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("min_score must be between 0 and 1"))
			return
		}
		// An explicit 0 disables the threshold; only an absent parameter
		// falls back to the default.
		minScore := float32(parsed)
		opts.MinScore = &minScore
	}
	if v := r.URL.Query().Get("category"); v != "" {
		category := kb.Category(v)
		switch category {
		case kb.CategoryBusinessRule, kb.CategoryValidationLogic, kb.CategoryDataDefinition, kb.CategoryFileOperation:
			opts.Category = category
		default:
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown category %q", v))
			return
		}
	}
	logger.Info("api: search request", "query", query, "limit", opts.Limit, "category", string(opts.Category))
	matches, err := s.service.Search(r.Context(), query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": matches,
	})
}

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	records, err := s.service.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":        len(records),
		"requirements": records,
	})
}
