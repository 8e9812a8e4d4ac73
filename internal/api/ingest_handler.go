// File path: internal/api/ingest_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/encoding"
)

type analyzeRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// handleAnalyze ingests source text submitted inline as JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req analyzeRequest
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
	logger.Info("api: analyze request", "filename", filename, "bytes", len(req.Content))
	report, err := s.service.IngestFile(r.Context(), filename, []byte(req.Content))
	if err != nil {
		writeError(w, ingestStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleUpload ingests one or more multipart file attachments under the
// "file" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["file"]) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	var reports []interface{}
	for _, header := range r.MultipartForm.File["file"] {
		file, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("open upload %s: %w", header.Filename, err))
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read upload %s: %w", header.Filename, err))
			return
		}
		name := filepath.Base(header.Filename)
		logger.Info("api: upload received", "filename", name, "bytes", len(data))
		report, err := s.service.IngestFile(r.Context(), name, data)
		if err != nil {
			writeError(w, ingestStatus(err), fmt.Errorf("ingest %s: %w", name, err))
			return
		}
		reports = append(reports, report)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

// ingestStatus maps pipeline failures onto HTTP status codes: undecodable
// input is the client's problem, everything else is ours.
func ingestStatus(err error) int {
	var decodeErr *encoding.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
