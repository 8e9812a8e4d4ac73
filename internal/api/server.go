// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/reqlens/internal/common"
	"github.com/nicodishanthj/reqlens/internal/ingest"
)

// maxUploadBytes caps multipart uploads; legacy source files are small, so a
// generous ceiling still rejects accidents.
const maxUploadBytes = 16 << 20

type Server struct {
	router  chi.Router
	service *ingest.Service
}

func NewServer(service *ingest.Service) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("ingest service required")
	}
	srv := &Server{
		router:  chi.NewRouter(),
		service: service,
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/api/analyze", s.handleAnalyze)
	s.router.Post("/api/upload", s.handleUpload)
	s.router.Get("/api/search", s.handleSearch)
	s.router.Post("/api/agent-extract", s.handleAgentExtract)
	s.router.Get("/api/requirements", s.handleRequirements)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/stats", s.handleStats)
	s.router.Get("/api/logs", s.handleLogs)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
