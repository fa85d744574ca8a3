// Package api wires the HTTP handlers onto a gorilla/mux router.
package api

import (
	"net/http"

	"financial_analyzer/pkg/api/analysis"
	"financial_analyzer/pkg/api/commentary"
	"financial_analyzer/pkg/api/config"
	"financial_analyzer/pkg/api/document"
	"financial_analyzer/pkg/api/export"
	"financial_analyzer/pkg/api/web"
	"financial_analyzer/pkg/core/agent"
	coreAnalysis "financial_analyzer/pkg/core/analysis"
	coreCommentary "financial_analyzer/pkg/core/commentary"
	coreExport "financial_analyzer/pkg/core/export"
	"financial_analyzer/pkg/core/extraction"
	"financial_analyzer/pkg/core/store"

	"github.com/gorilla/mux"
	"github.com/phuslu/log"
)

// Deps are the services the handlers need.
type Deps struct {
	Repo        store.Repository
	Engine      *coreAnalysis.Engine
	Extractor   *extraction.Extractor
	Commentary  *coreCommentary.Service
	Export      *coreExport.Service
	Agents      *agent.Manager
	MaxUploadMB int64
}

// NewRouter registers every route.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(accessLog)

	analyses := analysis.NewHandler(d.Repo, d.Engine)
	documents := document.NewHandler(d.Repo, d.Extractor, d.MaxUploadMB)
	comments := commentary.NewHandler(d.Commentary)
	exports := export.NewHandler(d.Export)
	cfg := config.NewHandler(d.Agents)

	// Preflight for every route
	r.PathPrefix("/api/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		web.CORS(w, "GET, POST, PUT, DELETE, OPTIONS")
		web.Preflight(w, r)
	})

	// Config endpoints
	r.HandleFunc("/api/config", cfg.HandleConfig).Methods(http.MethodGet)
	r.HandleFunc("/api/config/switch", cfg.HandleSwitch).Methods(http.MethodPost)

	// Analyses
	r.HandleFunc("/api/analyses", analyses.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses", analyses.HandleCreate).Methods(http.MethodPost)
	r.HandleFunc("/api/analyses/{id}", analyses.HandleGet).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}", analyses.HandleDelete).Methods(http.MethodDelete)

	// Periods
	r.HandleFunc("/api/analyses/{id}/periods", analyses.HandleListPeriods).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}/periods/{year:[0-9]+}", analyses.HandlePutPeriod).Methods(http.MethodPut)
	r.HandleFunc("/api/analyses/{id}/periods/{year:[0-9]+}", analyses.HandleDeletePeriod).Methods(http.MethodDelete)

	// Metrics
	r.HandleFunc("/api/analyses/{id}/metrics", analyses.HandleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}/metrics", analyses.HandleRecalculate).Methods(http.MethodPost)

	// Documents
	r.HandleFunc("/api/analyses/{id}/upload", documents.HandleUpload).Methods(http.MethodPost)
	r.HandleFunc("/api/analyses/{id}/import", documents.HandleImport).Methods(http.MethodPost)

	// Commentary
	r.HandleFunc("/api/analyses/{id}/commentary", comments.HandleLatest).Methods(http.MethodGet)
	r.HandleFunc("/api/analyses/{id}/commentary", comments.HandleGenerate).Methods(http.MethodPost)

	// Export
	r.HandleFunc("/api/analyses/{id}/export", exports.HandleExport).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		web.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().Str("component", "http").Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).Msg("request")
	})
}
