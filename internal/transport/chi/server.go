package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain/search/mode"
	"github.com/kailas-cloud/docrag/internal/metrics"
	documentuc "github.com/kailas-cloud/docrag/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docrag/internal/usecase/health"
	quizuc "github.com/kailas-cloud/docrag/internal/usecase/quiz"
	searchuc "github.com/kailas-cloud/docrag/internal/usecase/search"
)

// Defaults fill query fields the caller omits.
type Defaults struct {
	TopK           int
	MaxTopK        int
	Mode           mode.Mode
	Alpha          float64
	MaxUploadBytes int64
}

// Server exposes the retrieval engine over HTTP.
type Server struct {
	documents *documentuc.Service
	search    *searchuc.Service
	quiz      *quizuc.Service
	health    *healthuc.Service
	defaults  Defaults
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *documentuc.Service,
	search *searchuc.Service,
	quiz *quizuc.Service,
	health *healthuc.Service,
	defaults Defaults,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		documents: documents,
		search:    search,
		quiz:      quiz,
		health:    health,
		defaults:  defaults,
		logger:    logger,
	}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.IngestDocument)
		r.Get("/documents", s.ListDocuments)
		r.Delete("/documents", s.ClearDocuments)
		r.Get("/documents/{sourceID}", s.GetDocument)
		r.Delete("/documents/{sourceID}", s.DeleteDocument)
		r.Post("/upload", s.UploadDocument)
		r.Post("/query", s.Query)
		r.Post("/quiz", s.Quiz)
	})
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponseFrom(report))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v) //nolint:wrapcheck // reported verbatim as bad_request
}
