package chi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/search/mode"
	"github.com/kailas-cloud/docrag/internal/domain/search/request"
	documentuc "github.com/kailas-cloud/docrag/internal/usecase/document"
)

// multipart framing allowance on top of the file limit
const uploadOverhead = 1 << 20

// IngestDocument handles POST /v1/documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := s.documents.Ingest(r.Context(), documentuc.IngestRequest{
		SourceID:  req.SourceID,
		Filename:  req.Filename,
		Text:      req.Text,
		PageSpans: req.PageSpans,
		MaxChars:  req.MaxChars,
		Overlap:   req.Overlap,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, ingestStatus(res), ingestResponseFrom(res))
}

// UploadDocument handles POST /v1/upload (multipart field "file", optional "source_id").
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	limit := s.defaults.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge,
				fmt.Sprintf("upload exceeds %d bytes", limit))
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "failed to read upload")
		return
	}
	if int64(len(data)) > limit {
		writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", limit))
		return
	}

	res, err := s.documents.Upload(r.Context(), r.FormValue("source_id"), header.Filename, data)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, ingestStatus(res), ingestResponseFrom(res))
}

// ListDocuments handles GET /v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.documents.List(r.Context())

	items := make([]documentResponse, len(docs))
	for i := range docs {
		items[i] = documentResponseFrom(&docs[i])
	}
	writeJSON(w, http.StatusOK, documentListResponse{Documents: items})
}

// GetDocument handles GET /v1/documents/{sourceID}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "sourceID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponseFrom(&doc))
}

// DeleteDocument handles DELETE /v1/documents/{sourceID}. ok=false means not found.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ok := s.documents.Delete(r.Context(), chi.URLParam(r, "sourceID"))
	writeJSON(w, http.StatusOK, deleteResponse{OK: ok})
}

// ClearDocuments handles DELETE /v1/documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, r *http.Request) {
	n := s.documents.Clear(r.Context())
	writeJSON(w, http.StatusOK, clearResponse{Deleted: n})
}

// Query handles POST /v1/query. Failures keep the results key so an error
// is never mistaken for an empty success.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var body queryRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeQueryError(w, fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidParameter))
		return
	}

	req, err := s.requestFrom(body)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	results, err := s.search.Retrieve(r.Context(), &req)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}

	items := make([]resultResponse, len(results))
	for i := range results {
		items[i] = resultResponseFrom(&results[i])
	}
	writeJSON(w, http.StatusOK, queryResponse{Results: items})
}

func (s *Server) requestFrom(body queryRequest) (request.Request, error) {
	m := s.defaults.Mode
	if body.Mode != "" {
		parsed, ok := mode.Parse(body.Mode)
		if !ok {
			return request.Request{}, fmt.Errorf("invalid search mode %q: %w", body.Mode, domain.ErrInvalidParameter)
		}
		m = parsed
	}

	topK := s.defaults.TopK
	if body.TopK != nil {
		topK = *body.TopK
	}
	if s.defaults.MaxTopK > 0 && topK > s.defaults.MaxTopK {
		return request.Request{}, fmt.Errorf("top_k must be at most %d: %w", s.defaults.MaxTopK, domain.ErrInvalidParameter)
	}

	alpha := s.defaults.Alpha
	if body.Alpha != nil {
		alpha = *body.Alpha
	}

	return request.New(body.Query, m, topK, alpha)
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("query failed", zap.Error(err))
	}
	writeJSON(w, status, queryResponse{Results: []resultResponse{}, Error: &body})
}

// Quiz handles POST /v1/quiz.
func (s *Server) Quiz(w http.ResponseWriter, r *http.Request) {
	var body quizRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	m := s.defaults.Mode
	if body.Mode != "" {
		parsed, ok := mode.Parse(body.Mode)
		if !ok {
			writeError(w, http.StatusBadRequest, codeInvalidParameter, fmt.Sprintf("invalid search mode %q", body.Mode))
			return
		}
		m = parsed
	}

	seed := uint64(time.Now().UnixNano()) //nolint:gosec // non-negative wall clock
	if body.Seed != nil {
		seed = *body.Seed
	}

	questions, err := s.quiz.Build(r.Context(), body.Topic, body.NumQuestions, m, seed)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponseFrom(seed, questions))
}

func ingestStatus(res documentuc.IngestResult) int {
	if res.Replaced {
		return http.StatusOK
	}
	return http.StatusCreated
}
