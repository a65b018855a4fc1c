package chi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
)

// Error codes returned in error bodies.
const (
	codeBadRequest          = "bad_request"
	codeInvalidParameter    = "invalid_parameter"
	codeEmptyInput          = "empty_input"
	codeUnsupportedFormat   = "unsupported_format"
	codeProviderUnavailable = "provider_unavailable"
	codeNotFound            = "not_found"
	codeTooLarge            = "payload_too_large"
	codeDimMismatch         = "vector_dim_mismatch"
	codeInternal            = "internal_error"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type sentinelMapping struct {
	err    error
	status int
	code   string
}

var sentinels = []sentinelMapping{
	{domain.ErrInvalidParameter, http.StatusBadRequest, codeInvalidParameter},
	{domain.ErrEmptyInput, http.StatusUnprocessableEntity, codeEmptyInput},
	{domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, codeUnsupportedFormat},
	{domain.ErrProviderUnavailable, http.StatusServiceUnavailable, codeProviderUnavailable},
	{domain.ErrNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrVectorDimMismatch, http.StatusConflict, codeDimMismatch},
}

// classify maps an error onto an HTTP status and a client-safe body.
// Invalid parameters keep their message; other sentinels expose only the sentinel text.
func classify(err error) (int, errorBody) {
	for _, m := range sentinels {
		if !errors.Is(err, m.err) {
			continue
		}
		msg := m.err.Error()
		if m.err == domain.ErrInvalidParameter || m.err == domain.ErrEmptyInput {
			msg = err.Error()
		}
		return m.status, errorBody{Code: m.code, Message: msg}
	}
	return http.StatusInternalServerError, errorBody{Code: codeInternal, Message: "internal error"}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("internal error", zap.Error(err))
	} else {
		s.logger.Warn("domain error", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: body})
}
