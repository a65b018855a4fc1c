package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/search/mode"
)

// Retrieval parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength = 4096
	DefaultTopK    = 4
	MaxTopK        = 50
	DefaultAlpha   = 0.5
)

// Request is a validated retrieval query.
type Request struct {
	query      string
	searchMode mode.Mode
	topK       int
	alpha      float64
}

// New validates retrieval parameters. Empty mode selects hybrid.
// Every violation wraps domain.ErrInvalidParameter.
func New(query string, m mode.Mode, topK int, alpha float64) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("query is required: %w", domain.ErrInvalidParameter)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidParameter)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("invalid search mode %q: %w", m, domain.ErrInvalidParameter)
	}
	if topK < 1 || topK > MaxTopK {
		return Request{}, fmt.Errorf("top_k must be between 1 and %d, got %d: %w", MaxTopK, topK, domain.ErrInvalidParameter)
	}
	if math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return Request{}, fmt.Errorf("alpha must be between 0 and 1, got %v: %w", alpha, domain.ErrInvalidParameter)
	}

	return Request{
		query:      query,
		searchMode: m,
		topK:       topK,
		alpha:      alpha,
	}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// Mode returns the retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// TopK returns the maximum number of passages to return.
func (r *Request) TopK() int { return r.topK }

// Alpha returns the semantic weight used by hybrid fusion.
func (r *Request) Alpha() float64 { return r.alpha }
