package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/search/mode"
	"github.com/kailas-cloud/docrag/internal/domain/search/request"
	"github.com/kailas-cloud/docrag/internal/domain/search/result"
	"github.com/kailas-cloud/docrag/internal/logger"
	"github.com/kailas-cloud/docrag/internal/metrics"
)

// DefaultOverFetch multiplies topK for each candidate list in hybrid mode.
const DefaultOverFetch = 2

// Options tunes hybrid retrieval.
type Options struct {
	OverFetch int
}

// Service retrieves passages in semantic, lexical or hybrid mode.
// Every returned score is min-max normalized onto [0,1].
type Service struct {
	lexical   LexicalIndex
	vector    VectorIndex
	overFetch int
}

// New creates a retrieval service.
func New(lexical LexicalIndex, vector VectorIndex, opts Options) *Service {
	of := opts.OverFetch
	if of < 1 {
		of = DefaultOverFetch
	}
	return &Service{lexical: lexical, vector: vector, overFetch: of}
}

// Retrieve runs req against the indexes selected by its mode.
// In hybrid mode a provider failure fails the whole call.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) ([]result.Result, error) {
	start := time.Now()
	m := req.Mode()

	var (
		results []result.Result
		err     error
	)
	switch m {
	case mode.Semantic:
		results, err = s.retrieveSemantic(ctx, req)
	case mode.Lexical:
		results = normalize(s.lexical.Query(req.Query(), req.TopK()))
	case mode.Hybrid:
		results, err = s.retrieveHybrid(ctx, req)
	default:
		err = fmt.Errorf("unsupported retrieval mode %q: %w", m, domain.ErrInvalidParameter)
	}

	metrics.RetrievalDuration.WithLabelValues(string(m)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RetrievalErrorsTotal.WithLabelValues(string(m), errorType(err)).Inc()
		return nil, err
	}
	metrics.RetrievalResults.WithLabelValues(string(m)).Observe(float64(len(results)))

	logger.FromContext(ctx).Debug("retrieve",
		zap.String("mode", string(m)),
		zap.Int("top_k", req.TopK()),
		zap.Float64("alpha", req.Alpha()),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
	)
	return results, nil
}

func (s *Service) retrieveSemantic(ctx context.Context, req *request.Request) ([]result.Result, error) {
	dense, err := s.vector.Query(ctx, req.Query(), req.TopK())
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}
	return normalize(dense), nil
}

// retrieveHybrid queries both indexes in parallel with over-fetch, then fuses.
// An index whose weight is zero is not queried.
func (s *Service) retrieveHybrid(ctx context.Context, req *request.Request) ([]result.Result, error) {
	fetch := max(req.TopK(), s.overFetch*req.TopK())
	alpha := req.Alpha()

	var dense, lexical []result.Result
	g, gctx := errgroup.WithContext(ctx)
	if alpha > 0 {
		g.Go(func() error {
			var err error
			dense, err = s.vector.Query(gctx, req.Query(), fetch)
			if err != nil {
				return fmt.Errorf("semantic query: %w", err)
			}
			return nil
		})
	}
	if alpha < 1 {
		g.Go(func() error {
			lexical = s.lexical.Query(req.Query(), fetch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("hybrid query: %w", err)
	}

	return fuse(dense, lexical, alpha, req.TopK()), nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, domain.ErrVectorDimMismatch):
		return "dim_mismatch"
	case errors.Is(err, domain.ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
