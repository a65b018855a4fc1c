package search

import (
	"context"

	"github.com/kailas-cloud/docrag/internal/domain/search/result"
)

// LexicalIndex ranks chunks by keyword relevance (native BM25 scores).
type LexicalIndex interface {
	Query(text string, topK int) []result.Result
}

// VectorIndex ranks chunks by embedding similarity (native cosine scores).
type VectorIndex interface {
	Query(ctx context.Context, text string, topK int) ([]result.Result, error)
}
