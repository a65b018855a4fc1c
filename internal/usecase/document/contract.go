package document

import (
	"context"

	"github.com/kailas-cloud/docrag/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/docrag/internal/domain/document"
)

// LexicalIndex is the keyword index written on ingest.
type LexicalIndex interface {
	Replace(sourceID string, chunks []chunk.Chunk)
	Remove(sourceID string) int
	Clear()
	Len() int
}

// VectorIndex is the embedding index written on ingest. Replace must be atomic:
// on error the previous entries of sourceID stay in place.
type VectorIndex interface {
	Replace(ctx context.Context, sourceID string, chunks []chunk.Chunk) ([]string, error)
	Remove(sourceID string) int
	Clear()
	Len() int
}

// Registry tracks ingested documents.
type Registry interface {
	Add(doc domdoc.Document)
	Get(sourceID string) (domdoc.Document, error)
	List() []domdoc.Document
	Delete(sourceID string) bool
	Clear()
	Len() int
}
