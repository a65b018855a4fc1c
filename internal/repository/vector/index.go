// Package vector implements an in-memory cosine-similarity index over chunk embeddings.
package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/chunk"
	"github.com/kailas-cloud/docrag/internal/domain/search/result"
)

// DefaultBatchSize is the number of texts sent to the provider per call.
const DefaultBatchSize = 64

// Options configures an Index.
type Options struct {
	// QueryEmbedder embeds query text. Defaults to the document embedder.
	QueryEmbedder domain.Embedder
	BatchSize     int
}

type entry struct {
	chunk  chunk.Chunk
	vector []float32
	norm   float64
}

// Index stores one embedding per chunk and ranks by cosine similarity.
type Index struct {
	embedder      domain.Embedder
	queryEmbedder domain.Embedder
	batchSize     int

	mu      sync.RWMutex
	entries []entry
	pos     map[string]int
	dim     int
}

// New creates an empty index backed by embedder.
func New(embedder domain.Embedder, opts Options) *Index {
	q := opts.QueryEmbedder
	if q == nil {
		q = embedder
	}
	bs := opts.BatchSize
	if bs <= 0 {
		bs = DefaultBatchSize
	}
	return &Index{
		embedder:      embedder,
		queryEmbedder: q,
		batchSize:     bs,
		pos:           make(map[string]int),
	}
}

// Add embeds and stores chunks, returning their ids. Embeddings are computed
// before the index is touched: on any error nothing is stored.
// A chunk id that is already present is replaced.
func (ix *Index) Add(ctx context.Context, chunks []chunk.Chunk) ([]string, error) {
	return ix.put(ctx, "", chunks)
}

// Replace swaps every entry of sourceID for chunks in one step. As with Add,
// a failure leaves the previous entries untouched.
func (ix *Index) Replace(ctx context.Context, sourceID string, chunks []chunk.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		ix.Remove(sourceID)
		return nil, nil
	}
	return ix.put(ctx, sourceID, chunks)
}

func (ix *Index) put(ctx context.Context, replace string, chunks []chunk.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := ix.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("chunk %s has %d dimensions, batch has %d: %w",
				chunks[i].ID, len(v), dim, domain.ErrVectorDimMismatch)
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	entries := ix.entries
	if replace != "" {
		entries = make([]entry, 0, len(ix.entries))
		for _, e := range ix.entries {
			if e.chunk.SourceID != replace {
				entries = append(entries, e)
			}
		}
	}
	if len(entries) > 0 && ix.dim != dim {
		return nil, fmt.Errorf("index has %d dimensions, got %d: %w", ix.dim, dim, domain.ErrVectorDimMismatch)
	}
	if replace != "" {
		ix.reset(entries)
	}
	ix.dim = dim

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		e := entry{chunk: c, vector: vectors[i], norm: norm(vectors[i])}
		if p, ok := ix.pos[c.ID]; ok {
			ix.entries[p] = e
		} else {
			ix.pos[c.ID] = len(ix.entries)
			ix.entries = append(ix.entries, e)
		}
		ids[i] = c.ID
	}
	return ids, nil
}

func (ix *Index) embedChunks(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += ix.batchSize {
		end := min(start+ix.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}

		res, err := domain.EmbedAll(ctx, ix.embedder, texts)
		if err != nil {
			return nil, providerError("embed chunks", err)
		}
		vectors = append(vectors, res.Embeddings...)
	}
	return vectors, nil
}

// Remove drops every entry of sourceID and returns how many were removed.
func (ix *Index) Remove(sourceID string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	kept := ix.entries[:0:0]
	for _, e := range ix.entries {
		if e.chunk.SourceID != sourceID {
			kept = append(kept, e)
		}
	}
	removed := len(ix.entries) - len(kept)
	if removed > 0 {
		ix.reset(kept)
	}
	return removed
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.reset(nil)
}

func (ix *Index) reset(entries []entry) {
	ix.entries = entries
	ix.pos = make(map[string]int, len(entries))
	for i, e := range entries {
		ix.pos[e.chunk.ID] = i
	}
	if len(entries) == 0 {
		ix.dim = 0
	}
}

// Len returns the number of stored vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimensions returns the dimension shared by stored vectors, 0 when empty.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Query embeds text and returns the topK most similar chunks with their cosine similarity.
func (ix *Index) Query(ctx context.Context, text string, topK int) ([]result.Result, error) {
	if topK <= 0 || ix.Len() == 0 {
		return nil, nil
	}

	res, err := ix.queryEmbedder.Embed(ctx, text)
	if err != nil {
		return nil, providerError("embed query", err)
	}
	q := res.Embedding
	qn := norm(q)

	ix.mu.RLock()
	if ix.dim != 0 && len(q) != ix.dim {
		dim := ix.dim
		ix.mu.RUnlock()
		return nil, fmt.Errorf("query has %d dimensions, index has %d: %w", len(q), dim, domain.ErrVectorDimMismatch)
	}
	type scored struct {
		chunk chunk.Chunk
		score float64
	}
	hits := make([]scored, len(ix.entries))
	for i := range ix.entries {
		e := &ix.entries[i]
		hits[i] = scored{chunk: e.chunk, score: cosine(q, qn, e.vector, e.norm)}
	}
	ix.mu.RUnlock()

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	out := make([]result.Result, len(hits))
	for i, h := range hits {
		c := h.chunk
		out[i] = result.New(c.ID, c.Text, h.score, result.Meta{Source: c.SourceID, Page: c.Page, Path: c.Path})
	}
	return out, nil
}

func providerError(op string, err error) error {
	if errors.Is(err, domain.ErrProviderUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrProviderUnavailable, err)
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

// cosine returns 0 when either vector has zero length.
func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
