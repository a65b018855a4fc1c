package vector

import (
	"context"
	"strings"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/chunk"
)

// vocab is the axis order of keywordEmbedder vectors.
var vocab = []string{"cat", "dog", "park", "mat", "fish"}

// keywordEmbedder counts vocabulary words, one dimension per word.
type keywordEmbedder struct {
	calls   int
	texts   []string
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *keywordEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.texts = append(m.texts, text)
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: keywordVector(text), TotalTokens: 1}, nil
}

func keywordVector(text string) []float32 {
	v := make([]float32, len(vocab))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?")
		for i, k := range vocab {
			if w == k {
				v[i]++
			}
		}
	}
	return v
}

// batchEmbedder adds native batching on top of keywordEmbedder.
type batchEmbedder struct {
	keywordEmbedder
	batchCalls int
	batchFn    func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *batchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.batchFn != nil {
		return m.batchFn(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func mkChunk(sourceID string, index int, text string) chunk.Chunk {
	return chunk.Chunk{
		ID:       chunk.MakeID(sourceID, index),
		Text:     text,
		CharEnd:  len([]rune(text)),
		SourceID: sourceID,
		Page:     index,
		Index:    index,
		Path:     "/docs/" + sourceID,
	}
}
