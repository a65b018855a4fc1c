package vector

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/chunk"
)

func corpus() []chunk.Chunk {
	return []chunk.Chunk{
		mkChunk("pets", 1, "The cat sat on the mat."),
		mkChunk("pets", 2, "The dog ran in the park."),
		mkChunk("sea", 1, "A fish swam."),
	}
}

func TestAdd_ReturnsIDs(t *testing.T) {
	ix := New(&keywordEmbedder{}, Options{})
	ids, err := ix.Add(context.Background(), corpus())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"pets:1", "pets:2", "sea:1"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
	if ix.Len() != 3 {
		t.Errorf("Len = %d, want 3", ix.Len())
	}
	if ix.Dimensions() != len(vocab) {
		t.Errorf("Dimensions = %d, want %d", ix.Dimensions(), len(vocab))
	}
}

func TestAdd_UsesBatchEmbedder(t *testing.T) {
	emb := &batchEmbedder{}
	ix := New(emb, Options{BatchSize: 2})
	if _, err := ix.Add(context.Background(), corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.batchCalls != 2 {
		t.Errorf("batchCalls = %d, want 2", emb.batchCalls)
	}
	if emb.calls != 0 {
		t.Errorf("single Embed calls = %d, want 0", emb.calls)
	}
}

func TestAdd_ProviderFailureIsAtomic(t *testing.T) {
	emb := &batchEmbedder{}
	calls := 0
	emb.batchFn = func(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
		calls++
		if calls == 2 {
			return domain.BatchEmbeddingResult{}, errors.New("connection refused")
		}
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = keywordVector(t)
		}
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}
	ix := New(emb, Options{BatchSize: 2})

	ids, err := ix.Add(context.Background(), corpus())
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if ids != nil {
		t.Errorf("expected nil ids, got %v", ids)
	}
	if ix.Len() != 0 {
		t.Errorf("partial write: Len = %d", ix.Len())
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	emb := &keywordEmbedder{}
	ix := New(emb, Options{})
	if _, err := ix.Add(context.Background(), corpus()[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emb.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{Embedding: []float32{1, 2}}, nil
	}
	_, err := ix.Add(context.Background(), corpus()[1:])
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if ix.Len() != 1 {
		t.Errorf("Len = %d, want 1", ix.Len())
	}
}

func TestAdd_InconsistentBatch(t *testing.T) {
	emb := &keywordEmbedder{}
	emb.embedFn = func(_ context.Context, text string) (domain.EmbeddingResult, error) {
		if text == "A fish swam." {
			return domain.EmbeddingResult{Embedding: []float32{1}}, nil
		}
		return domain.EmbeddingResult{Embedding: keywordVector(text)}, nil
	}
	ix := New(emb, Options{})

	if _, err := ix.Add(context.Background(), corpus()); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("Len = %d, want 0", ix.Len())
	}
}

func TestQuery_RanksByCosine(t *testing.T) {
	ix := New(&keywordEmbedder{}, Options{})
	if _, err := ix.Add(context.Background(), corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := ix.Query(context.Background(), "where is the dog", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID() != "pets:2" {
		t.Errorf("expected pets:2 first, got %s", results[0].ID())
	}
	// "dog park" vs query "dog": 1/sqrt(2)
	if math.Abs(results[0].Score()-1/math.Sqrt2) > 1e-9 {
		t.Errorf("score = %f, want %f", results[0].Score(), 1/math.Sqrt2)
	}
	if results[1].Score() != 0 {
		t.Errorf("orthogonal chunk score = %f, want 0", results[1].Score())
	}
	meta := results[0].Meta()
	if meta.Source != "pets" || meta.Page != 2 || meta.Path != "/docs/pets" {
		t.Errorf("unexpected meta %+v", meta)
	}
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	ix := New(&keywordEmbedder{}, Options{})
	chunks := []chunk.Chunk{
		mkChunk("a", 1, "cat"),
		mkChunk("b", 1, "dog"),
		mkChunk("c", 1, "cat cat"),
	}
	if _, err := ix.Add(context.Background(), chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := ix.Query(context.Background(), "cat", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].ID() != "a:1" || results[1].ID() != "c:1" {
		t.Errorf("unexpected order: %s, %s", results[0].ID(), results[1].ID())
	}
}

func TestQuery_UsesQueryEmbedder(t *testing.T) {
	docs := &keywordEmbedder{}
	queries := &keywordEmbedder{}
	ix := New(docs, Options{QueryEmbedder: queries})
	if _, err := ix.Add(context.Background(), corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ix.Query(context.Background(), "cat", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if queries.calls != 1 {
		t.Errorf("query embedder calls = %d, want 1", queries.calls)
	}
	if docs.calls != 3 {
		t.Errorf("document embedder calls = %d, want 3", docs.calls)
	}
}

func TestQuery_ProviderDown(t *testing.T) {
	emb := &keywordEmbedder{}
	ix := New(emb, Options{})
	if _, err := ix.Add(context.Background(), corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	emb.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, errors.New("timeout")
	}

	if _, err := ix.Query(context.Background(), "cat", 3); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestQuery_EmptyIndexSkipsProvider(t *testing.T) {
	emb := &keywordEmbedder{}
	ix := New(emb, Options{})
	results, err := ix.Query(context.Background(), "cat", 3)
	if err != nil || len(results) != 0 {
		t.Fatalf("expected empty result, got %v, %v", results, err)
	}
	if emb.calls != 0 {
		t.Errorf("provider called %d times", emb.calls)
	}
}

func TestRemoveAndReplace(t *testing.T) {
	ix := New(&keywordEmbedder{}, Options{})
	ctx := context.Background()
	if _, err := ix.Add(ctx, corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := ix.Remove("pets"); n != 2 {
		t.Errorf("Remove = %d, want 2", n)
	}
	results, err := ix.Query(ctx, "cat dog fish", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.Meta().Source == "pets" {
			t.Errorf("removed chunk returned: %s", r.ID())
		}
	}

	if _, err := ix.Add(ctx, []chunk.Chunk{mkChunk("sea", 1, "A dog swam.")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ix.Len() != 1 {
		t.Errorf("replacement duplicated entry: Len = %d", ix.Len())
	}

	ix.Clear()
	if ix.Len() != 0 || ix.Dimensions() != 0 {
		t.Errorf("Clear left Len=%d Dimensions=%d", ix.Len(), ix.Dimensions())
	}
}

func TestReplace(t *testing.T) {
	ix := New(&keywordEmbedder{}, Options{})
	ctx := context.Background()
	if _, err := ix.Add(ctx, corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids, err := ix.Replace(ctx, "pets", []chunk.Chunk{mkChunk("pets", 1, "Only a fish now.")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "pets:1" {
		t.Errorf("ids = %v", ids)
	}
	if ix.Len() != 2 {
		t.Errorf("Len = %d, want 2", ix.Len())
	}

	results, err := ix.Query(ctx, "dog", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.ID() == "pets:2" {
			t.Error("stale chunk pets:2 survived Replace")
		}
	}
}

func TestReplace_FailureKeepsPrevious(t *testing.T) {
	emb := &keywordEmbedder{}
	ix := New(emb, Options{})
	ctx := context.Background()
	if _, err := ix.Add(ctx, corpus()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	emb.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, errors.New("503")
	}
	if _, err := ix.Replace(ctx, "pets", []chunk.Chunk{mkChunk("pets", 1, "new")}); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if ix.Len() != 3 {
		t.Errorf("previous entries lost: Len = %d", ix.Len())
	}
}
