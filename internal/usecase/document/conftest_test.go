package document

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/chunk"
	"github.com/kailas-cloud/docrag/internal/repository/lexical"
	"github.com/kailas-cloud/docrag/internal/repository/registry"
	"github.com/kailas-cloud/docrag/internal/repository/vector"
	"github.com/kailas-cloud/docrag/internal/usecase/segment"
)

// letterEmbedder maps text onto letter frequencies a-z.
type letterEmbedder struct {
	err error
}

func (m *letterEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return domain.EmbeddingResult{Embedding: v, TotalTokens: 1}, nil
}

// failingVector fails every Replace and records whether it was called.
type failingVector struct {
	*vector.Index
	replaceCalls int
}

func (f *failingVector) Replace(context.Context, string, []chunk.Chunk) ([]string, error) {
	f.replaceCalls++
	return nil, fmt.Errorf("embed chunks: %w", domain.ErrProviderUnavailable)
}

type testEnv struct {
	svc      *Service
	lexical  *lexical.Index
	vector   *vector.Index
	registry *registry.Registry
	embedder *letterEmbedder
}

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	seg, err := segment.New(40, 8)
	if err != nil {
		t.Fatalf("segment.New: %v", err)
	}
	emb := &letterEmbedder{}
	env := &testEnv{
		lexical:  lexical.New(),
		vector:   vector.New(emb, vector.Options{}),
		registry: registry.New(),
		embedder: emb,
	}
	env.svc = New(env.lexical, env.vector, env.registry, seg).WithClock(func() time.Time { return fixedNow })
	return env
}
