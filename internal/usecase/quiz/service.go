package quiz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/search/mode"
	"github.com/kailas-cloud/docrag/internal/domain/search/request"
	"github.com/kailas-cloud/docrag/internal/domain/search/result"
)

// Question count limits.
const (
	DefaultQuestions = 5
	MaxQuestions     = 20
)

// defaultTopic is queried when the caller gives no topic.
const defaultTopic = "key facts overview"

// Retriever fetches passages for a topic.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// Service retrieves passages for a topic and turns them into a quiz.
type Service struct {
	retriever Retriever
}

// NewService creates a quiz service.
func NewService(r Retriever) *Service {
	return &Service{retriever: r}
}

// Build retrieves passages about topic and generates n questions from them.
// An empty corpus yields domain.ErrNotFound.
func (s *Service) Build(ctx context.Context, topic string, n int, m mode.Mode, seed uint64) ([]Question, error) {
	if n == 0 {
		n = DefaultQuestions
	}
	if n < 1 || n > MaxQuestions {
		return nil, fmt.Errorf("num_questions must be between 1 and %d: %w", MaxQuestions, domain.ErrInvalidParameter)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = defaultTopic
	}

	topK := min(request.MaxTopK, max(10, n*3))
	req, err := request.New(topic, m, topK, request.DefaultAlpha)
	if err != nil {
		return nil, err
	}
	hits, err := s.retriever.Retrieve(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no indexed content for %q: %w", topic, domain.ErrNotFound)
	}

	passages := make([]Passage, len(hits))
	for i := range hits {
		meta := hits[i].Meta()
		passages[i] = Passage{Text: hits[i].Text(), Source: meta.Source, Page: meta.Page}
	}
	return Generate(passages, n, seed), nil
}
