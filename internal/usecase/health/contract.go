package health

import "context"

// Pinger checks embedding cache availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusCounter reports the size of the indexed corpus.
type CorpusCounter interface {
	Counts() (documents, chunks int)
}
