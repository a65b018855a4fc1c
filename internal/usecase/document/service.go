package document

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docrag/internal/domain"
	"github.com/kailas-cloud/docrag/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/docrag/internal/domain/document"
	"github.com/kailas-cloud/docrag/internal/extract"
	"github.com/kailas-cloud/docrag/internal/logger"
	"github.com/kailas-cloud/docrag/internal/metrics"
	"github.com/kailas-cloud/docrag/internal/usecase/segment"
)

// IngestRequest carries caller-supplied text. Zero MaxChars and nil Overlap
// select the service defaults.
type IngestRequest struct {
	SourceID  string
	Filename  string
	Path      string
	Text      string
	PageSpans []chunk.PageSpan
	MaxChars  int
	Overlap   *int
}

// IngestResult reports what was indexed.
type IngestResult struct {
	SourceID      string
	ChunksIndexed int
	VectorIDs     []string
	Replaced      bool
}

// Stats is a snapshot of corpus sizes.
type Stats struct {
	Documents     int
	LexicalChunks int
	VectorChunks  int
}

// Service ingests documents into both indexes and keeps the registry in step.
// Writers are serialized; readers of the indexes never wait on it.
type Service struct {
	lexical   LexicalIndex
	vector    VectorIndex
	registry  Registry
	segmenter *segment.Segmenter
	now       func() time.Time

	mu sync.Mutex
}

// New creates a document service that segments with seg unless a request overrides it.
func New(lexical LexicalIndex, vector VectorIndex, registry Registry, seg *segment.Segmenter) *Service {
	return &Service{
		lexical:   lexical,
		vector:    vector,
		registry:  registry,
		segmenter: seg,
		now:       time.Now,
	}
}

// WithClock overrides the creation-time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Ingest segments and indexes caller-supplied text.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if err := domdoc.ValidateSourceID(req.SourceID); err != nil {
		return IngestResult{}, err
	}
	seg, err := s.segmenterFor(req.MaxChars, req.Overlap)
	if err != nil {
		return IngestResult{}, err
	}
	content, err := extract.FromText(req.Text, req.PageSpans)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", req.SourceID, err)
	}
	return s.ingest(ctx, req.SourceID, req.Filename, req.Path, content, seg)
}

// Upload extracts an uploaded file and ingests it under sourceID,
// or under an id derived from filename when sourceID is empty.
func (s *Service) Upload(ctx context.Context, sourceID, filename string, data []byte) (IngestResult, error) {
	if sourceID == "" {
		sourceID = domdoc.SourceIDFromName(filename)
	}
	if err := domdoc.ValidateSourceID(sourceID); err != nil {
		return IngestResult{}, err
	}
	content, err := extract.Extract(data, filename)
	if err != nil {
		return IngestResult{}, fmt.Errorf("extract %s: %w", filename, err)
	}
	return s.ingest(ctx, sourceID, filename, filename, content, s.segmenter)
}

// IngestFile extracts a file from disk and ingests it under a path-derived source id.
func (s *Service) IngestFile(ctx context.Context, path string, maxBytes int64) (IngestResult, error) {
	content, err := extract.ExtractFile(path, maxBytes)
	if err != nil {
		return IngestResult{}, fmt.Errorf("extract %s: %w", path, err)
	}
	return s.ingest(ctx, domdoc.SourceIDFromPath(path), "", path, content, s.segmenter)
}

func (s *Service) segmenterFor(maxChars int, overlap *int) (*segment.Segmenter, error) {
	if maxChars == 0 && overlap == nil {
		return s.segmenter, nil
	}
	mc, ov := s.segmenter.MaxChars(), s.segmenter.Overlap()
	if maxChars != 0 {
		mc = maxChars
	}
	if overlap != nil {
		ov = *overlap
	}
	seg, err := segment.New(mc, ov)
	if err != nil {
		return nil, fmt.Errorf("segmenter: %w", err)
	}
	return seg, nil
}

// ingest writes the vector index first: it is the only step that can fail,
// so a provider error leaves every index and the registry unchanged.
func (s *Service) ingest(
	ctx context.Context, sourceID, filename, path string,
	content extract.Result, seg *segment.Segmenter,
) (IngestResult, error) {
	chunks := seg.Split(sourceID, path, content.Text, content.PageSpans)
	if len(chunks) == 0 {
		metrics.DocumentsIngestedTotal.WithLabelValues("empty").Inc()
		return IngestResult{}, fmt.Errorf("ingest %s: no chunks: %w", sourceID, domain.ErrEmptyInput)
	}
	doc, err := domdoc.New(sourceID, filename, len(chunks), content.PageCount, s.now())
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest %s: %w", sourceID, err)
	}

	ctx = logger.WithFields(ctx, zap.String("source_id", sourceID))

	s.mu.Lock()
	defer s.mu.Unlock()

	_, getErr := s.registry.Get(sourceID)
	replaced := getErr == nil

	ids, err := s.vector.Replace(ctx, sourceID, chunks)
	if err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
		return IngestResult{}, fmt.Errorf("index vectors for %s: %w", sourceID, err)
	}
	s.lexical.Replace(sourceID, chunks)
	s.registry.Add(doc)

	metrics.DocumentsIngestedTotal.WithLabelValues("ok").Inc()
	s.recordSizes()

	logger.FromContext(ctx).Info("document ingested",
		zap.String("filename", doc.Filename()),
		zap.Int("chunks", len(chunks)),
		zap.Int("pages", content.PageCount),
		zap.Bool("replaced", replaced),
	)

	return IngestResult{
		SourceID:      sourceID,
		ChunksIndexed: len(chunks),
		VectorIDs:     ids,
		Replaced:      replaced,
	}, nil
}

// Get returns a registered document.
func (s *Service) Get(_ context.Context, sourceID string) (domdoc.Document, error) {
	doc, err := s.registry.Get(sourceID)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns every registered document, oldest first.
func (s *Service) List(_ context.Context) []domdoc.Document {
	return s.registry.List()
}

// Delete removes a document and all of its chunks from both indexes.
// It reports false when sourceID was not registered.
func (s *Service) Delete(ctx context.Context, sourceID string) bool {
	ctx = logger.WithFields(ctx, zap.String("source_id", sourceID))

	s.mu.Lock()
	defer s.mu.Unlock()

	vecRemoved := s.vector.Remove(sourceID)
	lexRemoved := s.lexical.Remove(sourceID)
	found := s.registry.Delete(sourceID)
	s.recordSizes()

	logger.FromContext(ctx).Info("document deleted",
		zap.Bool("found", found),
		zap.Int("vector_chunks", vecRemoved),
		zap.Int("lexical_chunks", lexRemoved),
	)
	return found
}

// Clear drops every document and chunk and returns how many documents were removed.
func (s *Service) Clear(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.registry.Len()
	s.vector.Clear()
	s.lexical.Clear()
	s.registry.Clear()
	s.recordSizes()

	logger.FromContext(ctx).Info("corpus cleared", zap.Int("documents", n))
	return n
}

// Stats reports current corpus sizes.
func (s *Service) Stats() Stats {
	return Stats{
		Documents:     s.registry.Len(),
		LexicalChunks: s.lexical.Len(),
		VectorChunks:  s.vector.Len(),
	}
}

// Counts reports registered documents and indexed lexical chunks.
func (s *Service) Counts() (documents, chunks int) {
	st := s.Stats()
	return st.Documents, st.LexicalChunks
}

func (s *Service) recordSizes() {
	metrics.IndexedChunks.WithLabelValues("lexical").Set(float64(s.lexical.Len()))
	metrics.IndexedChunks.WithLabelValues("vector").Set(float64(s.vector.Len()))
	metrics.RegisteredDocuments.Set(float64(s.registry.Len()))
}
