package chi

import (
	"time"

	"github.com/kailas-cloud/docrag/internal/domain/chunk"
	domdoc "github.com/kailas-cloud/docrag/internal/domain/document"
	"github.com/kailas-cloud/docrag/internal/domain/search/result"
	documentuc "github.com/kailas-cloud/docrag/internal/usecase/document"
	healthuc "github.com/kailas-cloud/docrag/internal/usecase/health"
	quizuc "github.com/kailas-cloud/docrag/internal/usecase/quiz"
	"github.com/kailas-cloud/docrag/internal/version"
)

type ingestRequest struct {
	Text      string           `json:"text"`
	PageSpans []chunk.PageSpan `json:"page_spans,omitempty"`
	SourceID  string           `json:"source_id"`
	Filename  string           `json:"filename,omitempty"`
	MaxChars  int              `json:"max_chars,omitempty"`
	Overlap   *int             `json:"overlap,omitempty"`
}

type ingestResponse struct {
	SourceID      string   `json:"source_id"`
	ChunksIndexed int      `json:"chunks_indexed"`
	VectorIDs     []string `json:"vector_ids"`
	Replaced      bool     `json:"replaced"`
}

func ingestResponseFrom(res documentuc.IngestResult) ingestResponse {
	ids := res.VectorIDs
	if ids == nil {
		ids = []string{}
	}
	return ingestResponse{
		SourceID:      res.SourceID,
		ChunksIndexed: res.ChunksIndexed,
		VectorIDs:     ids,
		Replaced:      res.Replaced,
	}
}

type documentResponse struct {
	SourceID   string    `json:"source_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	PageCount  int       `json:"page_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func documentResponseFrom(d *domdoc.Document) documentResponse {
	return documentResponse{
		SourceID:   d.SourceID(),
		Filename:   d.Filename(),
		ChunkCount: d.ChunkCount(),
		PageCount:  d.PageCount(),
		CreatedAt:  d.CreatedAt(),
	}
}

type documentListResponse struct {
	Documents []documentResponse `json:"documents"`
}

type deleteResponse struct {
	OK bool `json:"ok"`
}

type clearResponse struct {
	Deleted int `json:"deleted"`
}

type queryRequest struct {
	Query string   `json:"query"`
	TopK  *int     `json:"top_k,omitempty"`
	Mode  string   `json:"mode,omitempty"`
	Alpha *float64 `json:"alpha,omitempty"`
}

type metaResponse struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Path   string `json:"path"`
}

type resultResponse struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Preview string       `json:"preview"`
	Score   float64      `json:"score"`
	Meta    metaResponse `json:"meta"`
}

func resultResponseFrom(r *result.Result) resultResponse {
	m := r.Meta()
	return resultResponse{
		ID:      r.ID(),
		Text:    r.Text(),
		Preview: r.Preview(),
		Score:   r.Score(),
		Meta:    metaResponse{Source: m.Source, Page: m.Page, Path: m.Path},
	}
}

type queryResponse struct {
	Results []resultResponse `json:"results"`
	Error   *errorBody       `json:"error,omitempty"`
}

type quizRequest struct {
	Topic        string  `json:"topic"`
	NumQuestions int     `json:"num_questions,omitempty"`
	Mode         string  `json:"mode,omitempty"`
	Seed         *uint64 `json:"seed,omitempty"`
}

type questionResponse struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
	Source  string   `json:"source"`
	Page    int      `json:"page"`
}

type quizResponse struct {
	Seed      uint64             `json:"seed"`
	Questions []questionResponse `json:"questions"`
}

func quizResponseFrom(seed uint64, qs []quizuc.Question) quizResponse {
	out := quizResponse{Seed: seed, Questions: make([]questionResponse, len(qs))}
	for i, q := range qs {
		out.Questions[i] = questionResponse{
			Prompt:  q.Prompt,
			Options: q.Options,
			Answer:  q.Answer,
			Source:  q.Source,
			Page:    q.Page,
		}
	}
	return out
}

type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Documents int               `json:"documents"`
	Chunks    int               `json:"chunks"`
	Version   string            `json:"version"`
}

func healthResponseFrom(r healthuc.Report) healthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return healthResponse{
		Status:    string(r.Status),
		Checks:    checks,
		Documents: r.Documents,
		Chunks:    r.Chunks,
		Version:   version.Version,
	}
}
